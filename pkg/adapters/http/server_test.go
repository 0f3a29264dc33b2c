package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/curator"
	curatorhttp "github.com/aretw0/curator/pkg/adapters/http"
	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/capability"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports/tests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCatalog struct{}

func (brokenCatalog) LookupUser(context.Context, string) (domain.UserPurchase, bool, error) {
	return domain.UserPurchase{}, false, errors.New("users.json: permission denied")
}

func (brokenCatalog) LookupStore(context.Context, string) (domain.StoreInventory, bool, error) {
	return domain.StoreInventory{}, false, nil
}

func newServer(t *testing.T, opts ...curator.Option) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	base := []curator.Option{
		curator.WithCatalog(memory.NewCatalog(tests.FixtureUsers, tests.FixtureStores)),
		curator.WithCapability(capability.NewStatic(`["Webcam","Headset","Monitor"]`)),
		curator.WithResultStore(store),
	}
	eng, err := curator.New(append(base, opts...)...)
	require.NoError(t, err)

	handler, err := curatorhttp.NewHandler(eng,
		curatorhttp.WithDefaults("ABC", 3),
		curatorhttp.WithGatherer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, store
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp, out
}

func TestLoadSpec(t *testing.T) {
	doc, err := curatorhttp.LoadSpec(context.Background())
	require.NoError(t, err)
	assert.Contains(t, doc.Components.Schemas, "RecommendationRequest")
	assert.NotNil(t, doc.Paths.Find("/v1/recommendations"))
}

func TestCreateRecommendation(t *testing.T) {
	srv, store := newServer(t)

	resp, out := post(t, srv.URL+"/v1/recommendations", `{"username":"richard","store_id":"ABC","top_k":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Headset", "Monitor"}, out["items"])

	runID, _ := out["run_id"].(string)
	require.NotEmpty(t, runID)
	record, err := store.Load(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "richard", record.Username)
}

func TestCreateRecommendation_Defaults(t *testing.T) {
	srv, _ := newServer(t)

	resp, out := post(t, srv.URL+"/v1/recommendations", `{"username":"richard","run_id":"fixed"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fixed", out["run_id"])
	assert.Equal(t, []any{"Headset", "Monitor", "Webcam"}, out["items"])
}

func TestCreateRecommendation_ZeroTopK(t *testing.T) {
	srv, _ := newServer(t)

	resp, out := post(t, srv.URL+"/v1/recommendations", `{"username":"richard","top_k":0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, out["items"])
}

func TestCreateRecommendation_RejectsInvalidBodies(t *testing.T) {
	srv, _ := newServer(t)

	cases := map[string]string{
		"not json":         `{"username":`,
		"missing username": `{"store_id":"ABC"}`,
		"negative top_k":   `{"username":"richard","top_k":-1}`,
		"fractional top_k": `{"username":"richard","top_k":1.5}`,
		"unknown field":    `{"username":"richard","limit":3}`,
		"wrong type":       `{"username":42}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, out := post(t, srv.URL+"/v1/recommendations", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestCreateRecommendation_DataUnavailable(t *testing.T) {
	srv, _ := newServer(t, curator.WithCatalog(brokenCatalog{}))

	resp, out := post(t, srv.URL+"/v1/recommendations", `{"username":"richard"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, out["error"], "data unavailable")
}

func TestGetRecommendation(t *testing.T) {
	srv, _ := newServer(t)
	_, _ = post(t, srv.URL+"/v1/recommendations", `{"username":"monica","store_id":"XYZ","run_id":"r-1"}`)

	resp, err := http.Get(srv.URL + "/v1/recommendations/r-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var record domain.RunRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, "XYZ", record.StoreID)
	assert.Equal(t, []string{"Headset", "Monitor", "Webcam"}, record.Items)

	missing, err := http.Get(srv.URL + "/v1/recommendations/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestListRecommendations(t *testing.T) {
	srv, _ := newServer(t)
	_, _ = post(t, srv.URL+"/v1/recommendations", `{"username":"richard","run_id":"b"}`)
	_, _ = post(t, srv.URL+"/v1/recommendations", `{"username":"richard","run_id":"a"}`)

	resp, err := http.Get(srv.URL + "/v1/recommendations")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.ElementsMatch(t, []string{"a", "b"}, out["runs"])
}

func TestInvokeTool(t *testing.T) {
	srv, _ := newServer(t)

	resp, out := post(t, srv.URL+"/v1/tools/history_lookup", `{"username":"richard"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Keyboard", "Gaming Mouse", "Mousepad"}, out["result"])

	resp, out = post(t, srv.URL+"/v1/tools/rank", `{"items":["b","a","c"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"a", "b", "c"}, out["result"])

	resp, out = post(t, srv.URL+"/v1/tools/inventory_lookup", `{"store_id":"NOPE"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, out["result"])
}

func TestInvokeTool_Errors(t *testing.T) {
	srv, _ := newServer(t)

	resp, _ := post(t, srv.URL+"/v1/tools/delete_everything", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/v1/tools/history_lookup", `{"store_id":"ABC"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/v1/tools/rank", `{"items":"Keyboard"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetInfo(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()

	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "curator-http", info["app"])
	assert.Equal(t, "0.1.0", info["api_version"])
	assert.Equal(t, strings.TrimSpace(curator.Version), info["version"])
}

func TestListTools(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/v1/tools")
	require.NoError(t, err)
	defer resp.Body.Close()

	var tools []domain.Tool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tools))
	require.Len(t, tools, 3)
	assert.Equal(t, domain.ToolHistoryLookup, tools[0].Name)
}

func TestAuxiliaryEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	for path, contentType := range map[string]string{
		"/healthz":      "application/json",
		"/openapi.yaml": "text/yaml",
		"/swagger":      "text/html",
		"/metrics":      "text/plain",
	} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Content-Type"), contentType, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/recommendations", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
