package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/curator"
	"gopkg.in/yaml.v3"
)

// BatchFile is the on-disk shape of a batch: either this object or a bare list of requests.
type BatchFile struct {
	Requests []curator.Request `yaml:"requests" json:"requests"`
}

// LoadBatch reads a YAML or JSON batch file. Requests that omit store_id or top_k
// take storeID and topK.
func LoadBatch(path, storeID string, topK int) ([]curator.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	reqs, err := parseBatch(data, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range reqs {
		if reqs[i].Username == "" {
			return nil, fmt.Errorf("request %d: username is required", i)
		}
		if reqs[i].StoreID == "" {
			reqs[i].StoreID = storeID
		}
		if reqs[i].TopK < 0 {
			return nil, fmt.Errorf("request %d: top_k must be >= 0", i)
		}
		if reqs[i].TopK == 0 && !hasTopK(data, i) {
			reqs[i].TopK = topK
		}
	}
	return reqs, nil
}

func parseBatch(data []byte, isJSON bool) ([]curator.Request, error) {
	unmarshal := yaml.Unmarshal
	if isJSON {
		unmarshal = json.Unmarshal
	}

	var list []curator.Request
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var file BatchFile
	if err := unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Requests, nil
}

// hasTopK reports whether request i spelled out top_k, so an explicit 0 is kept.
func hasTopK(data []byte, i int) bool {
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		var file struct {
			Requests []map[string]any `yaml:"requests"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return false
		}
		raw = file.Requests
	}
	if i >= len(raw) {
		return false
	}
	_, ok := raw[i]["top_k"]
	return ok
}

// BatchLine is one NDJSON line of batch output.
type BatchLine struct {
	RunID    string   `json:"run_id"`
	Username string   `json:"username"`
	StoreID  string   `json:"store_id"`
	TopK     int      `json:"top_k"`
	Items    []string `json:"items"`
	Error    string   `json:"error,omitempty"`
}

// WriteBatch writes one JSON object per result and returns how many requests failed.
func WriteBatch(w io.Writer, results []curator.BatchResult) (int, error) {
	enc := json.NewEncoder(w)
	failed := 0
	for _, r := range results {
		line := BatchLine{
			RunID:    r.Request.RunID,
			Username: r.Request.Username,
			StoreID:  r.Request.StoreID,
			TopK:     r.Request.TopK,
			Items:    r.Items,
		}
		if line.Items == nil {
			line.Items = []string{}
		}
		if r.Err != nil {
			failed++
			line.Error = r.Err.Error()
		}
		if err := enc.Encode(line); err != nil {
			return failed, err
		}
	}
	return failed, nil
}
