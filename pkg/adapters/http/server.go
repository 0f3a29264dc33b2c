package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/curator"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/aretw0/curator/pkg/registry"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var rawSpec []byte

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Engine defines what the HTTP server needs from the curator engine.
type Engine interface {
	Recommend(ctx context.Context, req curator.Request) (*domain.Recommendation, error)
	Record(ctx context.Context, runID string) (domain.RunRecord, error)
	Records() ports.ResultStore
	Tools() *registry.Registry
}

// Server serves recommendations and the registry tools over HTTP.
type Server struct {
	engine   Engine
	doc      *openapi3.T
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	storeID  string
	topK     int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for request errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes the given registry on /metrics instead of the default one.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithDefaults sets the store and top_k used when a request omits them.
func WithDefaults(storeID string, topK int) Option {
	return func(s *Server) {
		s.storeID = storeID
		s.topK = topK
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	doc, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		engine:   engine,
		doc:      doc,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
		topK:     3,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommendations", s.CreateRecommendation)
		r.Get("/recommendations", s.ListRecommendations)
		r.Get("/recommendations/{runID}", s.GetRecommendation)
		r.Get("/tools", s.ListTools)
		r.Post("/tools/{name}", s.InvokeTool)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Curator API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "curator-http",
		"version":     strings.TrimSpace(curator.Version),
		"api_version": apiVersion,
	})
}

// RecommendationRequest is the body of POST /v1/recommendations.
type RecommendationRequest struct {
	RunID    string  `json:"run_id,omitempty"`
	Username string  `json:"username"`
	StoreID  *string `json:"store_id,omitempty"`
	TopK     *int    `json:"top_k,omitempty"`
}

// RecommendationResponse is the body returned for a completed run.
type RecommendationResponse struct {
	RunID string   `json:"run_id"`
	Items []string `json:"items"`
}

// CreateRecommendation handles POST /v1/recommendations.
func (s *Server) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	var body RecommendationRequest
	if err := s.decode(r, "RecommendationRequest", &body); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	req := curator.Request{
		RunID:    body.RunID,
		Username: body.Username,
		StoreID:  s.storeID,
		TopK:     s.topK,
	}
	if body.StoreID != nil {
		req.StoreID = *body.StoreID
	}
	if body.TopK != nil {
		req.TopK = *body.TopK
	}
	if req.RunID == "" {
		req.RunID = curator.NewRunID()
	}

	rec, err := s.engine.Recommend(r.Context(), req)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendationResponse{RunID: req.RunID, Items: rec.Items})
}

// ListRecommendations handles GET /v1/recommendations.
func (s *Server) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if store := s.engine.Records(); store != nil {
		listed, err := store.List(r.Context())
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		ids = append(ids, listed...)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRecommendation handles GET /v1/recommendations/{runID}.
func (s *Server) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	record, err := s.engine.Record(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ListTools handles GET /v1/tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Tools().Tools())
}

// InvokeTool handles POST /v1/tools/{name}.
func (s *Server) InvokeTool(w http.ResponseWriter, r *http.Request) {
	name := domain.ToolName(chi.URLParam(r, "name"))
	if !name.Valid() {
		s.fail(w, http.StatusNotFound, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name))
		return
	}

	var args map[string]any
	if err := s.decode(r, "ToolArguments", &args); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.engine.Tools().Invoke(r.Context(), name, args)
	if err != nil {
		s.fail(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

// decode reads the body, checks it against the named component schema, then
// unmarshals it into out.
func (s *Server) decode(r *http.Request, schema string, out any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return errors.New("request body too large")
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	ref, ok := s.doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("unknown schema %q", schema)
	}
	if err := ref.Value.VisitJSON(generic); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, domain.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidToolArgs), errors.Is(err, domain.ErrInvalidTopK):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "err", err)
	} else {
		s.logger.Warn("Request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
