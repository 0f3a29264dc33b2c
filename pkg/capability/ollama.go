package capability

import (
	"context"
	"log/slog"
	"os"

	"github.com/aretw0/curator/internal/logging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultOllamaURL   = "http://localhost:11434/"
	DefaultOllamaModel = "gpt-oss:20b"
)

// Ollama generates text with a model served by a local Ollama daemon.
type Ollama struct {
	llm   llms.Model
	model string
}

// OllamaConfig selects the server and model. Empty fields fall back to
// OLLAMA_BASE_URL / OLLAMA_MODEL and then to the package defaults.
type OllamaConfig struct {
	BaseURL string
	Model   string
	// Logger receives client setup events. Nil discards them.
	Logger *slog.Logger
}

// NewOllama builds a client. No request is made until Generate is called.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OLLAMA_MODEL")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}

	llm, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, unavailable("ollama", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger.Debug("Initializing Ollama capability", "base_url", cfg.BaseURL, "model", cfg.Model)
	return &Ollama{llm: llm, model: cfg.Model}, nil
}

// Generate sends prompt as a single user turn with temperature 0.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", unavailable("ollama", err)
	}
	return text, nil
}

// Model returns the configured model name.
func (o *Ollama) Model() string { return o.model }
