package capability

import (
	"context"
	"sync"
)

// Static always answers with the same text. Useful for offline runs and tests.
type Static struct {
	Text string

	mu      sync.Mutex
	prompts []string
}

// NewStatic returns a capability that always answers text.
func NewStatic(text string) *Static { return &Static{Text: text} }

// Generate records prompt and returns the fixed text.
func (s *Static) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("static", err)
	}
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.Text, nil
}

// Prompts returns every prompt received so far.
func (s *Static) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Func adapts a plain function to ports.Capability.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := f(ctx, prompt)
	if err != nil {
		return "", unavailable("func", err)
	}
	return text, nil
}
