package ports

import "context"

// Capability is a generative text service: a fully formed prompt in, raw text out.
//
// Generate is synchronous from the caller's point of view and may be slow.
// Every failure is returned as an error wrapping domain.ErrCapabilityUnavailable;
// implementations never substitute a default and never interpret the returned text.
type Capability interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
