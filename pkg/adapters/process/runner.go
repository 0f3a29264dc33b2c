// Package process provides a Capability that delegates generation to a local command.
//
// The prompt is written to the command's stdin and stdout is returned untouched.
// Prompt text is never passed as a command-line argument.
package process

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/curator/pkg/domain"
)

// waitDelay bounds how long Generate waits for pipes after the command is killed.
const waitDelay = 2 * time.Second

// EnvPrompt is set in the child environment to the prompt length in bytes.
const EnvPrompt = "CURATOR_PROMPT_BYTES"

// Runner executes one configured command per Generate call.
type Runner struct {
	cfg     CommandConfig
	baseDir string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for the executed command.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg CommandConfig, opts ...RunnerOption) (*Runner, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("%w: process: empty command", domain.ErrCapabilityUnavailable)
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Generate runs the command with prompt on stdin.
// A non-zero exit or a canceled context is a capability failure.
func (r *Runner) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, r.cfg.Command, r.cfg.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = strings.NewReader(prompt)
	cmd.WaitDelay = waitDelay

	env := []string{fmt.Sprintf("%s=%d", EnvPrompt, len(prompt))}
	for k, v := range r.cfg.Environment {
		env = append(env, k+"="+v)
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", fmt.Errorf("%w: process %s: %w (stderr: %s)",
			domain.ErrCapabilityUnavailable, r.cfg.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
