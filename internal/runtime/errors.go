package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/curator/pkg/domain"
)

var (
	// ErrTerminal is returned by Step when the state has already reached the terminal stage.
	ErrTerminal = errors.New("run already terminated")
	// ErrStageContract indicates a stage finished without writing a field it declared.
	ErrStageContract = errors.New("stage did not write its declared output")
	// ErrInvalidPipeline is returned by NewPipeline for an inconsistent stage list.
	ErrInvalidPipeline = errors.New("invalid pipeline")
)

// StageError is returned when a stage aborts the run.
// The partially built state is discarded.
type StageError struct {
	Stage domain.StageID
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
