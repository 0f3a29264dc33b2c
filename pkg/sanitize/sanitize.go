// Package sanitize turns untrusted language-model output into typed values.
//
// It is the only place where capability text enters the data model. Parsing never
// fails the caller: malformed text yields an explicit Fallback result with an empty list.
package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// DefaultMaxOutputSize is 64KB.
	DefaultMaxOutputSize = 64 * 1024
	// EnvMaxOutputSize is the environment variable to override the default.
	EnvMaxOutputSize = "CURATOR_MAX_OUTPUT_SIZE"
)

var (
	ErrTooLarge    = errors.New("output exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("output contains invalid UTF-8 sequences")
	ErrMalformed   = errors.New("output is not valid JSON")
	ErrWrongShape  = errors.New("output is not a JSON list of strings")
)

// Outcome tells which branch of the parse policy produced a Result.
type Outcome int

const (
	// Parsed means the text was a list of strings and Items holds it verbatim.
	Parsed Outcome = iota
	// Fallback means the text was rejected and Items is the empty default.
	Fallback
)

func (o Outcome) String() string {
	if o == Parsed {
		return "parsed"
	}
	return "fallback"
}

// Result is the outcome of parsing untrusted text.
type Result struct {
	Items   []string
	Outcome Outcome
	// Reason explains a Fallback. It is nil for Parsed results.
	Reason error
}

// Degraded reports whether the fail-open default was applied.
func (r Result) Degraded() bool { return r.Outcome == Fallback }

func parsed(items []string) Result {
	return Result{Items: items, Outcome: Parsed}
}

// Fail builds a Fallback result for text that never arrived, such as when the
// capability itself failed.
func Fail(reason error) Result {
	return Result{Items: []string{}, Outcome: Fallback, Reason: reason}
}

// ParseItems strictly parses raw as a JSON array of strings.
// Order and duplicates are preserved. Any other input yields a Fallback.
func ParseItems(raw string) Result {
	limit := maxOutputSize()
	if len(raw) > limit {
		return Fail(fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(raw), limit))
	}
	if !utf8.ValidString(raw) {
		return Fail(ErrInvalidUTF8)
	}

	text := strings.TrimSpace(raw)
	if !json.Valid([]byte(text)) {
		return Fail(ErrMalformed)
	}

	// Valid JSON; anything but a list of strings is the wrong shape.
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	var values []json.RawMessage
	if err := dec.Decode(&values); err != nil || values == nil {
		return Fail(fmt.Errorf("%w: top-level value is not a list", ErrWrongShape))
	}

	items := make([]string, 0, len(values))
	for i, v := range values {
		var s string
		if err := json.Unmarshal(v, &s); err != nil || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return Fail(fmt.Errorf("%w: element %d is not a string", ErrWrongShape, i))
		}
		items = append(items, s)
	}
	return parsed(items)
}

func maxOutputSize() int {
	if val := os.Getenv(EnvMaxOutputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxOutputSize
}
