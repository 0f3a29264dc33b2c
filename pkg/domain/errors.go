package domain

import "errors"

// ErrDataUnavailable is returned when the catalog backing a lookup cannot be read
// or holds malformed data. It is the only fatal error class of a run.
var ErrDataUnavailable = errors.New("data unavailable")

// ErrCapabilityUnavailable wraps every failure of a language-model call
// (timeout, connection refused, service error, empty response).
var ErrCapabilityUnavailable = errors.New("capability unavailable")

// ErrInvalidTopK is returned when a run is requested with a negative top_k.
var ErrInvalidTopK = errors.New("top_k must be >= 0")

// ErrFieldRewritten is returned when a stage writes a State field that already holds a value.
var ErrFieldRewritten = errors.New("state field already written")

// ErrUnknownTool is returned when a tool name is outside the registry's closed set.
var ErrUnknownTool = errors.New("unknown tool")

// ErrInvalidToolArgs is returned when tool arguments do not match the tool's input shape.
var ErrInvalidToolArgs = errors.New("invalid tool arguments")

// ErrToolContract is returned when a tool implementation breaks its output contract
// (e.g. a ranker adding or dropping items).
var ErrToolContract = errors.New("tool contract violated")

// ErrRunNotFound is returned when a run ID cannot be found in the result store.
var ErrRunNotFound = errors.New("run not found")
