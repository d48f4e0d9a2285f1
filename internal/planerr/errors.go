// Package planerr defines the errors returned by the topology engine.
// Every error is a pure function of the engine's inputs, so none of them
// are retryable.
package planerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error
type Kind string

const (
	KindInvalidSpec          Kind = "INVALID_SPEC"
	KindInsufficientCapacity Kind = "INSUFFICIENT_CAPACITY"
	KindUnsupportedTopology  Kind = "UNSUPPORTED_TOPOLOGY"
	KindInvalidEnsembleSize  Kind = "INVALID_ENSEMBLE_SIZE"
)

// Error is an engine error with a kind, an operator-facing message and
// optional structured details
type Error struct {
	Kind    Kind                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrInvalidSpec) works
// regardless of message and details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrInvalidSpec          = &Error{Kind: KindInvalidSpec, Message: "invalid spec"}
	ErrInsufficientCapacity = &Error{Kind: KindInsufficientCapacity, Message: "insufficient capacity"}
	ErrUnsupportedTopology  = &Error{Kind: KindUnsupportedTopology, Message: "unsupported topology"}
	ErrInvalidEnsembleSize  = &Error{Kind: KindInvalidEnsembleSize, Message: "invalid ensemble size"}
)

// InvalidSpec creates a malformed or self-contradictory declaration error
func InvalidSpec(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidSpec, Message: fmt.Sprintf(format, args...)}
}

// InsufficientCapacity creates an error naming the cluster and the requested and available counts
func InsufficientCapacity(cluster string, requested, available int) *Error {
	return &Error{
		Kind: KindInsufficientCapacity,
		Message: fmt.Sprintf("could not satisfy request for %d nodes in cluster '%s': only %d qualifying hosts available",
			requested, cluster, available),
		Details: map[string]interface{}{
			"cluster":   cluster,
			"requested": requested,
			"available": available,
		},
	}
}

// UnsupportedTopology creates an error for a cluster shape that cannot host the requested feature
func UnsupportedTopology(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnsupportedTopology, Message: fmt.Sprintf(format, args...)}
}

// InvalidEnsembleSize creates an error naming the allowed bounds and the actual size
func InvalidEnsembleSize(cluster string, min, max, actual int) *Error {
	return &Error{
		Kind: KindInvalidEnsembleSize,
		Message: fmt.Sprintf("cluster '%s' must have an odd number of nodes in [%d, %d] to host a consensus ensemble, got %d",
			cluster, min, max, actual),
		Details: map[string]interface{}{
			"cluster": cluster,
			"min":     min,
			"max":     max,
			"actual":  actual,
		},
	}
}

// WithDetail returns e with key set in its details
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of err if it is an engine error, or "" otherwise
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
