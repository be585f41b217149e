// Package corerr implements the discriminated error kinds of spec.md §7 —
// the Go rendering of "exceptions -> result kinds" from spec.md §9's
// design notes.
package corerr

import (
	"errors"
	"fmt"
)

// Kind is the wire-level error category. It is never a Go type hierarchy —
// callers switch on Kind, not on concrete error types.
type Kind string

const (
	KindInvalidInput             Kind = "InvalidInput"
	KindNotFound                 Kind = "NotFound"
	KindStorage                  Kind = "Storage"
	KindBeliefAnalysisIncomplete Kind = "BeliefAnalysisIncomplete"
)

// Error is the single error type the core ever returns to a caller.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithDetail returns e with one more detail entry set, per spec.md §7's
// "optional details bag whose entries are enumerated per kind".
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func new_(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// InvalidInput builds a KindInvalidInput error with the offending field
// recorded in Details["field"] and Details["value"].
func InvalidInput(field string, value any, msg string) *Error {
	return new_(KindInvalidInput, msg).WithDetail("field", field).WithDetail("value", value)
}

// NotFound builds a KindNotFound error for the given entity kind and id.
func NotFound(entity, id string) *Error {
	return new_(KindNotFound, fmt.Sprintf("%s not found: %s", entity, id)).WithDetail("id", id)
}

// Storage wraps a backend failure as KindStorage, recording the failing
// operation in Details["operation"].
func Storage(operation string, cause error) *Error {
	e := new_(KindStorage, fmt.Sprintf("%s failed: %v", operation, cause))
	e.cause = cause
	return e.WithDetail("operation", operation)
}

// BeliefAnalysisIncomplete builds the partial-success error spec.md §4.8
// and §7 require when a memory was encoded but belief analysis did not
// complete; the memory id is still reported.
func BeliefAnalysisIncomplete(memoryID string, cause error) *Error {
	e := new_(KindBeliefAnalysisIncomplete, "belief analysis did not complete")
	e.cause = cause
	return e.WithDetail("memoryId", memoryID)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ExtractionUnavailable and EmbeddingUnavailable are internal sentinels the
// core attaches to its log entries when it absorbs a provider failure. Per
// spec.md §7 they are NEVER surfaced to a caller — the core substitutes a
// fallback instead.
var (
	ExtractionUnavailable = errors.New("extraction provider unavailable")
	EmbeddingUnavailable  = errors.New("embedding provider unavailable")
)
