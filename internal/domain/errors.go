package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the chat pipeline so that callers can map them
// to transport status codes without inspecting messages.
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors that were not produced by this package.
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidInput
	KindUpstreamFailure
	KindStoreFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindStoreFailure:
		return "store_failure"
	default:
		return "unknown"
	}
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidImage    = errors.New("invalid image format")
	ErrTurnRejected    = errors.New("turn rejected")
)

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound reports a missing session.
func NotFound(op, sessionID string) *Error {
	return NewError(KindNotFound, op, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID))
}

// InvalidInput reports a rejected client payload.
func InvalidInput(op string, err error) *Error {
	return NewError(KindInvalidInput, op, err)
}

// UpstreamFailure reports a reasoning engine failure.
func UpstreamFailure(op string, err error) *Error {
	return NewError(KindUpstreamFailure, op, err)
}

// StoreFailure reports a persistence failure.
func StoreFailure(op string, err error) *Error {
	return NewError(KindStoreFailure, op, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Outcome maps an error returned by the turn pipeline to its outcome label.
func Outcome(err error) TurnOutcome {
	if err == nil {
		return TurnOutcomeOK
	}
	switch KindOf(err) {
	case KindNotFound:
		return TurnOutcomeNotFound
	case KindInvalidInput:
		return TurnOutcomeInvalidInput
	case KindUpstreamFailure:
		return TurnOutcomeUpstreamFailure
	default:
		return TurnOutcomeStoreFailure
	}
}
