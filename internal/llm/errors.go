package llm

import (
	"errors"
	"fmt"
)

// Kind is a stable error classification code, surfaced to callers so they
// can branch on failure category without string matching.
type Kind string

const (
	KindAPIError     Kind = "LLM_API_ERROR"
	KindTimeout      Kind = "TIMEOUT_ERROR"
	KindNetwork      Kind = "NETWORK_ERROR"
	KindEmptyBody    Kind = "NULL_RESPONSE_BODY"
	KindStreamCutoff Kind = "STREAM_PREMATURE_END"
	KindAborted      Kind = "ABORT_ERR"
)

// Error is the stable, kind-tagged error type returned by the LLM client.
type Error struct {
	Kind       Kind
	StatusCode int    // non-zero for KindAPIError
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, llm.ErrAborted) style matching on Kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// ErrAborted is a sentinel used with errors.Is to detect cancellation.
var ErrAborted = &Error{Kind: KindAborted}

func newAPIError(status int, message string) *Error {
	return &Error{Kind: KindAPIError, StatusCode: status, Message: message}
}

func newTimeoutError(message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Cause: cause}
}

func newNetworkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "request failed", Cause: cause}
}

func newEmptyBodyError() *Error {
	return &Error{Kind: KindEmptyBody, Message: "response stream produced no text"}
}

func newAbortedError(reason string) *Error {
	return &Error{Kind: KindAborted, Message: reason}
}
