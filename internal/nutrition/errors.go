package nutrition

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the pipeline. Callers branch on these with errors.Is;
// the concrete types below carry the detail.
var (
	ErrInvalidInput        = errors.New("invalid input")
	// ErrMissingAPIKey is a pre-flight failure: the user has no key, so no
	// request was sent. It is not an upstream error and the caller can fix it.
	ErrMissingAPIKey       = errors.New("inference api key not configured")
	ErrUpstreamUnavailable = errors.New("inference provider unavailable")
	ErrEmptyResponse       = errors.New("inference provider returned no content")
	ErrMalformedResponse   = errors.New("inference response is not valid JSON")
	ErrMissingField        = errors.New("inference response is missing a required field")
)

// InputError reports a caller-supplied value outside its allowed domain.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// UpstreamError wraps a transport failure or a non-2xx provider answer.
type UpstreamError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("inference provider returned status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("inference provider returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("inference provider unavailable: %v", e.Err)
	default:
		return ErrUpstreamUnavailable.Error()
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// MalformedError carries the JSON decoder's complaint about model output.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse.Error(), e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedResponse }

// FieldError names the first response field that violated the decode schema.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("inference response field %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool { return target == ErrMissingField }

// IsUpstream reports whether err means the provider could not give a usable answer,
// as opposed to answering with something unparseable.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrEmptyResponse)
}

// IsUnparseable reports whether the provider answered but the answer failed validation.
func IsUnparseable(err error) bool {
	return errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrMissingField)
}
