// Package failure normalizes transport errors into a single typed failure
// that callers can match on. Every failed API call surfaces as an
// *ApiFailure; raw transport errors never escape the access layer.
package failure

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for uniform downstream handling.
type Kind string

const (
	// KindUnauthorized means the credential was missing, expired, or rejected (401).
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden means the credential is valid but lacks the required grant (403).
	KindForbidden Kind = "forbidden"
	// KindNotFound means the requested resource does not exist (404).
	KindNotFound Kind = "not_found"
	// KindValidation means the server rejected the payload (400/422),
	// usually with field-level messages.
	KindValidation Kind = "validation"
	// KindServerError means the server failed to process the request (5xx).
	KindServerError Kind = "server_error"
	// KindNetwork means no response was received at all.
	KindNetwork Kind = "network"
	// KindUnknown covers everything that fits no other bucket.
	KindUnknown Kind = "unknown"
)

// FallbackMessage is used when a failure carries no usable message of its own.
const FallbackMessage = "An unexpected error occurred"

// ErrUnauthorized supports errors.Is(err, failure.ErrUnauthorized) without
// reaching for the concrete type.
var ErrUnauthorized = errors.New("unauthorized")

// ApiFailure is the normalized form of any failed API call.
// It is constructed once and never mutated afterwards.
type ApiFailure struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	// Message is human-readable and safe to surface to the end user.
	Message string
	// Kind is the derived classification.
	Kind Kind
	// Fields holds field-level validation messages when the server
	// supplied them, keyed by field name. Passed through unmodified so
	// form-binding code can map them onto individual inputs.
	Fields map[string][]string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns the failure as a string.
func (f *ApiFailure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("api failure [%d %s]: %s", f.StatusCode, f.Kind, f.Message)
	}
	return fmt.Sprintf("api failure [%s]: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause.
func (f *ApiFailure) Unwrap() error {
	return f.Err
}

// Is reports whether this failure matches the target error.
// It supports errors.Is(err, ErrUnauthorized).
func (f *ApiFailure) Is(target error) bool {
	return target == ErrUnauthorized && f.Kind == KindUnauthorized
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

// errorBody is the error payload shape the Stockroom API returns.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// FromResponse builds an ApiFailure from an HTTP status and response body.
// The body is parsed best-effort; an unparseable body yields a failure with
// the fallback message.
func FromResponse(status int, body []byte) *ApiFailure {
	f := &ApiFailure{
		StatusCode: status,
		Kind:       KindForStatus(status),
		Message:    FallbackMessage,
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			f.Message = parsed.Message
		}
		if len(parsed.Errors) > 0 {
			f.Fields = parsed.Errors
		}
	}
	return f
}

// Network builds an ApiFailure for a call that received no response.
// The cause's message is preserved for diagnostics.
func Network(err error) *ApiFailure {
	msg := FallbackMessage
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &ApiFailure{
		Kind:    KindNetwork,
		Message: msg,
		Err:     err,
	}
}

// Classify normalizes any error into an *ApiFailure.
//
// Already-classified failures pass through unchanged, so the function is
// idempotent. Generic errors are wrapped with their message preserved and
// no status code. A nil error produces the fixed fallback failure; callers
// should not classify success paths, but an arbitrary value must never
// escape unclassified.
func Classify(err error) *ApiFailure {
	if err == nil {
		return &ApiFailure{Kind: KindUnknown, Message: FallbackMessage}
	}

	var f *ApiFailure
	if errors.As(err, &f) {
		return f
	}

	msg := err.Error()
	if msg == "" {
		msg = FallbackMessage
	}
	return &ApiFailure{
		Kind:    KindUnknown,
		Message: msg,
		Err:     err,
	}
}

// IsForbidden reports whether err classifies as a 403.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).StatusCode == http.StatusForbidden
}

// MessageFor returns the user-facing message for err, or fallback when the
// failure carries no message of its own.
func MessageFor(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := Classify(err).Message; msg != "" {
		return msg
	}
	return fallback
}

// MessageForResource is MessageFor with resource-aware 403 handling: when
// err is a forbidden failure and the caller names the protected resource,
// the templated permission message is returned regardless of what the
// server sent, so a 403 never reads as opaque technical text.
func MessageForResource(err error, resource, fallback string) string {
	if IsForbidden(err) && resource != "" {
		return ForbiddenMessage(resource)
	}
	return MessageFor(err, fallback)
}

// ForbiddenMessage returns the standard permission-denied message for a
// named resource.
func ForbiddenMessage(resource string) string {
	return fmt.Sprintf("You don't have permission to view %s. Please contact your administrator to request access.", resource)
}
