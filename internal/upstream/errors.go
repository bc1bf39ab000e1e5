package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Kind classifies a failed product API call. Handlers branch on the kind,
// never on raw status codes.
type Kind int

const (
	// KindTransport means no response reached the console at all.
	KindTransport Kind = iota
	// KindAuth covers 401/403: the session is invalid or insufficient.
	KindAuth
	// KindValidation covers other 4xx carrying a server-supplied message.
	KindValidation
	// KindServer covers 5xx and undecodable responses.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is the uniform failure shape produced by every client call.
type Error struct {
	Kind    Kind
	Status  int    // zero when no response arrived
	Message string // user-facing; verbatim from the server for validation
	cause   error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	return 0, false
}

func isKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// IsTransport reports whether no response reached the console.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsAuth reports whether the session was rejected by the product API.
func IsAuth(err error) bool { return isKind(err, KindAuth) }

// IsValidation reports whether the server rejected the submitted input.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsServer reports a 5xx-class product API failure.
func IsServer(err error) bool { return isKind(err, KindServer) }

// Message returns the user-facing message for the error, or a fallback.
func Message(err error, fallback string) string {
	var ue *Error
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}

const maxErrorBody = 64 << 10

// errorBody matches the product API error payload. The API historically
// used "message"; "error" is accepted for tooling parity.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func errorFromResponse(resp *http.Response) *Error {
	var parsed errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(data, &parsed)
	msg := parsed.Message
	if msg == "" {
		msg = parsed.Error
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if msg == "" {
			msg = "session invalid"
		}
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Message: msg}
	case resp.StatusCode >= 500:
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "product API error"}
	default:
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Kind: KindValidation, Status: resp.StatusCode, Message: msg}
	}
}
