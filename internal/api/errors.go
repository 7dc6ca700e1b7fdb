package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies how a request failed.
type ErrorKind string

const (
	// KindHTTP is a non-success status returned by the API.
	KindHTTP ErrorKind = "http"
	// KindTransport means no response was received.
	KindTransport ErrorKind = "transport"
	// KindDecode means a response body could not be parsed.
	KindDecode ErrorKind = "decode"
)

// Error is the single error type produced by the client. Message is always
// suitable for showing to a user.
type Error struct {
	Kind      ErrorKind
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether err is an API answer with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == KindHTTP && apiErr.Status == http.StatusNotFound
}

// IsServerError reports whether err is a 5xx answer from the API.
func IsServerError(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Kind == KindHTTP && apiErr.Status >= 500 && apiErr.Status < 600
}

// AsError extracts an *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ParseError builds an *Error from a non-success response. The message comes
// from the JSON "detail" field; a JSON body without one yields "HTTP <code>",
// and a body that is not JSON at all yields the status reason phrase.
func ParseError(status int, body []byte) *Error {
	apiErr := &Error{Kind: KindHTTP, Status: status}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		apiErr.Message = statusText(status)
		return apiErr
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		apiErr.Message = fmt.Sprintf("HTTP %d", status)
		return apiErr
	}
	apiErr.Message = detailMessage(payload["detail"])
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", status)
	}
	return apiErr
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

func transportError(err error, requestID string) *Error {
	return &Error{
		Kind:      KindTransport,
		Message:   err.Error(),
		RequestID: requestID,
		Err:       err,
	}
}

func decodeError(err error) *Error {
	return &Error{
		Kind:    KindDecode,
		Message: fmt.Sprintf("invalid response: %v", err),
		Err:     err,
	}
}
