package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed request.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota + 1
	// KindTimeout means the attempt exceeded its deadline.
	KindTimeout
	// KindServer means the backend answered 5xx.
	KindServer
	// KindRejected means the backend answered 4xx. Never retried.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RequestError is the failure of the last attempt of a request.
type RequestError struct {
	Kind     Kind
	Method   string
	Path     string
	Status   int    // 0 when no response was received
	Body     []byte // raw response body, if any
	Message  string
	Attempts int
	Cause    error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether another attempt could succeed.
func (e *RequestError) Retryable() bool {
	return e.Kind != KindRejected
}

// ErrorBody parses the backend error payload.
func (e *RequestError) ErrorBody() ErrorBody {
	return ParseErrorBody(e.Body)
}

func asRequestError(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsRetryable reports whether err is a transient request failure.
func IsRetryable(err error) bool {
	re, ok := asRequestError(err)
	return ok && re.Retryable()
}

// IsRejected reports whether the backend answered err with a 4xx.
func IsRejected(err error) bool {
	re, ok := asRequestError(err)
	return ok && re.Kind == KindRejected
}

// IsUnavailable reports whether err means the backend could not be reached
// or kept failing, as opposed to refusing the request.
func IsUnavailable(err error) bool {
	re, ok := asRequestError(err)
	return ok && re.Kind != KindRejected
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if re, ok := asRequestError(err); ok {
		return re.Status
	}
	return 0
}

// ErrorBody is the error payload returned by the backend: a top-level
// detail or message, non-field errors, an optional machine code, and a
// dictionary of field errors.
type ErrorBody struct {
	Detail         string
	Message        string
	Code           string
	NonFieldErrors []string
	Fields         map[string][]string
}

// ParseErrorBody decodes a backend error payload. Unknown shapes yield an
// empty ErrorBody.
func ParseErrorBody(body []byte) ErrorBody {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ErrorBody{}
	}

	var eb ErrorBody
	for key, value := range raw {
		switch key {
		case "detail":
			eb.Detail = firstString(value)
		case "message", "error":
			if eb.Message == "" {
				eb.Message = firstString(value)
			}
		case "code":
			eb.Code = firstString(value)
		case "non_field_errors":
			eb.NonFieldErrors = stringList(value)
		default:
			if msgs := stringList(value); len(msgs) > 0 {
				if eb.Fields == nil {
					eb.Fields = make(map[string][]string)
				}
				eb.Fields[key] = msgs
			}
		}
	}
	return eb
}

// FieldNames returns the field error keys in sorted order.
func (b ErrorBody) FieldNames() []string {
	names := make([]string, 0, len(b.Fields))
	for name := range b.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text flattens the payload into one line, used for logs and for matching
// known backend messages.
func (b ErrorBody) Text() string {
	var parts []string
	if b.Detail != "" {
		parts = append(parts, b.Detail)
	}
	if b.Message != "" {
		parts = append(parts, b.Message)
	}
	parts = append(parts, b.NonFieldErrors...)
	for _, name := range b.FieldNames() {
		parts = append(parts, name+": "+strings.Join(b.Fields[name], " "))
	}
	return strings.Join(parts, "; ")
}

func firstString(raw json.RawMessage) string {
	if list := stringList(raw); len(list) > 0 {
		return list[0]
	}
	return ""
}

func stringList(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

func statusMessage(status int, body []byte) string {
	if text := ParseErrorBody(body).Text(); text != "" {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}
