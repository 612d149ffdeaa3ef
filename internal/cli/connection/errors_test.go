package connection

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseErrorBody(t *testing.T) {
	body := []byte(`{
		"detail": "Not found.",
		"code": "user_exists",
		"non_field_errors": ["Unable to log in"],
		"phone": ["User exists"],
		"password": "too short",
		"count": 3
	}`)

	eb := ParseErrorBody(body)

	if eb.Detail != "Not found." || eb.Code != "user_exists" {
		t.Errorf("Detail/Code = %q/%q", eb.Detail, eb.Code)
	}
	if len(eb.NonFieldErrors) != 1 || eb.NonFieldErrors[0] != "Unable to log in" {
		t.Errorf("NonFieldErrors = %v", eb.NonFieldErrors)
	}
	names := eb.FieldNames()
	if len(names) != 2 || names[0] != "password" || names[1] != "phone" {
		t.Errorf("FieldNames() = %v", names)
	}
}

func TestParseErrorBody_NotJSON(t *testing.T) {
	eb := ParseErrorBody([]byte("<html>Bad Gateway</html>"))
	if eb.Text() != "" {
		t.Errorf("Text() = %q, want empty", eb.Text())
	}
}

func TestStatusMessage(t *testing.T) {
	if got := statusMessage(502, []byte("<html>")); got != "Bad Gateway" {
		t.Errorf("statusMessage() = %q", got)
	}
	if got := statusMessage(400, []byte(`{"phone":["User exists"]}`)); got != "phone: User exists" {
		t.Errorf("statusMessage() = %q", got)
	}
}

func TestRequestError_Helpers(t *testing.T) {
	rejected := &RequestError{Kind: KindRejected, Method: "POST", Path: "/auth/login/", Status: 400, Message: "bad"}
	wrapped := fmt.Errorf("login: %w", rejected)

	if !IsRejected(wrapped) || IsRetryable(wrapped) || IsUnavailable(wrapped) {
		t.Error("wrapped 400 misclassified")
	}
	if StatusOf(wrapped) != 400 {
		t.Errorf("StatusOf() = %d", StatusOf(wrapped))
	}
	if rejected.Error() != "POST /auth/login/: status 400: bad" {
		t.Errorf("Error() = %q", rejected.Error())
	}

	cause := errors.New("connection refused")
	network := &RequestError{Kind: KindNetwork, Method: "GET", Path: "/", Message: cause.Error(), Cause: cause}
	if !errors.Is(network, cause) {
		t.Error("Unwrap should expose the cause")
	}
	if IsRejected(errors.New("plain")) || StatusOf(nil) != 0 {
		t.Error("plain errors are not request errors")
	}
}
