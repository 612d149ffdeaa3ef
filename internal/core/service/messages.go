package service

import (
	"errors"
	"strings"

	"github.com/kasbhub/kasb-go/internal/cli/connection"
	"github.com/kasbhub/kasb-go/internal/core/domain"
)

// Failure is a failed action as shown to the user. Err keeps the
// underlying request or domain error for errors.Is / errors.As.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Known backend wordings. The backend sends no stable code for these two
// cases, so they are matched on the error text; keep every such match in
// this table.
var knownMessages = []struct {
	substr  string
	message string
}{
	{"User exists", "This phone number is already registered. Log in instead."},
	{"chat_id", "Open the Kasb Telegram bot and press Start, then request the code again."},
}

// Generic messages per step for rejected requests without usable text.
var rejectedFallback = map[domain.Step]string{
	domain.StepLogin:    domain.ErrInvalidCredentials.Message,
	domain.StepPhone:    "Could not send the code. Check the number and try again.",
	domain.StepOTP:      "Invalid or expired code.",
	domain.StepTelegram: "Telegram username was not accepted.",
	domain.StepProfile:  "Registration failed. Check the form and try again.",
}

const genericMessage = "Something went wrong. Try again."

// MessageFor maps a failed call at step to a user-facing message:
// known backend wordings first, then detail / non_field_errors, then the
// first field error (fields in sorted order), then a fallback per kind.
func MessageFor(step domain.Step, err error) string {
	if err == nil {
		return ""
	}

	var de *domain.DomainError
	var re *connection.RequestError
	if !errors.As(err, &re) {
		if errors.As(err, &de) {
			return de.Message
		}
		return genericMessage
	}

	body := re.ErrorBody()
	text := body.Text()
	for _, km := range knownMessages {
		if strings.Contains(text, km.substr) {
			return km.message
		}
	}

	if re.Kind == connection.KindRejected {
		if body.Detail != "" {
			return body.Detail
		}
		if len(body.NonFieldErrors) > 0 {
			return body.NonFieldErrors[0]
		}
		if names := body.FieldNames(); len(names) > 0 {
			return body.Fields[names[0]][0]
		}
		if body.Message != "" {
			return body.Message
		}
		if msg, ok := rejectedFallback[step]; ok {
			return msg
		}
		return genericMessage
	}

	return domain.ErrServiceUnavailable.Message
}

// fieldErrorsFrom returns the first message per field of a rejected
// request's validation dictionary.
func fieldErrorsFrom(err error) map[string]string {
	var re *connection.RequestError
	if !errors.As(err, &re) || re.Kind != connection.KindRejected {
		return nil
	}

	body := re.ErrorBody()
	if len(body.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(body.Fields))
	for name, msgs := range body.Fields {
		out[name] = msgs[0]
	}
	return out
}
