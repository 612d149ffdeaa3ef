package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/kasbhub/kasb-go/internal/cli/connection"
	"github.com/kasbhub/kasb-go/internal/core/domain"
)

// Sender sends a request through the resilient client.
type Sender interface {
	Send(ctx context.Context, req *connection.Request) (*connection.Response, error)
}

// Paths are the backend endpoints used by AuthAPI.
type Paths struct {
	Login         string
	OTPRequest    string
	OTPVerify     string
	Register      string
	Logout        string
	TelegramCheck string // empty disables the existence check
}

// DefaultPaths returns the standard endpoint layout.
func DefaultPaths() Paths {
	return Paths{
		Login:      "/auth/login/",
		OTPRequest: "/auth/otp/request/",
		OTPVerify:  "/auth/otp/verify/",
		Register:   "/auth/register/",
		Logout:     "/auth/logout/",
	}
}

// AuthAPI issues the auth calls.
type AuthAPI struct {
	client Sender
	paths  Paths
}

// NewAuthAPI creates an AuthAPI. Empty paths fall back to DefaultPaths,
// except TelegramCheck which stays disabled.
func NewAuthAPI(client Sender, paths Paths) *AuthAPI {
	def := DefaultPaths()
	fill := func(p *string, d string) {
		if *p == "" {
			*p = d
		}
	}
	fill(&paths.Login, def.Login)
	fill(&paths.OTPRequest, def.OTPRequest)
	fill(&paths.OTPVerify, def.OTPVerify)
	fill(&paths.Register, def.Register)
	fill(&paths.Logout, def.Logout)

	return &AuthAPI{client: client, paths: paths}
}

// ============================================================================
// Request / Response types
// ============================================================================

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// RegisterRequest is the body of the register call.
type RegisterRequest struct {
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	Region           string `json:"region"`
	Gender           string `json:"gender"`
	TelegramID       string `json:"telegram_id,omitempty"`
	TelegramUsername string `json:"telegram_username"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type otpRequest struct {
	Phone string `json:"phone"`
}

type otpVerify struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// telegramCheck is the answer of the telegram check. Backends report the
// id as a number or a string, under either key.
type telegramCheck struct {
	TelegramID json.Number `json:"telegram_id"`
	ID         json.Number `json:"id"`
}

func (c telegramCheck) id() string {
	if c.TelegramID != "" {
		return c.TelegramID.String()
	}
	return c.ID.String()
}

// ============================================================================
// Calls
// ============================================================================

// Login exchanges phone and password for a token. A 401 here means wrong
// credentials, so it does not trigger the global logout hook.
func (a *AuthAPI) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	return a.authenticate(ctx, &connection.Request{
		Method:               http.MethodPost,
		Path:                 a.paths.Login,
		Body:                 req,
		SkipUnauthorizedHook: true,
	})
}

// RequestOTP asks the backend to send a verification code to phone.
func (a *AuthAPI) RequestOTP(ctx context.Context, phone string) error {
	_, err := a.client.Send(ctx, &connection.Request{
		Method: http.MethodPost,
		Path:   a.paths.OTPRequest,
		Body:   otpRequest{Phone: phone},
	})
	return err
}

// VerifyOTP checks the code sent to phone.
func (a *AuthAPI) VerifyOTP(ctx context.Context, phone, code string) error {
	_, err := a.client.Send(ctx, &connection.Request{
		Method: http.MethodPost,
		Path:   a.paths.OTPVerify,
		Body:   otpVerify{Phone: phone, Code: code},
	})
	return err
}

// Register creates the account and returns its first token.
func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	return a.authenticate(ctx, &connection.Request{
		Method:               http.MethodPost,
		Path:                 a.paths.Register,
		Body:                 req,
		SkipUnauthorizedHook: true,
	})
}

// Logout invalidates the current token on the server.
func (a *AuthAPI) Logout(ctx context.Context) error {
	_, err := a.client.Send(ctx, &connection.Request{
		Method: http.MethodPost,
		Path:   a.paths.Logout,
	})
	return err
}

// LookupTelegram reports whether the backend knows the telegram username
// and, when the answer carries it, the account's telegram id. With the
// check disabled every username is accepted without an id.
func (a *AuthAPI) LookupTelegram(ctx context.Context, username string) (string, bool, error) {
	if a.paths.TelegramCheck == "" {
		return "", true, nil
	}

	resp, err := a.client.Send(ctx, &connection.Request{
		Method: http.MethodGet,
		Path:   a.paths.TelegramCheck,
		Params: url.Values{"username": {username}},
	})
	if connection.StatusOf(err) == http.StatusNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	// The id is optional; a body without one still confirms the username.
	var body telegramCheck
	if err := resp.Decode(&body); err != nil {
		return "", true, nil
	}
	return body.id(), true, nil
}

func (a *AuthAPI) authenticate(ctx context.Context, req *connection.Request) (*AuthResult, error) {
	resp, err := a.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	var res AuthResult
	if err := resp.Decode(&res); err != nil {
		return nil, domain.ErrUnexpectedResponse.WithCause(err)
	}
	if res.Token == "" {
		return nil, domain.ErrUnexpectedResponse.WithDetails("response has no token")
	}
	return &res, nil
}
