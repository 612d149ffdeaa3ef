// Package domain defines the core domain models for kasb.
package domain

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account roles accepted by the register endpoint.
const (
	RoleClient   = "client"
	RoleProvider = "provider"
)

// User is the profile snapshot the backend returns with a token.
type User struct {
	ID               int64  `json:"id"`
	Phone            string `json:"phone"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	Region           string `json:"region,omitempty"`
	Gender           string `json:"gender,omitempty"`
	TelegramID       string `json:"telegram_id,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
}

// Session is an authenticated identity: the bearer token and the user it
// belongs to.
type Session struct {
	// Token is the opaque bearer credential.
	Token string `json:"token"`

	// User is owned by the session and replaced on every login.
	User User `json:"user"`

	// CreatedAt is the local creation timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is taken from the token's exp claim when the token is a JWT
	// (Unix milliseconds, 0 = unknown).
	ExpiresAt int64 `json:"expires_at"`
}

// NewSession builds a Session for a freshly issued token.
func NewSession(token string, user User, now time.Time) *Session {
	return &Session{
		Token:     token,
		User:      user,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: TokenExpiry(token),
	}
}

// IsExpired reports whether the token is known to be past its expiry.
// Tokens without an exp claim never expire locally; the server decides.
func (s *Session) IsExpired(now time.Time) bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() >= s.ExpiresAt
}

// TokenExpiry returns the exp claim of a JWT in Unix milliseconds, or 0 when
// the token is not a JWT or carries no exp.
//
// The signature is not verified: the client never trusts claims for access
// decisions, it only uses exp to drop sessions that are certainly dead.
func TokenExpiry(token string) int64 {
	if strings.Count(token, ".") != 2 {
		return 0
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.UnixMilli()
}
