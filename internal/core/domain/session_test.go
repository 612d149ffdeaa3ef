package domain

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	if got := TokenExpiry(signedToken(t, exp)); got != exp.UnixMilli() {
		t.Errorf("TokenExpiry(jwt) = %d, want %d", got, exp.UnixMilli())
	}
	if got := TokenExpiry("9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"); got != 0 {
		t.Errorf("TokenExpiry(opaque) = %d, want 0", got)
	}
	if got := TokenExpiry("a.b.c"); got != 0 {
		t.Errorf("TokenExpiry(garbage) = %d, want 0", got)
	}
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()

	live := NewSession(signedToken(t, now.Add(time.Hour)), User{ID: 1}, now)
	if live.IsExpired(now) {
		t.Error("session with future exp should be live")
	}

	dead := NewSession(signedToken(t, now.Add(-time.Hour)), User{ID: 1}, now)
	if !dead.IsExpired(now) {
		t.Error("session with past exp should be expired")
	}

	opaque := NewSession("opaque-token", User{ID: 1}, now)
	if opaque.IsExpired(now.Add(24 * 365 * time.Hour)) {
		t.Error("opaque tokens never expire locally")
	}

	var nilSession *Session
	if nilSession.IsExpired(now) {
		t.Error("nil session is not expired")
	}
}
