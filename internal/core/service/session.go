package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kasbhub/kasb-go/internal/core/domain"
	"github.com/kasbhub/kasb-go/internal/storage"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
	"github.com/kasbhub/kasb-go/pkg/token"
)

// Persisted keys.
var (
	keyToken   = []byte("auth.token")
	keyUser    = []byte("auth.user")
	keyCreated = []byte("auth.created_at")
)

// Logouter notifies the backend that a token is no longer used.
type Logouter interface {
	Logout(ctx context.Context) error
}

// SessionStore holds the current session and mirrors it to a KV store.
// It is the only shared mutable state of the auth flow.
type SessionStore struct {
	mu      sync.RWMutex
	kv      storage.KV
	current *domain.Session
	log     logger.Logger
	now     func() time.Time
}

// NewSessionStore creates a store backed by kv. Call Init to load the
// persisted session.
func NewSessionStore(kv storage.KV, log logger.Logger) *SessionStore {
	if log == nil {
		log = logger.Default()
	}
	return &SessionStore{
		kv:  kv,
		log: log.Component("session"),
		now: time.Now,
	}
}

// Init hydrates the store from persisted state. Missing keys leave the
// store logged out. Unreadable or expired sessions are removed.
func (s *SessionStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil

	tok, err := s.kv.Get(ctx, keyToken)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return s.loadFailedLocked(ctx, err)
	}

	rawUser, err := s.kv.Get(ctx, keyUser)
	if errors.Is(err, storage.ErrKeyNotFound) {
		rawUser = []byte("{}")
	} else if err != nil {
		return s.loadFailedLocked(ctx, err)
	}

	var user domain.User
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return s.loadFailedLocked(ctx, domain.ErrSessionCorrupt.WithCause(err))
	}

	sess := domain.NewSession(string(tok), user, s.now())
	created, err := s.createdAtLocked(ctx)
	if err != nil {
		return s.loadFailedLocked(ctx, err)
	}
	if created > 0 {
		sess.CreatedAt = created
	}
	if sess.IsExpired(s.now()) {
		s.log.Info("persisted session expired, removing", "token", token.Fingerprint(sess.Token))
		return s.clearLocked(ctx)
	}

	s.current = sess
	s.log.Debug("session restored", "token", token.Fingerprint(sess.Token), "user_id", user.ID)
	return nil
}

// createdAtLocked reads the persisted creation time. Sessions saved
// without one report 0.
func (s *SessionStore) createdAtLocked(ctx context.Context) (int64, error) {
	raw, err := s.kv.Get(ctx, keyCreated)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, domain.ErrSessionCorrupt.WithCause(err)
	}
	return ms, nil
}

// loadFailedLocked drops undecryptable or corrupt state; anything else is
// a storage failure the caller has to see.
func (s *SessionStore) loadFailedLocked(ctx context.Context, err error) error {
	if errors.Is(err, storage.ErrDecryptionFailed) || errors.Is(err, domain.ErrSessionCorrupt) {
		s.log.Warn("persisted session unreadable, removing", "error", err)
		return s.clearLocked(ctx)
	}
	return domain.ErrStorage.WithCause(err)
}

// Save replaces the current session and persists it.
func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.Token == "" {
		return domain.ErrNotAuthenticated.WithDetails("empty token")
	}

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, keyToken, []byte(sess.Token)); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	if err := s.kv.Set(ctx, keyUser, userJSON); err != nil {
		_ = s.kv.Delete(ctx, keyToken)
		return domain.ErrStorage.WithCause(err)
	}
	created := strconv.FormatInt(sess.CreatedAt, 10)
	if err := s.kv.Set(ctx, keyCreated, []byte(created)); err != nil {
		_ = s.kv.Delete(ctx, keyToken)
		_ = s.kv.Delete(ctx, keyUser)
		return domain.ErrStorage.WithCause(err)
	}

	copied := *sess
	if s.current != nil && !token.Equal(s.current.Token, sess.Token) {
		s.log.Debug("session token replaced", "old", token.Fingerprint(s.current.Token))
	}
	s.current = &copied
	s.log.Info("session saved", "token", token.Fingerprint(sess.Token), "user_id", sess.User.ID)
	return nil
}

// Current returns a copy of the current session, or nil.
func (s *SessionStore) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Token returns the bearer token, or "" when logged out. It implements
// connection.TokenSource.
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.current.IsExpired(s.now()) {
		return ""
	}
	return s.current.Token
}

// IsAuthenticated reports whether a usable session is present.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Token() != ""
}

// Teardown forgets the session in memory and in storage.
func (s *SessionStore) Teardown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *SessionStore) clearLocked(ctx context.Context) error {
	if s.current != nil {
		s.log.Info("session cleared", "token", token.Fingerprint(s.current.Token))
	}
	s.current = nil

	var errs []error
	for _, key := range [][]byte{keyToken, keyUser, keyCreated} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return domain.ErrStorage.WithCause(err)
	}
	return nil
}

// HandleUnauthorized tears the session down after the backend rejected
// its token. It matches connection.UnauthorizedFunc.
func (s *SessionStore) HandleUnauthorized(ctx context.Context) {
	s.log.Warn("token rejected by server, logging out")
	if err := s.Teardown(ctx); err != nil {
		s.log.Error("teardown after 401 failed", "error", err)
	}
}

// Logout tells the backend (best effort) and tears the session down.
func (s *SessionStore) Logout(ctx context.Context, api Logouter) error {
	if !s.IsAuthenticated() {
		return domain.ErrNotAuthenticated
	}
	if api != nil {
		if err := api.Logout(ctx); err != nil {
			s.log.Warn("server logout failed, clearing local session anyway", "error", err)
		}
	}
	return s.Teardown(ctx)
}
