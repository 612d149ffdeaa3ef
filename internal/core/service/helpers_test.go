package service

import (
	"context"
	"sync"
	"time"

	"github.com/kasbhub/kasb-go/internal/cli/connection"
	"github.com/kasbhub/kasb-go/internal/core/domain"
)

// fakeScheduler records timers; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	d       time.Duration
	fn      func()
	every   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *fakeScheduler) add(d time.Duration, fn func(), every bool) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, d: d, fn: fn, every: every}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Timer { return s.add(d, fn, false) }

func (s *fakeScheduler) Every(d time.Duration, fn func()) Timer { return s.add(d, fn, true) }

func (s *fakeScheduler) active(every bool) []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && t.every == every {
			out = append(out, t)
		}
	}
	return out
}

// fireDebounce runs every pending one-shot timer and returns how many ran.
func (s *fakeScheduler) fireDebounce() int {
	timers := s.active(false)
	for _, t := range timers {
		s.mu.Lock()
		t.stopped = true
		s.mu.Unlock()
		t.fn()
	}
	return len(timers)
}

// tick runs every active periodic timer n times.
func (s *fakeScheduler) tick(n int) {
	for i := 0; i < n; i++ {
		for _, t := range s.active(true) {
			t.fn()
		}
	}
}

// fakeAPI records calls; hooks run inside the call to simulate events
// while a request is in flight.
type fakeAPI struct {
	mu sync.Mutex

	loginRes    *AuthResult
	loginErr    error
	requestErr  error
	verifyErr   error
	registerRes *AuthResult
	registerErr error

	logins    []LoginRequest
	requests  []string
	verifies  []string
	registers []RegisterRequest

	onCall func(op string)
}

func (f *fakeAPI) hook(op string) {
	f.mu.Lock()
	fn := f.onCall
	f.mu.Unlock()
	if fn != nil {
		fn(op)
	}
}

func (f *fakeAPI) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	f.hook("login")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, req)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginRes, nil
}

func (f *fakeAPI) RequestOTP(ctx context.Context, phone string) error {
	f.hook("request")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, phone)
	return f.requestErr
}

func (f *fakeAPI) VerifyOTP(ctx context.Context, phone, code string) error {
	f.hook("verify")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies = append(f.verifies, code)
	return f.verifyErr
}

func (f *fakeAPI) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	f.hook("register")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers = append(f.registers, req)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return f.registerRes, nil
}

func (f *fakeAPI) verifyCodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.verifies...)
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []*domain.Session
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, sess *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, sess)
	return nil
}

type fakeTelegram struct {
	id     string
	exists bool
	err    error
	asked  []string
}

func (f *fakeTelegram) LookupTelegram(ctx context.Context, username string) (string, bool, error) {
	f.asked = append(f.asked, username)
	if !f.exists {
		return "", false, f.err
	}
	return f.id, true, f.err
}

func rejected(status int, body string) error {
	return &connection.RequestError{
		Kind:    connection.KindRejected,
		Method:  "POST",
		Path:    "/auth/",
		Status:  status,
		Body:    []byte(body),
		Message: "rejected",
	}
}

func unavailable() error {
	return &connection.RequestError{
		Kind:     connection.KindServer,
		Method:   "POST",
		Path:     "/auth/",
		Status:   503,
		Message:  "Service Unavailable",
		Attempts: 3,
	}
}
