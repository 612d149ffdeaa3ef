package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kasbhub/kasb-go/internal/cli/connection"
	"github.com/kasbhub/kasb-go/internal/core/domain"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc, opts ...connection.Option) *AuthAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]connection.Option{
		connection.WithRetryPolicy(connection.RetryPolicy{MaxAttempts: 1}),
		connection.WithLogger(logger.Nop()),
	}, opts...)
	paths := DefaultPaths()
	paths.TelegramCheck = "/auth/telegram/check/"
	return NewAuthAPI(connection.NewClient(srv.URL, opts...), paths)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewAuthAPI_FillsDefaults(t *testing.T) {
	api := NewAuthAPI(nil, Paths{Login: "/v2/login/"})

	want := DefaultPaths()
	want.Login = "/v2/login/"
	if api.paths != want {
		t.Errorf("paths = %+v", api.paths)
	}
}

func TestAuthAPI_Login(t *testing.T) {
	var (
		mu  sync.Mutex
		got LoginRequest
	)
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultPaths().Login || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		mu.Lock()
		json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"id": 5, "phone": testPhone, "role": "client"},
		})
	})

	res, err := api.Login(context.Background(), LoginRequest{Phone: testPhone, Password: "abc123"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token != "tok-1" || res.User.ID != 5 || res.User.Role != domain.RoleClient {
		t.Errorf("result = %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if got.Phone != testPhone || got.Password != "abc123" {
		t.Errorf("server got %+v", got)
	}
}

func TestAuthAPI_LoginUnauthorizedSkipsHook(t *testing.T) {
	var hooked atomic.Int32
	api := newTestAPI(t,
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
		},
		connection.WithTokenSource(connection.TokenFunc(func() string { return "stale" })),
		connection.WithUnauthorizedHandler(func(ctx context.Context) { hooked.Add(1) }),
	)

	_, err := api.Login(context.Background(), LoginRequest{Phone: testPhone, Password: "x1"})
	if !connection.IsRejected(err) || connection.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("error = %v", err)
	}
	if hooked.Load() != 0 {
		t.Error("login 401 must not trigger the logout hook")
	}
	if MessageFor(domain.StepLogin, err) != "Invalid credentials" {
		t.Errorf("message = %q", MessageFor(domain.StepLogin, err))
	}
}

func TestAuthAPI_LogoutUnauthorizedFiresHook(t *testing.T) {
	var hooked atomic.Int32
	api := newTestAPI(t,
		func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer live" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			w.WriteHeader(http.StatusUnauthorized)
		},
		connection.WithTokenSource(connection.TokenFunc(func() string { return "live" })),
		connection.WithUnauthorizedHandler(func(ctx context.Context) { hooked.Add(1) }),
	)

	if err := api.Logout(context.Background()); err == nil {
		t.Fatal("Logout() should fail")
	}
	if hooked.Load() != 1 {
		t.Errorf("hook fired %d times, want 1", hooked.Load())
	}
}

func TestAuthAPI_AuthenticateBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no token", `{"user":{"id":1}}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := api.Register(context.Background(), RegisterRequest{Phone: testPhone})
			if !errors.Is(err, domain.ErrUnexpectedResponse) {
				t.Errorf("error = %v, want ErrUnexpectedResponse", err)
			}
		})
	}
}

func TestAuthAPI_OTPCalls(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]string
	)
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		json.NewDecoder(r.Body).Decode(&body)
		body["path"] = r.URL.Path
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	if err := api.RequestOTP(ctx, testPhone); err != nil {
		t.Fatal(err)
	}
	if err := api.VerifyOTP(ctx, testPhone, "1234"); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("got %d requests", len(bodies))
	}
	if bodies[0]["path"] != "/auth/otp/request/" || bodies[0]["phone"] != testPhone {
		t.Errorf("request body = %v", bodies[0])
	}
	if bodies[1]["path"] != "/auth/otp/verify/" || bodies[1]["code"] != "1234" {
		t.Errorf("verify body = %v", bodies[1])
	}
}

func TestAuthAPI_LookupTelegram(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled accepts everything", func(t *testing.T) {
		api := NewAuthAPI(nil, Paths{})
		id, ok, err := api.LookupTelegram(ctx, "@anyone")
		if !ok || err != nil || id != "" {
			t.Errorf("LookupTelegram() = %q, %v, %v", id, ok, err)
		}
	})

	tests := []struct {
		name   string
		status int
		body   string
		wantID string
		want   bool
		err    bool
	}{
		{"found with numeric id", http.StatusOK, `{"telegram_id": 5012345678}`, "5012345678", true, false},
		{"found with string id", http.StatusOK, `{"id": "777"}`, "777", true, false},
		{"found without id", http.StatusOK, ``, "", true, false},
		{"found with odd body", http.StatusOK, `{"telegram_id": true}`, "", true, false},
		{"not found", http.StatusNotFound, ``, "", false, false},
		{"server error", http.StatusBadGateway, ``, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("username") != "@kasb_user" {
					t.Errorf("query = %s", r.URL.RawQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			id, ok, err := api.LookupTelegram(ctx, "@kasb_user")
			if id != tt.wantID || ok != tt.want || (err != nil) != tt.err {
				t.Errorf("LookupTelegram() = %q, %v, %v", id, ok, err)
			}
		})
	}
}

func TestRegisterRequest_OmitsUnknownTelegramID(t *testing.T) {
	raw, err := json.Marshal(RegisterRequest{Phone: "+998901234567", TelegramUsername: "@kasb_user"})
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["telegram_id"]; ok {
		t.Errorf("body = %s, telegram_id should be omitted", raw)
	}
	if fields["telegram_username"] != "@kasb_user" {
		t.Errorf("body = %s", raw)
	}
}
