package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// mockServer is a backend stub with per-path handlers and a call log.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []recordedCall
}

type recordedCall struct {
	Path          string
	Authorization string
	Body          map[string]any
}

func newMockServer(t *testing.T) *mockServer {
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{Path: r.URL.Path, Authorization: r.Header.Get("Authorization")}
		json.NewDecoder(r.Body).Decode(&call.Body)

		m.mu.Lock()
		m.calls = append(m.calls, call)
		handler, ok := m.handlers[r.URL.Path]
		m.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for an exact path.
func (m *mockServer) handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// callsTo returns the recorded calls to path.
func (m *mockServer) callsTo(path string) []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recordedCall
	for _, c := range m.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

func authResponse(tok string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"token": tok,
			"user": map[string]any{
				"id":    7,
				"phone": "+998901234567",
				"name":  "Aziz",
				"role":  "client",
			},
		})
	}
}

// testCLI runs the app against a mock server with an isolated home,
// config file and session directory.
type testCLI struct {
	t       *testing.T
	dir     string
	cfgPath string
	server  *mockServer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	tc := &testCLI{
		t:       t,
		dir:     dir,
		cfgPath: filepath.Join(dir, ".kasb", "cli.yaml"),
		server:  newMockServer(t),
	}
	tc.writeConfig("")
	return tc
}

// writeConfig writes the base config plus extra top-level YAML lines.
func (tc *testCLI) writeConfig(extra string) {
	tc.t.Helper()
	tc.writeAPIConfig(tc.server.URL, "", extra)
}

// writeAPIConfig writes the config with a custom base URL and extra
// lines in the api section.
func (tc *testCLI) writeAPIConfig(baseURL, apiExtra, extra string) {
	tc.t.Helper()
	content := fmt.Sprintf(`api:
  base_url: %s
  max_attempts: 1
  base_delay: 1ms
  timeout: 5s
%ssession:
  dir: %s
log:
  level: error
%s`, baseURL, apiExtra, filepath.Join(tc.dir, "session"), extra)

	if err := os.MkdirAll(filepath.Dir(tc.cfgPath), 0700); err != nil {
		tc.t.Fatal(err)
	}
	if err := os.WriteFile(tc.cfgPath, []byte(content), 0600); err != nil {
		tc.t.Fatal(err)
	}
}

// run executes one command line with input on stdin.
func (tc *testCLI) run(input string, args ...string) (string, error) {
	tc.t.Helper()
	var out, errOut bytes.Buffer

	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(input)

	argv := append([]string{AppName, "--config", tc.cfgPath}, args...)
	err := app.RunContext(context.Background(), argv)
	return out.String(), err
}

// mustRun fails the test when the command errors.
func (tc *testCLI) mustRun(input string, args ...string) string {
	tc.t.Helper()
	out, err := tc.run(input, args...)
	if err != nil {
		tc.t.Fatalf("%v: error = %v\noutput:\n%s", args, err, out)
	}
	return out
}

// login stores a session through the login command.
func (tc *testCLI) login() {
	tc.t.Helper()
	tc.server.handle("/auth/login/", authResponse("tok-1"))
	tc.mustRun("", "login", "--phone", "+998901234567", "--password", "secret1")
}
