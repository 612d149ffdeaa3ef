package connection

import "sync"

// Manager holds the client shared by the commands of one CLI invocation
// (or one shell session). The client is built on first use.
type Manager struct {
	mu      sync.Mutex
	baseURL string
	opts    []Option
	current *Client
}

// NewManager creates a manager that builds clients for baseURL.
func NewManager(baseURL string, opts ...Option) *Manager {
	return &Manager{baseURL: baseURL, opts: opts}
}

// Configure replaces the base URL and options; the next Client call builds
// a fresh client.
func (m *Manager) Configure(baseURL string, opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseURL = baseURL
	m.opts = opts
	m.current = nil
}

// Client returns the current client, creating it if needed.
func (m *Manager) Client() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		m.current = NewClient(m.baseURL, m.opts...)
	}
	return m.current
}

// Disconnect drops the current client.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// IsConnected returns true if a client has been built.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}
