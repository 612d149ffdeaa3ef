package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/kasbhub/kasb-go/internal/cli/config"
	"github.com/kasbhub/kasb-go/internal/cli/connection"
	"github.com/kasbhub/kasb-go/internal/cli/output"
	"github.com/kasbhub/kasb-go/internal/cli/prompt"
	"github.com/kasbhub/kasb-go/internal/core/service"
	"github.com/kasbhub/kasb-go/internal/infra/tlsroots"
	"github.com/kasbhub/kasb-go/internal/storage"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
	"github.com/kasbhub/kasb-go/internal/telemetry/metric"
)

const envKey = "env"

// Env carries the dependencies of one CLI invocation, or of a whole shell
// session. Storage is opened lazily so commands such as version and
// config path never touch the session directory.
type Env struct {
	Config     *config.CLIConfig
	ConfigPath string
	Log        logger.Logger
	Metrics    *metric.Registry
	Conn       *connection.Manager

	Format output.Format
	Wide   bool

	In  *bufio.Reader
	Out io.Writer
	Err io.Writer

	// Interactive enables the spinner; set when Out is a terminal.
	Interactive bool

	mu       sync.Mutex
	kv       storage.KV
	sessions *service.SessionStore
	api      *service.AuthAPI
	inShell  bool
	reloaded *config.CLIConfig
}

// setup is the App.Before hook. Inside a shell the Env already exists and
// only the per-line output flags are applied.
func setup(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	c.Context = logger.WithCommand(c.Context, c.Args().First())

	if env, ok := c.App.Metadata[envKey].(*Env); ok {
		return env.applyOutput(flags)
	}

	cfg, err := config.Load(flags.Config, flags.overrides())
	if err != nil {
		return err
	}

	errOut := c.App.ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: errOut,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	out := c.App.Writer
	if out == nil {
		out = os.Stdout
	}
	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}

	env := &Env{
		Config:      cfg,
		ConfigPath:  flags.Config,
		Log:         log,
		Metrics:     metric.NewRegistry(),
		In:          bufio.NewReader(in),
		Out:         out,
		Err:         errOut,
		Interactive: isTerminal(out),
	}
	if env.ConfigPath == "" {
		env.ConfigPath = config.DefaultConfigPath()
	}
	if err := env.applyOutput(flags); err != nil {
		return err
	}
	opts, err := env.clientOptions()
	if err != nil {
		return err
	}
	env.Conn = connection.NewManager(cfg.API.BaseURL, opts...)

	c.App.Metadata[envKey] = env
	onShutdown(c, "session store", func(context.Context) error { return env.Close() })
	return nil
}

// teardown is the App.After hook.
func teardown(c *cli.Context) error {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok || env.InShell() {
		return nil
	}
	delete(c.App.Metadata, envKey)
	return env.Close()
}

func (e *Env) applyOutput(flags *GlobalFlags) error {
	value := flags.Output
	if value == "" {
		value = e.Config.Output
	}
	format, err := output.ParseFormat(value)
	if err != nil {
		return err
	}
	e.Format = format
	e.Wide = flags.Wide
	return nil
}

// clientOptions builds the request client options from the config. The
// token source and 401 hook read the session store lazily.
func (e *Env) clientOptions() ([]connection.Option, error) {
	api := e.Config.API
	tlsConfig, err := tlsroots.ClientConfig(api.CAFile)
	if err != nil {
		return nil, fmt.Errorf("api.ca_file: %w", err)
	}
	return []connection.Option{
		connection.WithTLSConfig(tlsConfig),
		connection.WithRetryPolicy(connection.RetryPolicy{
			MaxAttempts: api.MaxAttempts,
			BaseDelay:   api.BaseDelay,
		}),
		connection.WithAttemptTimeout(api.Timeout),
		connection.WithRateLimit(api.RateLimit),
		connection.WithLogger(e.Log),
		connection.WithMetrics(e.Metrics),
		connection.WithTokenSource(connection.TokenFunc(e.token)),
		connection.WithUnauthorizedHandler(e.unauthorized),
	}, nil
}

func (e *Env) token() string {
	e.mu.Lock()
	sessions := e.sessions
	e.mu.Unlock()
	if sessions == nil {
		return ""
	}
	return sessions.Token()
}

func (e *Env) unauthorized(ctx context.Context) {
	e.mu.Lock()
	sessions := e.sessions
	e.mu.Unlock()
	if sessions != nil {
		sessions.HandleUnauthorized(ctx)
	}
}

// Sessions opens the session store on first use and loads the persisted
// session.
func (e *Env) Sessions(ctx context.Context) (*service.SessionStore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions != nil {
		return e.sessions, nil
	}

	kv, err := e.openKV(ctx)
	if err != nil {
		return nil, err
	}
	sessions := service.NewSessionStore(kv, e.Log)
	if err := sessions.Init(ctx); err != nil {
		kv.Close()
		return nil, err
	}

	e.kv = kv
	e.sessions = sessions
	return sessions, nil
}

func (e *Env) openKV(ctx context.Context) (storage.KV, error) {
	engine, err := storage.NewBadgerEngine(storage.DefaultKVConfig(e.Config.Session.Dir), e.Log)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	engine.RegisterMetrics(e.Metrics.Prometheus())

	seal, err := e.sealConfig()
	if err != nil {
		engine.Close()
		return nil, err
	}
	if !seal.Enabled() {
		return engine, nil
	}

	sealed, err := storage.NewSealedKV(ctx, engine, seal)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return sealed, nil
}

func (e *Env) sealConfig() (storage.SealConfig, error) {
	s := e.Config.Session
	var seal storage.SealConfig
	if s.Passphrase != "" {
		seal.Passphrase = []byte(s.Passphrase)
		return seal, nil
	}
	if s.EncryptionKey != "" {
		key, err := s.Key()
		if err != nil {
			return seal, err
		}
		seal.Key = key
	}
	return seal, nil
}

// API returns the auth API bound to the shared client. It opens the
// session store first so requests carry the stored token.
func (e *Env) API(ctx context.Context) (*service.AuthAPI, error) {
	if _, err := e.Sessions(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.api == nil {
		api := e.Config.API
		e.api = service.NewAuthAPI(e.Conn.Client(), service.Paths{
			OTPRequest:    api.OTPRequestPath,
			OTPVerify:     api.OTPVerifyPath,
			TelegramCheck: api.TelegramCheckPath,
		})
	}
	return e.api, nil
}

// NewAttempt creates a login / registration dialog wired to the API and
// the session store.
func (e *Env) NewAttempt(ctx context.Context, observer func(service.Snapshot)) (*service.Attempt, error) {
	api, err := e.API(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := e.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	opts := []service.AttemptOption{
		service.WithAttemptLogger(e.Log),
		service.WithObserver(observer),
	}
	if e.Config.API.TelegramCheckPath != "" {
		opts = append(opts, service.WithTelegramChecker(api))
	}
	return service.NewAttempt(api, sessions, opts...), nil
}

// Prompter returns a prompter on the shared input.
func (e *Env) Prompter() *prompt.Prompter {
	return prompt.New(e.In, e.Out)
}

// Print formats data in the selected output format.
func (e *Env) Print(data any) error {
	return output.NewFormatter(e.Format, e.Wide).Format(e.Out, data)
}

// Reconfigure applies a reloaded config: log level and client options.
// On error the previous config stays in effect.
func (e *Env) Reconfigure(cfg *config.CLIConfig) error {
	e.mu.Lock()
	prev := e.Config
	e.Config = cfg
	e.mu.Unlock()

	opts, err := e.clientOptions()
	if err != nil {
		e.mu.Lock()
		e.Config = prev
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.api = nil
	e.mu.Unlock()
	logger.SetLevel(cfg.Log.Level)
	e.Conn.Configure(cfg.API.BaseURL, opts...)
	return nil
}

// queueReload stores a config reloaded by the shell watcher; the shell
// applies it before the next command line.
func (e *Env) queueReload(cfg *config.CLIConfig) {
	e.mu.Lock()
	e.reloaded = cfg
	e.mu.Unlock()
}

// applyReload applies a queued config and reports whether there was one.
func (e *Env) applyReload() (bool, error) {
	e.mu.Lock()
	cfg := e.reloaded
	e.reloaded = nil
	e.mu.Unlock()

	if cfg == nil {
		return false, nil
	}
	return true, e.Reconfigure(cfg)
}

// InShell reports whether a shell owns the Env.
func (e *Env) InShell() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inShell
}

func (e *Env) setInShell(v bool) {
	e.mu.Lock()
	e.inShell = v
	e.mu.Unlock()
}

// Close releases the session store.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Conn.Disconnect()
	e.sessions = nil
	e.api = nil
	if e.kv == nil {
		return nil
	}
	err := e.kv.Close()
	e.kv = nil
	if err != nil && !errors.Is(err, storage.ErrClosed) {
		return fmt.Errorf("close session store: %w", err)
	}
	return nil
}

// envFrom returns the Env installed by setup.
func envFrom(c *cli.Context) (*Env, error) {
	env, ok := c.App.Metadata[envKey].(*Env)
	if !ok {
		return nil, errors.New("command environment not initialized")
	}
	return env, nil
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
