package service

import (
	"context"
	"sync"
	"time"

	"github.com/kasbhub/kasb-go/internal/core/domain"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
)

// OTP entry and resend timing.
const (
	OTPLength        = 4
	OTPDebounce      = 300 * time.Millisecond
	ResendCooldown   = 60
	cooldownInterval = time.Second
)

// API is the subset of AuthAPI the dialog needs.
type API interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	RequestOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) error
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
}

// TelegramChecker verifies that a telegram username exists and returns
// its telegram id when known.
type TelegramChecker interface {
	LookupTelegram(ctx context.Context, username string) (id string, found bool, err error)
}

// SessionSaver persists the session produced by login or registration.
type SessionSaver interface {
	Save(ctx context.Context, sess *domain.Session) error
}

// Snapshot is a read-only copy of the dialog state. It never contains
// passwords.
type Snapshot struct {
	Step        domain.Step
	Phone       string
	OTP         [OTPLength]string
	Telegram    string
	Name        string
	Gender      string
	Region      string
	Role        string
	Cooldown    int
	Error       string
	FieldErrors map[string]string
	Pending     bool
	Session     *domain.Session
}

// Attempt is one run of the login / registration dialog.
//
// Actions are called from the UI goroutine; the OTP debounce and the resend
// countdown fire on timer goroutines, so all state sits behind mu. Network
// calls run without the lock, guarded by the pending flag. Reset bumps gen
// so results of calls started earlier are dropped.
type Attempt struct {
	api      API
	sessions SessionSaver
	telegram TelegramChecker
	sched    Scheduler
	log      logger.Logger
	now      func() time.Time
	observer func(Snapshot)

	mu              sync.Mutex
	step            domain.Step
	phone           string
	password        string
	confirmPassword string
	otp             [OTPLength]string
	telegramHandle  string
	telegramID      string
	name            string
	gender          string
	region          string
	role            string
	cooldown        int
	errMsg          string
	fieldErrs       map[string]string
	pending         bool
	session         *domain.Session
	gen             uint64

	debounce     Timer
	debounceSeq  uint64
	countdown    Timer
	countdownSeq uint64
}

// AttemptOption configures an Attempt.
type AttemptOption func(*Attempt)

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) AttemptOption {
	return func(a *Attempt) { a.sched = s }
}

// WithTelegramChecker enables the telegram existence check.
func WithTelegramChecker(c TelegramChecker) AttemptOption {
	return func(a *Attempt) { a.telegram = c }
}

// WithObserver registers fn to receive a snapshot after every change.
// fn runs without the attempt lock held and may call back into Attempt.
func WithObserver(fn func(Snapshot)) AttemptOption {
	return func(a *Attempt) { a.observer = fn }
}

// WithAttemptLogger sets the logger.
func WithAttemptLogger(l logger.Logger) AttemptOption {
	return func(a *Attempt) { a.log = l }
}

// NewAttempt creates a dialog at the login step.
func NewAttempt(api API, sessions SessionSaver, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		api:      api,
		sessions: sessions,
		sched:    RealScheduler{},
		log:      logger.Default(),
		now:      time.Now,
		step:     domain.StepLogin,
		role:     domain.RoleClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Component("auth_dialog")
	return a
}

// Snapshot returns the current state.
func (a *Attempt) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Step returns the current step.
func (a *Attempt) Step() domain.Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

func (a *Attempt) snapshotLocked() Snapshot {
	s := Snapshot{
		Step:     a.step,
		Phone:    a.phone,
		OTP:      a.otp,
		Telegram: a.telegramHandle,
		Name:     a.name,
		Gender:   a.gender,
		Region:   a.region,
		Role:     a.role,
		Cooldown: a.cooldown,
		Error:    a.errMsg,
		Pending:  a.pending,
	}
	if len(a.fieldErrs) > 0 {
		s.FieldErrors = make(map[string]string, len(a.fieldErrs))
		for k, v := range a.fieldErrs {
			s.FieldErrors[k] = v
		}
	}
	if a.session != nil {
		copied := *a.session
		s.Session = &copied
	}
	return s
}

func (a *Attempt) notify() {
	if a.observer == nil {
		return
	}
	a.observer(a.Snapshot())
}

// ============================================================================
// Field setters
// ============================================================================

func (a *Attempt) setField(field string, dst *string, value string) {
	a.mu.Lock()
	*dst = value
	delete(a.fieldErrs, field)
	a.mu.Unlock()
	a.notify()
}

// SetPhone sets the phone number (country code included).
func (a *Attempt) SetPhone(v string) { a.setField(domain.FieldPhone, &a.phone, v) }

// SetPassword sets the password.
func (a *Attempt) SetPassword(v string) { a.setField(domain.FieldPassword, &a.password, v) }

// SetConfirmPassword sets the password confirmation.
func (a *Attempt) SetConfirmPassword(v string) {
	a.setField(domain.FieldConfirmPassword, &a.confirmPassword, v)
}

// SetTelegram sets the telegram handle; a missing "@" is added on submit.
func (a *Attempt) SetTelegram(v string) {
	a.mu.Lock()
	a.telegramID = ""
	a.mu.Unlock()
	a.setField(domain.FieldTelegram, &a.telegramHandle, v)
}

// SetName sets the display name.
func (a *Attempt) SetName(v string) { a.setField(domain.FieldName, &a.name, v) }

// SetGender sets the gender.
func (a *Attempt) SetGender(v string) { a.setField(domain.FieldGender, &a.gender, v) }

// SetRegion sets the region.
func (a *Attempt) SetRegion(v string) { a.setField(domain.FieldRegion, &a.region, v) }

// SetRole sets the account role (client or provider).
func (a *Attempt) SetRole(v string) { a.setField(domain.FieldRole, &a.role, v) }

// ============================================================================
// Step helpers
// ============================================================================

// beginLocked checks that an action owned by step may run now.
func (a *Attempt) beginLocked(step domain.Step) error {
	switch {
	case a.step == domain.StepClosed:
		return domain.ErrAttemptClosed
	case a.pending:
		return domain.ErrBusy
	case a.step != step:
		return domain.ErrWrongStep.WithDetails("at " + a.step.String() + ", need " + step.String())
	}
	return nil
}

// invalidLocked records a local validation failure.
func (a *Attempt) invalidLocked(err error) error {
	a.errMsg = err.Error()
	if fe, ok := domain.AsFieldError(err); ok {
		a.errMsg = fe.Err.Message
		if a.fieldErrs == nil {
			a.fieldErrs = make(map[string]string)
		}
		a.fieldErrs[fe.Field] = fe.Err.Message
	}
	return err
}

// startLocked marks a call in flight and returns its generation.
func (a *Attempt) startLocked() uint64 {
	a.pending = true
	a.errMsg = ""
	a.fieldErrs = nil
	return a.gen
}

// finishLocked clears pending and reports whether the result still
// belongs to the current dialog.
func (a *Attempt) finishLocked(gen uint64) bool {
	if gen != a.gen {
		return false
	}
	a.pending = false
	return true
}

// failLocked records a failed call.
func (a *Attempt) failLocked(err error) error {
	msg := MessageFor(a.step, err)
	a.errMsg = msg
	a.fieldErrs = fieldErrorsFrom(err)
	a.log.Info("step failed", "step", a.step.String(), "error", err)
	return &Failure{Message: msg, Err: err}
}

func (a *Attempt) moveLocked(to domain.Step) error {
	from := a.step
	if err := domain.CheckTransition(from, to); err != nil {
		return err
	}
	a.step = to
	a.errMsg = ""
	a.fieldErrs = nil
	a.log.Info("step changed", "from", from.String(), "to", to.String())
	return nil
}

// locked runs fn under the lock, then notifies the observer.
func (a *Attempt) locked(fn func() error) error {
	a.mu.Lock()
	err := fn()
	a.mu.Unlock()
	a.notify()
	return err
}

// ============================================================================
// Navigation
// ============================================================================

// SwitchToRegister moves from the login form to the registration phone form.
func (a *Attempt) SwitchToRegister() error {
	return a.locked(func() error {
		if err := a.beginLocked(domain.StepLogin); err != nil {
			return err
		}
		return a.moveLocked(domain.StepPhone)
	})
}

// SwitchToLogin moves from the registration phone form back to login.
func (a *Attempt) SwitchToLogin() error {
	return a.locked(func() error {
		if err := a.beginLocked(domain.StepPhone); err != nil {
			return err
		}
		return a.moveLocked(domain.StepLogin)
	})
}

// Acknowledge advances the post-registration screens: welcome, then the
// follow-up screen, then closed.
func (a *Attempt) Acknowledge() error {
	return a.locked(func() error {
		switch a.step {
		case domain.StepWelcome:
			return a.moveLocked(domain.StepWelcomeNext)
		case domain.StepWelcomeNext:
			return a.moveLocked(domain.StepClosed)
		case domain.StepClosed:
			return domain.ErrAttemptClosed
		default:
			return domain.ErrWrongStep.WithDetails("nothing to acknowledge at " + a.step.String())
		}
	})
}

// Reset clears every field, returns to the login step and stops all
// timers. A call still in flight completes but its result is ignored.
// Calling Reset twice is the same as calling it once.
func (a *Attempt) Reset() {
	a.mu.Lock()
	a.stopDebounceLocked()
	a.stopCountdownLocked()

	a.gen++
	a.step = domain.StepLogin
	a.phone = ""
	a.password = ""
	a.confirmPassword = ""
	a.otp = [OTPLength]string{}
	a.telegramHandle = ""
	a.telegramID = ""
	a.name = ""
	a.gender = ""
	a.region = ""
	a.role = domain.RoleClient
	a.cooldown = 0
	a.errMsg = ""
	a.fieldErrs = nil
	a.pending = false
	a.session = nil
	a.mu.Unlock()

	a.notify()
}

// ============================================================================
// Login
// ============================================================================

// SubmitLogin logs in with phone and password. On success the session is
// saved and the dialog closes.
func (a *Attempt) SubmitLogin(ctx context.Context) error {
	a.mu.Lock()
	if err := a.beginLocked(domain.StepLogin); err != nil {
		a.mu.Unlock()
		return err
	}
	if err := domain.ValidatePhone(a.phone); err != nil {
		return a.unlockNotify(a.invalidLocked(err))
	}
	if a.password == "" {
		return a.unlockNotify(a.invalidLocked(&domain.FieldError{Field: domain.FieldPassword, Err: domain.ErrInvalidPassword}))
	}
	req := LoginRequest{Phone: a.phone, Password: a.password}
	gen := a.startLocked()
	a.mu.Unlock()
	a.notify()

	res, err := a.api.Login(ctx, req)
	return a.complete(ctx, gen, err, res, domain.StepClosed)
}

// ============================================================================
// Registration: phone
// ============================================================================

// SubmitPhone requests an OTP for the phone number and starts the resend
// cooldown.
func (a *Attempt) SubmitPhone(ctx context.Context) error {
	a.mu.Lock()
	if err := a.beginLocked(domain.StepPhone); err != nil {
		a.mu.Unlock()
		return err
	}
	if err := domain.ValidatePhone(a.phone); err != nil {
		return a.unlockNotify(a.invalidLocked(err))
	}
	phone := a.phone
	gen := a.startLocked()
	a.mu.Unlock()
	a.notify()

	err := a.api.RequestOTP(ctx, phone)

	a.mu.Lock()
	if !a.finishLocked(gen) {
		a.mu.Unlock()
		return domain.ErrAttemptReset
	}
	if err != nil {
		return a.unlockNotify(a.failLocked(err))
	}
	a.otp = [OTPLength]string{}
	if err := a.moveLocked(domain.StepOTP); err != nil {
		return a.unlockNotify(err)
	}
	a.startCountdownLocked()
	return a.unlockNotify(nil)
}

// ============================================================================
// Registration: telegram
// ============================================================================

// SubmitTelegram validates the telegram handle, optionally checks that it
// exists, and moves to the profile form.
func (a *Attempt) SubmitTelegram(ctx context.Context) error {
	a.mu.Lock()
	if err := a.beginLocked(domain.StepTelegram); err != nil {
		a.mu.Unlock()
		return err
	}
	a.telegramHandle = domain.NormalizeTelegram(a.telegramHandle)
	if err := domain.ValidateTelegram(a.telegramHandle); err != nil {
		return a.unlockNotify(a.invalidLocked(err))
	}
	if a.telegram == nil {
		a.telegramID = ""
		err := a.moveLocked(domain.StepProfile)
		return a.unlockNotify(err)
	}
	handle := a.telegramHandle
	gen := a.startLocked()
	a.mu.Unlock()
	a.notify()

	id, exists, err := a.telegram.LookupTelegram(ctx, handle)

	a.mu.Lock()
	if !a.finishLocked(gen) {
		a.mu.Unlock()
		return domain.ErrAttemptReset
	}
	if err != nil {
		return a.unlockNotify(a.failLocked(err))
	}
	if !exists {
		return a.unlockNotify(a.invalidLocked(&domain.FieldError{Field: domain.FieldTelegram, Err: domain.ErrTelegramNotFound}))
	}
	a.telegramID = id
	return a.unlockNotify(a.moveLocked(domain.StepProfile))
}

// ============================================================================
// Registration: profile
// ============================================================================

// SubmitProfile validates the profile form and registers the account. On
// success the session is saved and the welcome screen follows.
func (a *Attempt) SubmitProfile(ctx context.Context) error {
	a.mu.Lock()
	if err := a.beginLocked(domain.StepProfile); err != nil {
		a.mu.Unlock()
		return err
	}
	profile := domain.Profile{
		Name:            a.name,
		Password:        a.password,
		ConfirmPassword: a.confirmPassword,
		Gender:          a.gender,
		Region:          a.region,
	}
	if err := profile.Validate(); err != nil {
		return a.unlockNotify(a.invalidLocked(err))
	}
	if err := domain.ValidateRole(a.role); err != nil {
		return a.unlockNotify(a.invalidLocked(err))
	}
	req := RegisterRequest{
		Phone:            a.phone,
		Password:         a.password,
		Name:             a.name,
		Role:             a.role,
		Region:           a.region,
		Gender:           a.gender,
		TelegramID:       a.telegramID,
		TelegramUsername: a.telegramHandle,
	}
	gen := a.startLocked()
	a.mu.Unlock()
	a.notify()

	res, err := a.api.Register(ctx, req)
	return a.complete(ctx, gen, err, res, domain.StepWelcome)
}

// complete handles the result of a call that yields a session: login and
// register. The call stays pending while the session is saved, and the
// lock is not held during Save. A Reset during Save keeps the saved
// session but drops it from this dialog.
func (a *Attempt) complete(ctx context.Context, gen uint64, err error, res *AuthResult, next domain.Step) error {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return domain.ErrAttemptReset
	}
	if err != nil {
		a.finishLocked(gen)
		return a.unlockNotify(a.failLocked(err))
	}
	sess := domain.NewSession(res.Token, res.User, a.now())
	a.mu.Unlock()

	var saveErr error
	if a.sessions != nil {
		saveErr = a.sessions.Save(ctx, sess)
	}

	a.mu.Lock()
	if !a.finishLocked(gen) {
		a.mu.Unlock()
		return domain.ErrAttemptReset
	}
	if saveErr != nil {
		return a.unlockNotify(a.failLocked(saveErr))
	}
	a.session = sess
	a.password = ""
	a.confirmPassword = ""
	return a.unlockNotify(a.moveLocked(next))
}

func (a *Attempt) unlockNotify(err error) error {
	a.mu.Unlock()
	a.notify()
	return err
}
