package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kasbhub/kasb-go/internal/cli/prompt"
	"github.com/kasbhub/kasb-go/internal/core/domain"
	"github.com/kasbhub/kasb-go/internal/core/service"
)

// RegisterCommand returns the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account: phone, code, telegram, profile",
		Description: "Walks through the registration steps. Values given as flags are used\n" +
			"for the first try; anything missing or rejected is asked for.\n" +
			"At the code prompt, enter r to request a new code.",
		Flags: append(phoneFlags(),
			&cli.StringFlag{Name: "telegram", Usage: "Telegram username, e.g. @aziz"},
			&cli.StringFlag{Name: "name", Usage: "Full name"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", EnvVars: []string{"KASB_PASSWORD"}},
			&cli.StringFlag{Name: "gender", Usage: "Gender: " + strings.Join(domain.Genders, ", ")},
			&cli.StringFlag{Name: "region", Usage: "Region code, e.g. tashkent_city"},
			&cli.StringFlag{Name: "role", Value: domain.RoleClient, Usage: "Account role: client or provider"},
		),
		Action: register,
	}
}

// registerInput holds flag values; each is used once and then asked for.
type registerInput struct {
	countryCode string
	phone       string
	telegram    string
	name        string
	password    string
	gender      string
	region      string
	role        string
}

type wizard struct {
	env     *Env
	attempt *service.Attempt
	prompt  *prompt.Prompter
	prog    *progress
	in      registerInput
	lastErr error
}

func register(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}

	prog := newProgress(env)
	attempt, err := env.NewAttempt(c.Context, prog.observe)
	if err != nil {
		return err
	}
	defer attempt.Reset()

	if err := attempt.SwitchToRegister(); err != nil {
		return err
	}

	w := &wizard{
		env:     env,
		attempt: attempt,
		prompt:  env.Prompter(),
		prog:    prog,
		in: registerInput{
			countryCode: c.String("country-code"),
			phone:       c.String("phone"),
			telegram:    c.String("telegram"),
			name:        c.String("name"),
			password:    c.String("password"),
			gender:      c.String("gender"),
			region:      c.String("region"),
			role:        c.String("role"),
		},
	}
	return w.run(c.Context)
}

// run drives the dialog until it closes. Rejected input is reported and
// asked for again; running out of input returns the last rejection.
func (w *wizard) run(ctx context.Context) error {
	for {
		var err error
		switch step := w.attempt.Step(); step {
		case domain.StepPhone:
			err = w.phone(ctx)
		case domain.StepOTP:
			err = w.otp(ctx)
		case domain.StepTelegram:
			err = w.telegram(ctx)
		case domain.StepProfile:
			err = w.profile(ctx)
		case domain.StepWelcome:
			name := w.attempt.Snapshot().Name
			fmt.Fprintf(w.env.Out, "Welcome to Kasb, %s!\n", name)
			err = w.attempt.Acknowledge()
		case domain.StepWelcomeNext:
			if s := w.attempt.Snapshot().Session; s != nil {
				fmt.Fprintf(w.env.Out, "Your account is ready. Logged in as %s\n", displayName(s.User))
			}
			err = w.attempt.Acknowledge()
		case domain.StepClosed:
			return nil
		default:
			return domain.ErrWrongStep.WithDetails(step.String())
		}

		switch {
		case err == nil:
			w.lastErr = nil
		case errors.Is(err, prompt.ErrNoInput):
			if w.lastErr != nil {
				return w.lastErr
			}
			return fmt.Errorf("registration aborted: %w", err)
		case recoverable(err):
			w.lastErr = err
			fmt.Fprintf(w.env.Out, "  %s\n", describe(err))
		default:
			return err
		}
	}
}

// recoverable reports whether the user can fix err by answering again.
func recoverable(err error) bool {
	var failure *service.Failure
	if errors.As(err, &failure) {
		return true
	}
	if _, ok := domain.AsFieldError(err); ok {
		return true
	}
	return errors.Is(err, domain.ErrCooldownActive)
}

// take returns the preset value once, then asks.
func take(preset *string, ask func() (string, error)) (string, error) {
	if v := *preset; v != "" {
		*preset = ""
		return v, nil
	}
	return ask()
}

func (w *wizard) phone(ctx context.Context) error {
	phone, err := take(&w.in.phone, func() (string, error) {
		return w.prompt.Required("Phone")
	})
	if err != nil {
		return err
	}

	w.attempt.SetPhone(normalizePhone(w.in.countryCode, phone))
	return w.prog.run("Sending code", func() error {
		return w.attempt.SubmitPhone(ctx)
	})
}

func (w *wizard) otp(ctx context.Context) error {
	phone := w.attempt.Snapshot().Phone
	code, err := w.prompt.Required(fmt.Sprintf("Code sent to %s (r to resend)", phone))
	if err != nil {
		return err
	}

	if strings.EqualFold(code, "r") || strings.EqualFold(code, "resend") {
		err := w.prog.run("Sending a new code", func() error {
			return w.attempt.ResendOTP(ctx)
		})
		if err == nil {
			fmt.Fprintln(w.env.Out, "  a new code was sent")
		}
		return err
	}

	for i := 0; i < service.OTPLength; i++ {
		w.attempt.SetOTPCell(i, "")
	}
	w.attempt.PasteOTP(0, code)
	return w.prog.run("Verifying code", func() error {
		return w.attempt.SubmitOTP(ctx)
	})
}

func (w *wizard) telegram(ctx context.Context) error {
	handle, err := take(&w.in.telegram, func() (string, error) {
		return w.prompt.Required("Telegram username")
	})
	if err != nil {
		return err
	}

	w.attempt.SetTelegram(handle)
	return w.prog.run("Checking telegram username", func() error {
		return w.attempt.SubmitTelegram(ctx)
	})
}

func (w *wizard) profile(ctx context.Context) error {
	name, err := take(&w.in.name, func() (string, error) {
		return w.prompt.Required("Full name")
	})
	if err != nil {
		return err
	}

	password, confirm := w.in.password, w.in.password
	w.in.password = ""
	if password == "" {
		if password, err = w.prompt.Secret("Password"); err != nil {
			return err
		}
		if confirm, err = w.prompt.Secret("Repeat password"); err != nil {
			return err
		}
	}

	gender, err := take(&w.in.gender, func() (string, error) {
		return w.prompt.Choose("Gender", domain.Genders)
	})
	if err != nil {
		return err
	}
	region, err := take(&w.in.region, func() (string, error) {
		return w.prompt.Choose("Region", domain.Regions)
	})
	if err != nil {
		return err
	}
	role, err := take(&w.in.role, func() (string, error) {
		return w.prompt.Choose("Role", []string{domain.RoleClient, domain.RoleProvider})
	})
	if err != nil {
		return err
	}

	w.attempt.SetName(name)
	w.attempt.SetPassword(password)
	w.attempt.SetConfirmPassword(confirm)
	w.attempt.SetGender(gender)
	w.attempt.SetRegion(region)
	w.attempt.SetRole(role)
	return w.prog.run("Creating account", func() error {
		return w.attempt.SubmitProfile(ctx)
	})
}
