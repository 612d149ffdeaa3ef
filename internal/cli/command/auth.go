package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kasbhub/kasb-go/internal/core/domain"
	"github.com/kasbhub/kasb-go/internal/core/service"
	"github.com/kasbhub/kasb-go/pkg/token"
)

// DefaultCountryCode is prepended to phone numbers given without "+".
const DefaultCountryCode = "+998"

func phoneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "phone",
			Usage: "Phone number, e.g. +998901234567 (prompted when omitted)",
		},
		&cli.StringFlag{
			Name:  "country-code",
			Value: DefaultCountryCode,
			Usage: "Country code for numbers given without a leading +",
		},
	}
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in with phone number and password",
		Flags: append(phoneFlags(),
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (prompted when omitted)",
				EnvVars: []string{"KASB_PASSWORD"},
			},
		),
		Action: login,
	}
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the current session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "local",
				Usage: "Only forget the stored session, do not notify the server",
			},
		},
		Action: logout,
	}
}

// WhoamiCommand returns the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the logged-in user",
		Action: whoami,
	}
}

// normalizePhone composes the number sent to the backend.
func normalizePhone(countryCode, phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return domain.ComposePhone("", phone)
	}
	return domain.ComposePhone(countryCode, phone)
}

func login(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	p := env.Prompter()

	phone := c.String("phone")
	if phone == "" {
		if phone, err = p.Required("Phone"); err != nil {
			return err
		}
	}
	password := c.String("password")
	if password == "" {
		if password, err = p.Secret("Password"); err != nil {
			return err
		}
	}

	prog := newProgress(env)
	attempt, err := env.NewAttempt(c.Context, prog.observe)
	if err != nil {
		return err
	}
	defer attempt.Reset()

	attempt.SetPhone(normalizePhone(c.String("country-code"), phone))
	attempt.SetPassword(password)
	err = prog.run("Logging in", func() error {
		return attempt.SubmitLogin(c.Context)
	})
	if err != nil {
		return err
	}

	sess := attempt.Snapshot().Session
	fmt.Fprintf(env.Out, "Logged in as %s\n", displayName(sess.User))
	return nil
}

func logout(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	sessions, err := env.Sessions(c.Context)
	if err != nil {
		return err
	}

	var api service.Logouter
	if !c.Bool("local") {
		if api, err = env.API(c.Context); err != nil {
			return err
		}
	}
	if err := sessions.Logout(c.Context, api); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, "Logged out")
	return nil
}

// sessionView is the whoami output.
type sessionView struct {
	ID        int64      `json:"id"`
	Phone     string     `json:"phone"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Region    string     `json:"region,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	Telegram  string     `json:"telegram,omitempty"`
	Token     string     `json:"token" table:"wide"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func newSessionView(s *domain.Session) sessionView {
	v := sessionView{
		ID:       s.User.ID,
		Phone:    s.User.Phone,
		Name:     s.User.Name,
		Role:     s.User.Role,
		Region:   s.User.Region,
		Gender:   s.User.Gender,
		Telegram: s.User.TelegramUsername,
		Token:    token.Fingerprint(s.Token),
	}
	if s.CreatedAt > 0 {
		t := time.UnixMilli(s.CreatedAt)
		v.CreatedAt = &t
	}
	if s.ExpiresAt > 0 {
		t := time.UnixMilli(s.ExpiresAt)
		v.ExpiresAt = &t
	}
	return v
}

func whoami(c *cli.Context) error {
	env, err := envFrom(c)
	if err != nil {
		return err
	}
	sessions, err := env.Sessions(c.Context)
	if err != nil {
		return err
	}

	sess := sessions.Current()
	if sess == nil {
		return domain.ErrNotAuthenticated
	}
	return env.Print(newSessionView(sess))
}

func displayName(u domain.User) string {
	switch {
	case u.Name != "" && u.Phone != "":
		return fmt.Sprintf("%s (%s)", u.Name, u.Phone)
	case u.Name != "":
		return u.Name
	default:
		return u.Phone
	}
}

// describe returns the user-facing text of an error.
func describe(err error) string {
	var failure *service.Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		if de.Details != "" {
			return de.Message + " (" + de.Details + ")"
		}
		return de.Message
	}
	return err.Error()
}
