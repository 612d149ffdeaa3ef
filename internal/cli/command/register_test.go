package command

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kasbhub/kasb-go/internal/core/domain"
)

// registrationServer wires the registration endpoints; the code "1234"
// is the only one accepted.
func registrationServer(tc *testCLI) {
	tc.server.handle("/auth/otp/request/", okHandler)
	tc.server.handle("/auth/otp/verify/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		if c := tc.server.callsTo("/auth/otp/verify/"); len(c) > 0 {
			body.Code, _ = c[len(c)-1].Body["code"].(string)
		}
		if body.Code != "1234" {
			jsonResponse(w, http.StatusBadRequest, map[string]any{"detail": "Invalid code"})
			return
		}
		okHandler(w, r)
	})
	tc.server.handle("/auth/register/", authResponse("tok-new"))
}

func registerFlags(extra ...string) []string {
	args := []string{
		"register",
		"--phone", "+998901234567",
		"--telegram", "aziz",
		"--name", "Aziz",
		"--password", "secret1",
		"--gender", "male",
		"--region", "samarkand",
	}
	return append(args, extra...)
}

func TestRegister_WithFlags(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	out := tc.mustRun("1234\n", registerFlags()...)

	for _, want := range []string{
		"Code sent to +998901234567",
		"Welcome to Kasb, Aziz!",
		"Your account is ready. Logged in as Aziz (+998901234567)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	reg := tc.server.callsTo("/auth/register/")
	if len(reg) != 1 {
		t.Fatalf("register calls = %d, want 1", len(reg))
	}
	body := reg[0].Body
	if body["phone"] != "+998901234567" || body["telegram_username"] != "@aziz" ||
		body["gender"] != "male" || body["region"] != "samarkand" || body["role"] != "client" {
		t.Errorf("register body = %v", body)
	}

	whoami := tc.mustRun("", "whoami")
	if !strings.Contains(whoami, "Aziz") {
		t.Errorf("session not stored after registration:\n%s", whoami)
	}
}

func TestRegister_Prompts(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	input := strings.Join([]string{
		"90 123 45 67",
		"1234",
		"@aziz",
		"Aziz Karimov",
		"secret1",
		"secret1",
		"2",
		"samarkand",
	}, "\n") + "\n"
	out := tc.mustRun(input, "register", "--role", "provider")

	if !strings.Contains(out, "Welcome to Kasb, Aziz Karimov!") {
		t.Errorf("output:\n%s", out)
	}

	reg := tc.server.callsTo("/auth/register/")
	if len(reg) != 1 {
		t.Fatalf("register calls = %d, want 1", len(reg))
	}
	if reg[0].Body["gender"] != "female" || reg[0].Body["role"] != "provider" {
		t.Errorf("register body = %v", reg[0].Body)
	}
}

func TestRegister_WrongCodeAskedAgain(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	out := tc.mustRun("1111\n1234\n", registerFlags()...)

	if !strings.Contains(out, "Invalid code") {
		t.Errorf("rejection not shown:\n%s", out)
	}
	if n := strings.Count(out, "Code sent to"); n != 2 {
		t.Errorf("code asked %d times, want 2", n)
	}
	if n := len(tc.server.callsTo("/auth/otp/verify/")); n != 2 {
		t.Errorf("verify calls = %d, want 2", n)
	}
}

func TestRegister_ShortCodeNeverSent(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	out := tc.mustRun("12\n1234\n", registerFlags()...)

	if !strings.Contains(out, domain.ErrInvalidOTP.Message) {
		t.Errorf("validation message missing:\n%s", out)
	}
	if n := len(tc.server.callsTo("/auth/otp/verify/")); n != 1 {
		t.Errorf("verify calls = %d, want 1", n)
	}
}

func TestRegister_ResendDuringCooldown(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	out := tc.mustRun("r\n1234\n", registerFlags()...)

	if !strings.Contains(out, domain.ErrCooldownActive.Message) {
		t.Errorf("cooldown message missing:\n%s", out)
	}
	if n := len(tc.server.callsTo("/auth/otp/request/")); n != 1 {
		t.Errorf("otp requests = %d, want 1", n)
	}
}

func TestRegister_InvalidPhoneThenNoInput(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	_, err := tc.run("", "register", "--phone", "12")
	if !errors.Is(err, domain.ErrInvalidPhone) {
		t.Fatalf("error = %v, want ErrInvalidPhone", err)
	}
	if n := len(tc.server.callsTo("/auth/otp/request/")); n != 0 {
		t.Errorf("otp requests = %d, want 0", n)
	}
}

func TestRegister_NoInput(t *testing.T) {
	tc := newTestCLI(t)

	_, err := tc.run("", "register")
	if err == nil || !strings.Contains(err.Error(), "registration aborted") {
		t.Errorf("error = %v", err)
	}
}

func TestRegister_UserExists(t *testing.T) {
	tc := newTestCLI(t)
	tc.server.handle("/auth/otp/request/", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusBadRequest, map[string]any{"detail": "User exists"})
	})

	out, err := tc.run("", "register", "--phone", "+998901234567")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "This phone number is already registered. Log in instead."
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
	if !strings.Contains(out, want) {
		t.Errorf("message not shown:\n%s", out)
	}
}

func TestRegister_RejectedProfileAskedAgain(t *testing.T) {
	tc := newTestCLI(t)
	registrationServer(tc)

	input := strings.Join([]string{
		"1234",
		"Aziz",
		"secret1",
		"secret2",
		"1",
		"samarkand",
		"Aziz",
		"secret1",
		"secret1",
		"1",
		"samarkand",
		"client",
	}, "\n") + "\n"
	out := tc.mustRun(input, "register", "--phone", "+998901234567", "--telegram", "@aziz")

	if !strings.Contains(out, domain.ErrPasswordMismatch.Message) {
		t.Errorf("mismatch not reported:\n%s", out)
	}
	if n := len(tc.server.callsTo("/auth/register/")); n != 1 {
		t.Errorf("register calls = %d, want 1", n)
	}
}

func TestRecoverable(t *testing.T) {
	if !recoverable(domain.ErrCooldownActive.WithDetails("1s left")) {
		t.Error("cooldown should be recoverable")
	}
	if !recoverable(domain.ValidatePhone("1")) {
		t.Error("field error should be recoverable")
	}
	if recoverable(domain.ErrAttemptClosed) {
		t.Error("closed attempt should not be recoverable")
	}
}
