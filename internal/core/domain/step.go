package domain

import "fmt"

// Step is a state of the login / registration dialog.
type Step int

// Dialog steps. The numeric values are the codes the web front end used,
// including the jump from the profile form to the post-registration screens.
const (
	StepLogin       Step = 1
	StepPhone       Step = 2
	StepOTP         Step = 3
	StepTelegram    Step = 4
	StepProfile     Step = 5
	StepWelcome     Step = 9
	StepWelcomeNext Step = 10

	// StepClosed is terminal: the dialog finished (logged in or acknowledged
	// the welcome screens) and has to be reset before it can be used again.
	StepClosed Step = 0
)

var stepNames = map[Step]string{
	StepLogin:       "login",
	StepPhone:       "phone",
	StepOTP:         "otp",
	StepTelegram:    "telegram",
	StepProfile:     "profile",
	StepWelcome:     "welcome",
	StepWelcomeNext: "welcome-next",
	StepClosed:      "closed",
}

// String returns the step name.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Code returns the legacy integer code of the step.
func (s Step) Code() int {
	return int(s)
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

// transitions lists every forward move the dialog may make. Reset (any step
// back to StepLogin) is handled separately and is always allowed.
var transitions = map[Step][]Step{
	StepLogin:       {StepPhone, StepClosed},
	StepPhone:       {StepLogin, StepOTP},
	StepOTP:         {StepTelegram},
	StepTelegram:    {StepProfile},
	StepProfile:     {StepWelcome},
	StepWelcome:     {StepWelcomeNext},
	StepWelcomeNext: {StepClosed},
}

// CanTransition reports whether the dialog may move from one step to another.
func CanTransition(from, to Step) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition when from -> to is not allowed.
func CheckTransition(from, to Step) error {
	if !CanTransition(from, to) {
		return ErrIllegalTransition.WithDetails(fmt.Sprintf("%s -> %s", from, to))
	}
	return nil
}
