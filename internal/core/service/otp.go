package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/kasbhub/kasb-go/internal/core/domain"
)

// otpComplete reports whether every cell holds a digit.
func otpComplete(cells [OTPLength]string) bool {
	for _, c := range cells {
		if c == "" {
			return false
		}
	}
	return true
}

func otpCode(cells [OTPLength]string) string {
	return strings.Join(cells[:], "")
}

func digitsOf(s string) []string {
	var out []string
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, string(r))
		}
	}
	return out
}

func clampCell(i int) int {
	switch {
	case i < 0:
		return 0
	case i >= OTPLength:
		return OTPLength - 1
	}
	return i
}

// SetOTPCell stores the last digit typed into cell i (clearing the cell
// when value has no digit) and returns the cell to focus next.
func (a *Attempt) SetOTPCell(i int, value string) int {
	i = clampCell(i)

	a.mu.Lock()
	if a.step != domain.StepOTP {
		a.mu.Unlock()
		return i
	}

	next := i
	digits := digitsOf(value)
	if len(digits) == 0 {
		a.otp[i] = ""
	} else {
		a.otp[i] = digits[len(digits)-1]
		next = clampCell(i + 1)
	}
	a.otpChangedLocked()
	a.mu.Unlock()

	a.notify()
	return next
}

// Backspace clears cell i. On an already empty cell it only moves focus
// to the previous cell.
func (a *Attempt) Backspace(i int) int {
	i = clampCell(i)

	a.mu.Lock()
	if a.step != domain.StepOTP {
		a.mu.Unlock()
		return i
	}
	if a.otp[i] == "" {
		a.mu.Unlock()
		return clampCell(i - 1)
	}
	a.otp[i] = ""
	a.otpChangedLocked()
	a.mu.Unlock()

	a.notify()
	return i
}

// PasteOTP spreads the digits of value over the cells starting at i, or at
// the first cell when value is exactly a full code. It returns the cell to
// focus next.
func (a *Attempt) PasteOTP(i int, value string) int {
	i = clampCell(i)
	if domain.ValidateOTP(strings.TrimSpace(value)) == nil {
		i = 0
	}

	a.mu.Lock()
	if a.step != domain.StepOTP {
		a.mu.Unlock()
		return i
	}

	pos := i
	for _, d := range digitsOf(value) {
		if pos >= OTPLength {
			break
		}
		a.otp[pos] = d
		pos++
	}
	a.otpChangedLocked()
	a.mu.Unlock()

	a.notify()
	return clampCell(pos)
}

// otpChangedLocked cancels a pending auto-submit and, when the code is
// complete, schedules a new one after the debounce window.
func (a *Attempt) otpChangedLocked() {
	a.stopDebounceLocked()
	delete(a.fieldErrs, domain.FieldCode)
	a.scheduleSubmitLocked()
}

// scheduleSubmitLocked arms the debounce timer when every cell is filled.
func (a *Attempt) scheduleSubmitLocked() {
	if !otpComplete(a.otp) {
		return
	}

	a.debounceSeq++
	seq, gen := a.debounceSeq, a.gen
	a.debounce = a.sched.AfterFunc(OTPDebounce, func() {
		a.autoSubmit(seq, gen)
	})
}

func (a *Attempt) stopDebounceLocked() {
	if a.debounce != nil {
		a.debounce.Stop()
		a.debounce = nil
		a.debounceSeq++
	}
}

// autoSubmit runs on the timer goroutine. A timer that lost the race with
// Stop sees a newer seq or gen and does nothing.
func (a *Attempt) autoSubmit(seq, gen uint64) {
	a.mu.Lock()
	stale := seq != a.debounceSeq || gen != a.gen || a.step != domain.StepOTP
	if !stale {
		a.debounce = nil
	}
	a.mu.Unlock()
	if stale {
		return
	}

	if err := a.SubmitOTP(context.Background()); err != nil {
		a.log.Debug("otp auto-submit failed", "error", err)
	}
}

// SubmitOTP verifies the code in the cells and moves to the telegram step.
func (a *Attempt) SubmitOTP(ctx context.Context) error {
	a.mu.Lock()
	if err := a.beginLocked(domain.StepOTP); err != nil {
		a.mu.Unlock()
		return err
	}
	a.stopDebounceLocked()
	code := otpCode(a.otp)
	if err := domain.ValidateOTP(code); err != nil {
		return a.unlockNotify(a.invalidLocked(err))
	}
	phone := a.phone
	gen := a.startLocked()
	a.mu.Unlock()
	a.notify()

	err := a.api.VerifyOTP(ctx, phone, code)

	a.mu.Lock()
	if !a.finishLocked(gen) {
		a.mu.Unlock()
		return domain.ErrAttemptReset
	}
	if err != nil {
		err = a.failLocked(err)
		// Cells edited while the call was in flight hit ErrBusy on their
		// own debounce; submit the newer code now.
		if a.step == domain.StepOTP && a.debounce == nil && otpCode(a.otp) != code {
			a.scheduleSubmitLocked()
		}
		return a.unlockNotify(err)
	}
	a.stopCountdownLocked()
	a.cooldown = 0
	return a.unlockNotify(a.moveLocked(domain.StepTelegram))
}

// ResendOTP requests a new code. Only allowed once the cooldown reached 0;
// it restarts the cooldown.
func (a *Attempt) ResendOTP(ctx context.Context) error {
	a.mu.Lock()
	if err := a.beginLocked(domain.StepOTP); err != nil {
		a.mu.Unlock()
		return err
	}
	if left := a.cooldown; left > 0 {
		a.mu.Unlock()
		return domain.ErrCooldownActive.WithDetails(strconv.Itoa(left) + "s left")
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
	a.log.Info("otp resent")
	a.startCountdownLocked()
	return a.unlockNotify(nil)
}
