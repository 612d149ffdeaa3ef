package service

// startCountdownLocked (re)starts the resend cooldown at ResendCooldown
// seconds, ticking once per second.
func (a *Attempt) startCountdownLocked() {
	a.stopCountdownLocked()
	a.cooldown = ResendCooldown

	a.countdownSeq++
	seq := a.countdownSeq
	a.countdown = a.sched.Every(cooldownInterval, func() {
		a.tick(seq)
	})
}

func (a *Attempt) stopCountdownLocked() {
	if a.countdown != nil {
		a.countdown.Stop()
		a.countdown = nil
	}
}

// tick decrements the cooldown; the ticker stops itself at zero. Ticks of
// a replaced or stopped countdown are ignored.
func (a *Attempt) tick(seq uint64) {
	a.mu.Lock()
	if seq != a.countdownSeq || a.countdown == nil || a.cooldown == 0 {
		a.mu.Unlock()
		return
	}
	a.cooldown--
	if a.cooldown == 0 {
		a.stopCountdownLocked()
	}
	a.mu.Unlock()

	a.notify()
}

// Cooldown returns the seconds left before ResendOTP is allowed.
func (a *Attempt) Cooldown() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cooldown
}
