package command

import (
	"sync"

	"github.com/kasbhub/kasb-go/internal/cli/output"
	"github.com/kasbhub/kasb-go/internal/core/service"
)

// progress shows a spinner while the dialog has a request in flight.
//
// Snapshots also arrive from the cooldown ticker, possibly late, so the
// spinner only starts while a command armed it for its own call.
type progress struct {
	mu      sync.Mutex
	spinner *output.Spinner
	armed   bool
}

func newProgress(env *Env) *progress {
	p := &progress{}
	if env.Interactive {
		p.spinner = output.NewSpinner(env.Out, "")
	}
	return p
}

// observe is the dialog observer.
func (p *progress) observe(s service.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner == nil || !p.armed {
		return
	}
	if s.Pending {
		p.spinner.Start()
	} else if p.spinner.Running() {
		p.spinner.Stop()
	}
}

// run arms the spinner with message for the duration of fn.
func (p *progress) run(message string, fn func() error) error {
	p.mu.Lock()
	p.armed = true
	if p.spinner != nil {
		p.spinner.Update(message)
	}
	p.mu.Unlock()

	err := fn()

	p.mu.Lock()
	p.armed = false
	if p.spinner != nil && p.spinner.Running() {
		p.spinner.Stop()
	}
	p.mu.Unlock()
	return err
}
