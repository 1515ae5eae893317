package manager

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tecu23/match-server/pkg/match"
	"github.com/tecu23/match-server/pkg/offer"
)

// Timers arms offer deadlines on a clock. A fired deadline is queued on
// Expirations instead of touching the session, so it is handled by the
// same loop as every other event.
type Timers struct {
	clock   clockwork.Clock
	expired chan match.Expiry
	done    chan struct{}
}

// NewTimers creates a scheduler backed by clock
func NewTimers(clock clockwork.Clock) *Timers {
	return &Timers{
		clock:   clock,
		expired: make(chan match.Expiry, 64),
		done:    make(chan struct{}),
	}
}

// Schedule implements match.Scheduler
func (t *Timers) Schedule(after time.Duration, e match.Expiry) offer.Timer {
	return t.clock.AfterFunc(after, func() {
		select {
		case t.expired <- e:
		case <-t.done:
		}
	})
}

// Expirations delivers fired deadlines
func (t *Timers) Expirations() <-chan match.Expiry {
	return t.expired
}

// Close releases deadlines that fire after shutdown
func (t *Timers) Close() {
	close(t.done)
}
