// Package offer implements time-boxed two party proposals such as draw and
// rematch offers.
package offer

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what is being proposed
type Kind string

// Supported offer kinds
const (
	KindDraw    Kind = "draw"
	KindRematch Kind = "rematch"
)

// Resolution is the state of an offer. It leaves Pending exactly once.
type Resolution string

// Offer resolutions
const (
	Pending  Resolution = "pending"
	Accepted Resolution = "accepted"
	Declined Resolution = "declined"
	Expired  Resolution = "expired"
)

// Timer is the deadline timer armed for an offer
type Timer interface {
	Stop() bool
}

// Offer is a single proposal from one participant to the other
type Offer struct {
	ID       string
	Kind     Kind
	IssuedBy string
	Deadline time.Time

	resolution Resolution
	timer      Timer
}

// New creates a pending offer whose deadline is issuedAt plus window
func New(kind Kind, issuedBy string, issuedAt time.Time, window time.Duration) *Offer {
	return &Offer{
		ID:         uuid.NewString(),
		Kind:       kind,
		IssuedBy:   issuedBy,
		Deadline:   issuedAt.Add(window),
		resolution: Pending,
	}
}

// Arm attaches the deadline timer so that any other transition cancels it
func (o *Offer) Arm(t Timer) {
	o.timer = t
}

// Resolution returns the current resolution
func (o *Offer) Resolution() Resolution {
	return o.resolution
}

// Pending reports whether the offer can still be answered
func (o *Offer) Pending() bool {
	return o.resolution == Pending
}

// Accept resolves the offer as accepted. It is a no-op unless pending.
func (o *Offer) Accept() bool {
	return o.resolve(Accepted)
}

// Decline resolves the offer as declined. It is a no-op unless pending.
func (o *Offer) Decline() bool {
	return o.resolve(Declined)
}

// Cancel resolves a pending offer as expired without waiting for the
// deadline, for offers made moot by the match ending some other way.
func (o *Offer) Cancel() bool {
	return o.resolve(Expired)
}

// Expire handles the deadline firing for the offer with the given id. A
// firing for an older offer, or for one that already left pending, is
// dropped.
func (o *Offer) Expire(id string) bool {
	if id != o.ID {
		return false
	}
	return o.resolve(Expired)
}

func (o *Offer) resolve(r Resolution) bool {
	if o.resolution != Pending {
		return false
	}

	o.resolution = r
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	return true
}
