package match

import (
	"maps"
	"time"

	"github.com/tecu23/match-server/internal/color"
	"github.com/tecu23/match-server/pkg/clock"
	"github.com/tecu23/match-server/pkg/messages"
	"github.com/tecu23/match-server/pkg/offer"
)

// OfferDraw proposes a draw to the opponent of an active match
func (s *Session) OfferDraw(playerID string, now time.Time) ([]Notification, error) {
	if s.status != StatusActive {
		return nil, ErrNotActive
	}
	if !s.isPlayer(playerID) {
		return nil, ErrNotParticipant
	}
	if o := s.offers[offer.KindDraw]; o != nil && o.Pending() {
		return nil, ErrOfferPending
	}

	o := s.openOffer(offer.KindDraw, playerID, now)

	return []Notification{s.notify(AudienceMatch, messages.EventDrawOffered, messages.OfferPayload{
		MatchID:     s.ID,
		By:          playerID,
		Username:    s.usernames[playerID],
		Deadline:    o.Deadline,
		RemainingMs: o.Deadline.Sub(now).Milliseconds(),
	})}, nil
}

// AcceptDraw ends the match as a draw by agreement
func (s *Session) AcceptDraw(playerID string, now time.Time) ([]Notification, error) {
	if s.status != StatusActive {
		return nil, ErrNotActive
	}

	o, err := s.answerable(offer.KindDraw, playerID)
	if err != nil {
		return nil, err
	}
	o.Accept()

	return []Notification{s.finish(ReasonDrawAccepted, "", now)}, nil
}

// DeclineDraw turns down the pending draw offer; play continues
func (s *Session) DeclineDraw(playerID string, now time.Time) ([]Notification, error) {
	if s.status != StatusActive {
		return nil, ErrNotActive
	}

	o, err := s.answerable(offer.KindDraw, playerID)
	if err != nil {
		return nil, err
	}
	o.Decline()

	return []Notification{s.notify(AudienceMatch, messages.EventDrawDeclined, messages.OfferDeclinedPayload{
		MatchID:  s.ID,
		By:       playerID,
		Username: s.usernames[playerID],
	})}, nil
}

// ProposeRematch offers a new match while the rematch window is open
func (s *Session) ProposeRematch(playerID string, now time.Time) ([]Notification, error) {
	if s.status != StatusFinished {
		return nil, ErrNotFinished
	}
	if !s.isPlayer(playerID) {
		return nil, ErrNotParticipant
	}
	if !now.Before(s.rematchDeadline) {
		return nil, ErrRematchClosed
	}
	if o := s.offers[offer.KindRematch]; o != nil && o.Pending() {
		return nil, ErrOfferPending
	}

	o := s.openOffer(offer.KindRematch, playerID, now)

	return []Notification{s.notify(AudienceMatch, messages.EventRematchProposed, messages.OfferPayload{
		MatchID:     s.ID,
		By:          playerID,
		Username:    s.usernames[playerID],
		Deadline:    o.Deadline,
		RemainingMs: o.Deadline.Sub(now).Milliseconds(),
	})}, nil
}

// AcceptRematch accepts the pending rematch offer and returns the new match
// under newID. Colors are inverted and the clock starts at full allotment.
// The receiver is left finished and should be abandoned by its owner.
func (s *Session) AcceptRematch(playerID, newID string, now time.Time) (*Session, []Notification, error) {
	if s.status != StatusFinished {
		return nil, nil, ErrNotFinished
	}

	o, err := s.answerable(offer.KindRematch, playerID)
	if err != nil {
		return nil, nil, err
	}
	o.Accept()

	next := &Session{
		ID:        newID,
		players:   []string{s.players[1], s.players[0]},
		colors:    make(map[string]color.Color, 2),
		usernames: maps.Clone(s.usernames),
		turn:      s.players[1],
		position:  s.engine.NewPosition(),
		status:    StatusActive,
		clock:     clock.New(s.settings.TimeControl),
		offers:    make(map[offer.Kind]*offer.Offer),
		settings:  s.settings,
		engine:    s.engine,
		scheduler: s.scheduler,
	}
	next.colors[next.players[0]] = color.White
	next.colors[next.players[1]] = color.Black
	next.clock.Start(now)

	return next, []Notification{s.notify(AudienceMatch, messages.EventRematchAccepted, messages.RematchAcceptedPayload{
		MatchID:    s.ID,
		NewMatchID: newID,
	})}, nil
}

// DeclineRematch clears the pending rematch offer
func (s *Session) DeclineRematch(playerID string, now time.Time) ([]Notification, error) {
	if s.status != StatusFinished {
		return nil, ErrNotFinished
	}

	o, err := s.answerable(offer.KindRematch, playerID)
	if err != nil {
		return nil, err
	}
	o.Decline()

	return []Notification{s.notify(AudienceMatch, messages.EventRematchDeclined, messages.OfferDeclinedPayload{
		MatchID:  s.ID,
		By:       playerID,
		Username: s.usernames[playerID],
	})}, nil
}

// Expire handles a fired offer deadline. Firings for offers that already
// left pending, or for an older offer of the same kind, are dropped.
func (s *Session) Expire(e Expiry, now time.Time) ([]Notification, error) {
	o := s.offers[e.Kind]
	if o == nil || !o.Expire(e.OfferID) {
		return nil, ErrStaleExpiry
	}

	event := messages.EventDrawOfferExpired
	if e.Kind == offer.KindRematch {
		event = messages.EventRematchExpired
	}

	return []Notification{s.notify(AudienceMatch, event, messages.OfferExpiredPayload{
		MatchID: s.ID,
	})}, nil
}

func (s *Session) openOffer(kind offer.Kind, playerID string, now time.Time) *offer.Offer {
	o := offer.New(kind, playerID, now, s.settings.OfferWindow)
	if s.scheduler != nil {
		o.Arm(s.scheduler.Schedule(s.settings.OfferWindow, Expiry{
			MatchID: s.ID,
			Kind:    kind,
			OfferID: o.ID,
		}))
	}

	s.offers[kind] = o
	return o
}

// answerable returns the pending offer of kind if playerID may answer it
func (s *Session) answerable(kind offer.Kind, playerID string) (*offer.Offer, error) {
	if !s.isPlayer(playerID) {
		return nil, ErrNotParticipant
	}

	o := s.offers[kind]
	if o == nil || !o.Pending() {
		return nil, ErrNoOffer
	}
	if o.IssuedBy == playerID {
		return nil, ErrOwnOffer
	}

	return o, nil
}
