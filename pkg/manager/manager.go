// Package manager applies player actions, offer expiries and clock ticks to
// the match sessions held in the registry.
package manager

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/tecu23/match-server/pkg/events"
	"github.com/tecu23/match-server/pkg/match"
)

// ActionKind is the inbound event a player sent
type ActionKind string

// Inbound actions
const (
	ActionJoin           ActionKind = "join"
	ActionMove           ActionKind = "move"
	ActionOfferDraw      ActionKind = "offer_draw"
	ActionAcceptDraw     ActionKind = "accept_draw"
	ActionDeclineDraw    ActionKind = "decline_draw"
	ActionResign         ActionKind = "resign"
	ActionProposeRematch ActionKind = "propose_rematch"
	ActionAcceptRematch  ActionKind = "accept_rematch"
	ActionDeclineRematch ActionKind = "decline_rematch"
)

// ErrUnknownAction is reported for action kinds the manager does not know
var ErrUnknownAction = errors.New("unknown action")

// Action is one authenticated player request addressed to a match
type Action struct {
	Kind     ActionKind
	MatchID  string
	PlayerID string
	Username string
	From     string
	To       string
}

// Result is what handling an action produced. Joined is set when the
// player is a participant of the match after a join, so the caller can
// subscribe the sending connection to it.
type Result struct {
	Notifications []match.Notification
	Joined        bool
}

// Registry stores the live sessions by match id
type Registry interface {
	GetOrCreate(id string) (*match.Session, bool, error)
	Get(id string) (*match.Session, error)
	Replace(oldID, newID string, session *match.Session) error
	ListActive() []*match.Session
}

// Manager routes work to sessions. It is not safe for concurrent use: a
// single loop must call Handle, Expire and Tick, which is what keeps every
// match free of locks and applies its events strictly in arrival order.
type Manager struct {
	registry  Registry
	timers    *Timers
	clock     clockwork.Clock
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewManager creates a manager over registry. Sessions created by the
// registry should arm their offers on timers.
func NewManager(
	registry Registry,
	timers *Timers,
	clock clockwork.Clock,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		registry:  registry,
		timers:    timers,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}
}

// Expirations delivers fired offer deadlines to be passed back to Expire
func (m *Manager) Expirations() <-chan match.Expiry {
	return m.timers.Expirations()
}

// Handle applies a player action. Actions that are invalid for the current
// state are dropped without notifications.
func (m *Manager) Handle(a Action) Result {
	logger := m.logger.With(
		zap.String("match_id", a.MatchID),
		zap.String("player_id", a.PlayerID),
		zap.String("action", string(a.Kind)),
	)

	session, created, err := m.registry.GetOrCreate(a.MatchID)
	if err != nil {
		logger.Debug("action dropped", zap.Error(err))
		return Result{}
	}
	if created {
		m.publish(events.EventMatchCreated, a.MatchID, nil)
	}

	now := m.clock.Now()
	before := session.Status()

	var notes []match.Notification
	switch a.Kind {
	case ActionJoin:
		notes, err = session.JoinAs(a.PlayerID, a.Username, now)
	case ActionMove:
		notes, err = session.AttemptMove(a.PlayerID, a.From, a.To, now)
	case ActionOfferDraw:
		notes, err = session.OfferDraw(a.PlayerID, now)
	case ActionAcceptDraw:
		notes, err = session.AcceptDraw(a.PlayerID, now)
	case ActionDeclineDraw:
		notes, err = session.DeclineDraw(a.PlayerID, now)
	case ActionResign:
		notes, err = session.Resign(a.PlayerID, now)
	case ActionProposeRematch:
		notes, err = session.ProposeRematch(a.PlayerID, now)
	case ActionAcceptRematch:
		notes, err = m.acceptRematch(session, a.PlayerID, now)
	case ActionDeclineRematch:
		notes, err = session.DeclineRematch(a.PlayerID, now)
	default:
		err = ErrUnknownAction
	}

	if err != nil {
		logger.Debug("action ignored", zap.Error(err))
		return Result{}
	}

	m.observeTransition(session, before)

	return Result{
		Notifications: notes,
		Joined:        a.Kind == ActionJoin,
	}
}

// Expire applies a fired offer deadline
func (m *Manager) Expire(e match.Expiry) []match.Notification {
	logger := m.logger.With(
		zap.String("match_id", e.MatchID),
		zap.String("offer_kind", string(e.Kind)),
		zap.String("offer_id", e.OfferID),
	)

	session, err := m.registry.Get(e.MatchID)
	if err != nil {
		logger.Debug("expiry dropped", zap.Error(err))
		return nil
	}

	notes, err := session.Expire(e, m.clock.Now())
	if err != nil {
		logger.Debug("stale expiry dropped", zap.Error(err))
		return nil
	}

	logger.Info("offer expired")
	m.publish(events.EventOfferExpired, e.MatchID, e.Kind)

	return notes
}

// Tick publishes the clocks of every active match and ends the ones whose
// side to move has run out of time.
func (m *Manager) Tick() []match.Notification {
	now := m.clock.Now()

	var notes []match.Notification
	for _, session := range m.registry.ListActive() {
		before := session.Status()
		notes = append(notes, session.Tick(now)...)
		m.observeTransition(session, before)
	}

	return notes
}

func (m *Manager) acceptRematch(session *match.Session, playerID string, now time.Time) ([]match.Notification, error) {
	newID := uuid.NewString()

	next, notes, err := session.AcceptRematch(playerID, newID, now)
	if err != nil {
		return nil, err
	}

	if err := m.registry.Replace(session.ID, newID, next); err != nil {
		return nil, err
	}

	m.logger.Info("rematch accepted",
		zap.String("match_id", session.ID),
		zap.String("new_match_id", newID))
	m.publish(events.EventRematchAccepted, session.ID, newID)
	m.publish(events.EventMatchStarted, newID, nil)

	return notes, nil
}

// observeTransition logs and publishes status changes of session
func (m *Manager) observeTransition(session *match.Session, before match.Status) {
	after := session.Status()
	if after == before {
		return
	}

	switch after {
	case match.StatusActive:
		m.logger.Info("match started",
			zap.String("match_id", session.ID),
			zap.Strings("players", session.Players()))
		m.publish(events.EventMatchStarted, session.ID, nil)

	case match.StatusFinished:
		result := session.Result()
		m.logger.Info("match finished",
			zap.String("match_id", session.ID),
			zap.String("reason", string(result.Reason)),
			zap.String("winner", result.Winner))
		m.publish(events.EventMatchFinished, session.ID, *result)
	}
}

func (m *Manager) publish(t events.EventType, matchID string, payload interface{}) {
	if m.publisher == nil {
		return
	}

	m.publisher.Publish(events.Event{
		Type:    t,
		MatchID: matchID,
		Payload: payload,
	})
}
