// Package match implements the state machine of a single two player match:
// pairing, turn order, clocks, draw and rematch negotiation.
package match

import (
	"time"

	"github.com/tecu23/match-server/internal/color"
	"github.com/tecu23/match-server/pkg/clock"
	"github.com/tecu23/match-server/pkg/messages"
	"github.com/tecu23/match-server/pkg/offer"
	"github.com/tecu23/match-server/pkg/rules"
)

// Status is the lifecycle stage of a match
type Status string

// Possible match statuses. Finished is terminal.
const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Reason explains how a match finished
type Reason string

// Terminal reasons
const (
	ReasonCheckmate    Reason = "checkmate"
	ReasonStalemate    Reason = "stalemate"
	ReasonDraw         Reason = "draw"
	ReasonDrawAccepted Reason = "draw_accepted"
	ReasonResignation  Reason = "resignation"
	ReasonTimeout      Reason = "timeout"
)

// Settings are the tunable constants of a match
type Settings struct {
	TimeControl   clock.TimeControl
	OfferWindow   time.Duration
	RematchWindow time.Duration
}

// DefaultSettings returns ten minutes per side and thirty second offers
func DefaultSettings() Settings {
	return Settings{
		TimeControl:   clock.TimeControl{Initial: 10 * time.Minute},
		OfferWindow:   30 * time.Second,
		RematchWindow: 30 * time.Second,
	}
}

// Expiry identifies the offer whose deadline fired
type Expiry struct {
	MatchID string
	Kind    offer.Kind
	OfferID string
}

// Scheduler arms offer deadlines. The expiry must come back to the session
// through the same serialized path as every other action.
type Scheduler interface {
	Schedule(after time.Duration, e Expiry) offer.Timer
}

// Result records how a finished match ended. Winner is empty on a draw.
type Result struct {
	Reason Reason
	Winner string
}

// Snapshot is a read-only view of a match
type Snapshot struct {
	MatchID         string
	Status          Status
	FEN             string
	Turn            string
	Players         []string
	Colors          map[string]color.Color
	Usernames       map[string]string
	Clocks          map[string]time.Duration
	Result          *Result
	RematchDeadline time.Time
}

// Session is the single source of truth for one match. It is not safe for
// concurrent use; the owner serializes every call.
type Session struct {
	ID string

	players   []string // challenger first
	colors    map[string]color.Color
	usernames map[string]string
	turn      string
	position  rules.Position
	status    Status

	result          *Result
	rematchDeadline time.Time

	clock  *clock.Clock
	offers map[offer.Kind]*offer.Offer

	settings  Settings
	engine    rules.Engine
	scheduler Scheduler
}

// NewSession creates an empty waiting match
func NewSession(id string, settings Settings, engine rules.Engine, scheduler Scheduler) *Session {
	return &Session{
		ID:        id,
		colors:    make(map[string]color.Color),
		usernames: make(map[string]string),
		position:  engine.NewPosition(),
		status:    StatusWaiting,
		clock:     clock.New(settings.TimeControl),
		offers:    make(map[offer.Kind]*offer.Offer),
		settings:  settings,
		engine:    engine,
		scheduler: scheduler,
	}
}

// Status returns the lifecycle stage
func (s *Session) Status() Status {
	return s.status
}

// Turn returns the player allowed to move next
func (s *Session) Turn() string {
	return s.turn
}

// Players returns the participants, challenger first
func (s *Session) Players() []string {
	return append([]string(nil), s.players...)
}

// ColorOf returns the color assigned to playerID
func (s *Session) ColorOf(playerID string) (color.Color, bool) {
	c, ok := s.colors[playerID]
	return c, ok
}

// Result returns how the match ended, or nil while it is still running
func (s *Session) Result() *Result {
	return s.result
}

// Offer returns the latest offer of the given kind, resolved or not
func (s *Session) Offer(kind offer.Kind) *offer.Offer {
	return s.offers[kind]
}

// Snapshot returns the full state at now
func (s *Session) Snapshot(now time.Time) Snapshot {
	colors := make(map[string]color.Color, len(s.colors))
	clocks := make(map[string]time.Duration, len(s.colors))
	for player, c := range s.colors {
		colors[player] = c
		clocks[player] = s.clock.Remaining(c, now)
	}

	usernames := make(map[string]string, len(s.usernames))
	for player, name := range s.usernames {
		usernames[player] = name
	}

	var result *Result
	if s.result != nil {
		r := *s.result
		result = &r
	}

	return Snapshot{
		MatchID:         s.ID,
		Status:          s.status,
		FEN:             s.position.FEN(),
		Turn:            s.turn,
		Players:         s.Players(),
		Colors:          colors,
		Usernames:       usernames,
		Clocks:          clocks,
		Result:          result,
		RematchDeadline: s.rematchDeadline,
	}
}

// Join adds playerID to the match. The first joiner is the challenger and
// plays white; the second completes the pairing and starts the clock. A
// participant joining again only gets the current state back.
func (s *Session) Join(playerID string, now time.Time) ([]Notification, error) {
	return s.JoinAs(playerID, "", now)
}

// JoinAs is Join with a display name shown to the opponent
func (s *Session) JoinAs(playerID, username string, now time.Time) ([]Notification, error) {
	if playerID == "" {
		return nil, ErrEmptyPlayer
	}

	if s.isPlayer(playerID) {
		if username != "" {
			s.usernames[playerID] = username
		}
		return []Notification{s.stateNotification(AudienceActor, now)}, nil
	}

	if len(s.players) == 2 {
		return nil, ErrMatchFull
	}

	s.players = append(s.players, playerID)
	if username != "" {
		s.usernames[playerID] = username
	}
	if len(s.players) == 1 {
		s.colors[playerID] = color.White
		s.turn = playerID
	} else {
		s.colors[playerID] = color.Black
		s.status = StatusActive
		s.clock.Start(now)
	}

	return []Notification{s.stateNotification(AudienceMatch, now)}, nil
}

// AttemptMove plays from->to for playerID. Time is checked before the move
// itself: a player who is already out of time loses whatever they sent.
func (s *Session) AttemptMove(playerID, from, to string, now time.Time) ([]Notification, error) {
	if len(s.players) < 2 {
		return nil, ErrNotPaired
	}
	if s.status != StatusActive {
		return nil, ErrNotActive
	}
	if playerID != s.turn {
		return nil, ErrNotYourTurn
	}

	if s.clock.Flagged(now) {
		s.clock.Flag(now)
		return []Notification{s.finish(ReasonTimeout, s.opponent(playerID), now)}, nil
	}

	mover := s.colors[playerID]
	if c, ok := s.engine.PieceColorAt(s.position, from); !ok || c != mover {
		return nil, ErrNotYourPiece
	}

	res := s.engine.LegalMove(s.position, from, to, rules.Queen)
	if !res.Legal {
		return nil, ErrIllegalMove
	}

	s.position = res.Position
	s.clock.Punch(now)
	s.turn = s.opponent(playerID)

	var gameOver *Notification
	if res.Terminal() {
		n := s.finish(terminalReason(res), terminalWinner(res, playerID), now)
		gameOver = &n
	}

	notes := []Notification{
		s.notify(AudienceMatch, messages.EventMoveApplied, messages.MoveAppliedPayload{
			MatchID: s.ID,
			From:    from,
			To:      to,
			By:      playerID,
		}),
		s.stateNotification(AudienceMatch, now),
	}
	if gameOver != nil {
		notes = append(notes, *gameOver)
	}

	return notes, nil
}

// Resign ends an active match in favour of the opponent
func (s *Session) Resign(playerID string, now time.Time) ([]Notification, error) {
	if s.status != StatusActive {
		return nil, ErrNotActive
	}
	if !s.isPlayer(playerID) {
		return nil, ErrNotParticipant
	}

	return []Notification{s.finish(ReasonResignation, s.opponent(playerID), now)}, nil
}

// Tick is the periodic check driven by the clock broadcast. A side to move
// that has run out of time loses; otherwise both clocks are published.
func (s *Session) Tick(now time.Time) []Notification {
	if s.status != StatusActive {
		return nil
	}

	if s.clock.Flagged(now) {
		s.clock.Flag(now)
		return []Notification{s.finish(ReasonTimeout, s.opponent(s.turn), now)}
	}

	return []Notification{s.notify(AudienceMatch, messages.EventClock, messages.ClockUpdatePayload{
		MatchID: s.ID,
		Clocks:  s.clocksMillis(now),
		Turn:    s.turn,
	})}
}

// finish moves the match to its terminal state and opens the rematch window
func (s *Session) finish(reason Reason, winner string, now time.Time) Notification {
	s.status = StatusFinished
	s.result = &Result{Reason: reason, Winner: winner}
	s.clock.Stop(now)
	s.rematchDeadline = now.Add(s.settings.RematchWindow)

	if o := s.offers[offer.KindDraw]; o != nil {
		o.Cancel()
	}

	var w *string
	if winner != "" {
		w = &winner
	}

	return s.notify(AudienceMatch, messages.EventGameOver, messages.GameOverPayload{
		MatchID:         s.ID,
		Reason:          string(reason),
		Winner:          w,
		RematchDeadline: s.rematchDeadline,
	})
}

func (s *Session) stateNotification(audience Audience, now time.Time) Notification {
	snap := s.Snapshot(now)

	payload := messages.StatePayload{
		MatchID:   s.ID,
		Status:    string(snap.Status),
		FEN:       snap.FEN,
		Turn:      snap.Turn,
		Colors:    snap.Colors,
		Usernames: snap.Usernames,
		Clocks:    s.clocksMillis(now),
		Players:   snap.Players,
	}
	if snap.Result != nil {
		payload.Reason = string(snap.Result.Reason)
		payload.Winner = snap.Result.Winner
		payload.Deadline = &snap.RematchDeadline
	}

	return s.notify(audience, messages.EventState, payload)
}

func (s *Session) clocksMillis(now time.Time) map[string]int64 {
	clocks := make(map[string]int64, len(s.colors))
	for player, c := range s.colors {
		clocks[player] = s.clock.Remaining(c, now).Milliseconds()
	}
	return clocks
}

func (s *Session) isPlayer(playerID string) bool {
	for _, p := range s.players {
		if p == playerID {
			return true
		}
	}
	return false
}

// opponent returns the other participant, or "" before pairing
func (s *Session) opponent(playerID string) string {
	for _, p := range s.players {
		if p != playerID {
			return p
		}
	}
	return ""
}

func terminalReason(res rules.MoveResult) Reason {
	switch {
	case res.Checkmate:
		return ReasonCheckmate
	case res.Stalemate:
		return ReasonStalemate
	default:
		return ReasonDraw
	}
}

func terminalWinner(res rules.MoveResult, mover string) string {
	if res.Checkmate {
		return mover
	}
	return ""
}
