package match

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/match-server/internal/color"
	"github.com/tecu23/match-server/pkg/clock"
	"github.com/tecu23/match-server/pkg/messages"
	"github.com/tecu23/match-server/pkg/offer"
	"github.com/tecu23/match-server/pkg/rules"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeTimer struct {
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	was := !f.stopped
	f.stopped = true
	return was
}

type fakeScheduler struct {
	expiries []Expiry
	timers   []*fakeTimer
	afters   []time.Duration
}

func (f *fakeScheduler) Schedule(after time.Duration, e Expiry) offer.Timer {
	t := &fakeTimer{}
	f.expiries = append(f.expiries, e)
	f.timers = append(f.timers, t)
	f.afters = append(f.afters, after)
	return t
}

func (f *fakeScheduler) last() (Expiry, *fakeTimer) {
	return f.expiries[len(f.expiries)-1], f.timers[len(f.timers)-1]
}

func newPairedSession(t *testing.T, settings Settings) (*Session, *fakeScheduler) {
	t.Helper()

	sched := &fakeScheduler{}
	s := NewSession("m1", settings, rules.NewChess(), sched)

	_, err := s.Join("A", t0)
	require.NoError(t, err)
	_, err = s.Join("B", t0)
	require.NoError(t, err)

	return s, sched
}

func events(notes []Notification) []string {
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Message.Event)
	}
	return out
}

func TestJoinAssignsColorsAndTurn(t *testing.T) {
	s := NewSession("m1", DefaultSettings(), rules.NewChess(), &fakeScheduler{})

	notes, err := s.Join("A", t0)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, AudienceMatch, notes[0].Audience)
	assert.Equal(t, StatusWaiting, s.Status())

	notes, err = s.Join("B", t0)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	n := notes[0]
	assert.Equal(t, "m1", n.MatchID)
	assert.Equal(t, AudienceMatch, n.Audience)
	assert.Equal(t, messages.EventState, n.Message.Event)

	state := n.Message.Payload.(messages.StatePayload)
	assert.Equal(t, map[string]color.Color{"A": color.White, "B": color.Black}, state.Colors)
	assert.Equal(t, "A", state.Turn)
	assert.Equal(t, "active", state.Status)
	assert.Equal(t, map[string]int64{"A": 600000, "B": 600000}, state.Clocks)
	assert.Equal(t, []string{"A", "B"}, state.Players)
	assert.Equal(t, StatusActive, s.Status())
}

func TestJoinIsIdempotentForParticipants(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())

	notes, err := s.Join("A", t0.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, AudienceActor, notes[0].Audience)
	assert.Equal(t, messages.EventState, notes[0].Message.Event)
	assert.Equal(t, []string{"A", "B"}, s.Players())
}

func TestJoinRejectsThirdPlayer(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())

	notes, err := s.Join("C", t0)
	assert.ErrorIs(t, err, ErrMatchFull)
	assert.Empty(t, notes)
	assert.Equal(t, []string{"A", "B"}, s.Players())
	c, _ := s.ColorOf("A")
	assert.Equal(t, color.White, c)
}

func TestJoinRejectsEmptyPlayer(t *testing.T) {
	s := NewSession("m1", DefaultSettings(), rules.NewChess(), nil)

	_, err := s.Join("", t0)
	assert.ErrorIs(t, err, ErrEmptyPlayer)
}

func TestMoveAppliedScenario(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())

	notes, err := s.AttemptMove("A", "e2", "e4", t0.Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{messages.EventMoveApplied, messages.EventState}, events(notes))

	applied := notes[0].Message.Payload.(messages.MoveAppliedPayload)
	assert.Equal(t, "e2", applied.From)
	assert.Equal(t, "e4", applied.To)
	assert.Equal(t, AudienceMatch, notes[0].Audience)

	assert.Equal(t, "B", s.Turn())
	state := notes[1].Message.Payload.(messages.StatePayload)
	assert.Equal(t, "B", state.Turn)
	assert.Equal(t, int64(597000), state.Clocks["A"])
	assert.Equal(t, int64(600000), state.Clocks["B"])
}

func TestMoveRejections(t *testing.T) {
	t.Run("not paired", func(t *testing.T) {
		s := NewSession("m1", DefaultSettings(), rules.NewChess(), nil)
		_, _ = s.Join("A", t0)

		_, err := s.AttemptMove("A", "e2", "e4", t0)
		assert.ErrorIs(t, err, ErrNotPaired)
	})

	t.Run("not your turn", func(t *testing.T) {
		s, _ := newPairedSession(t, DefaultSettings())

		_, err := s.AttemptMove("B", "e7", "e5", t0)
		assert.ErrorIs(t, err, ErrNotYourTurn)
		assert.Equal(t, "A", s.Turn())
	})

	t.Run("opponent piece", func(t *testing.T) {
		s, _ := newPairedSession(t, DefaultSettings())

		_, err := s.AttemptMove("A", "e7", "e5", t0)
		assert.ErrorIs(t, err, ErrNotYourPiece)
	})

	t.Run("illegal", func(t *testing.T) {
		s, _ := newPairedSession(t, DefaultSettings())
		before := s.Snapshot(t0).FEN

		notes, err := s.AttemptMove("A", "e2", "e5", t0.Add(time.Second))
		assert.ErrorIs(t, err, ErrIllegalMove)
		assert.Empty(t, notes)
		assert.Equal(t, before, s.Snapshot(t0).FEN)
		assert.Equal(t, "A", s.Turn())
	})

	t.Run("outsider", func(t *testing.T) {
		s, _ := newPairedSession(t, DefaultSettings())

		_, err := s.AttemptMove("C", "e2", "e4", t0)
		assert.ErrorIs(t, err, ErrNotYourTurn)
	})
}

type stubPosition string

func (p stubPosition) FEN() string { return string(p) }

type stubEngine struct {
	owner   color.Color
	legal   bool
	outcome rules.MoveResult
}

func (e *stubEngine) NewPosition() rules.Position { return stubPosition("start") }

func (e *stubEngine) LegalMove(rules.Position, string, string, rules.Promotion) rules.MoveResult {
	if !e.legal {
		return rules.MoveResult{}
	}

	res := e.outcome
	res.Legal = true
	res.Position = stubPosition("next")
	return res
}

func (e *stubEngine) PieceColorAt(rules.Position, string) (color.Color, bool) {
	return e.owner, e.owner != ""
}

func TestMoveAcceptedOnlyWhenAllConditionsHold(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		active := mask&1 != 0
		ownTurn := mask&2 != 0
		ownPiece := mask&4 != 0
		legal := mask&8 != 0

		engine := &stubEngine{owner: color.Black, legal: legal}
		if ownPiece {
			engine.owner = color.White
		}

		s := NewSession("m1", DefaultSettings(), engine, &fakeScheduler{})
		_, _ = s.Join("A", t0)
		_, _ = s.Join("B", t0)
		if !active {
			_, _ = s.Resign("B", t0)
		}

		mover := "B"
		if ownTurn {
			mover = "A"
		}

		notes, err := s.AttemptMove(mover, "e2", "e4", t0.Add(time.Second))
		accepted := err == nil && len(notes) > 0
		assert.Equal(t, active && ownTurn && ownPiece && legal, accepted,
			"active=%v ownTurn=%v ownPiece=%v legal=%v", active, ownTurn, ownPiece, legal)
	}
}

func TestTurnAlternatesBetweenPlayers(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())

	moves := []struct {
		player   string
		from, to string
	}{
		{"A", "e2", "e4"},
		{"B", "e7", "e5"},
		{"A", "g1", "f3"},
		{"B", "b8", "c6"},
	}

	now := t0
	for _, mv := range moves {
		now = now.Add(time.Second)
		_, err := s.AttemptMove(mv.player, mv.from, mv.to, now)
		require.NoError(t, err)
		assert.NotEqual(t, mv.player, s.Turn())
		assert.Contains(t, s.Players(), s.Turn())
	}
}

func TestPawnPromotionDefaultsToQueen(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())

	moves := [][3]string{
		{"A", "h2", "h4"}, {"B", "g7", "g5"},
		{"A", "h4", "g5"}, {"B", "f8", "g7"},
		{"A", "g5", "g6"}, {"B", "a7", "a6"},
		{"A", "g6", "h7"}, {"B", "a6", "a5"},
		{"A", "h7", "g8"},
	}
	now := t0
	for _, mv := range moves {
		now = now.Add(time.Second)
		_, err := s.AttemptMove(mv[0], mv[1], mv[2], now)
		require.NoError(t, err, "%s %s%s", mv[0], mv[1], mv[2])
	}

	assert.True(t, strings.HasPrefix(s.Snapshot(now).FEN, "rnbqk1Qr/"), s.Snapshot(now).FEN)
	assert.Equal(t, "B", s.Turn())
}

func TestTimeoutOnMoveAttempt(t *testing.T) {
	settings := DefaultSettings()
	settings.TimeControl = clock.TimeControl{Initial: time.Minute}
	s, _ := newPairedSession(t, settings)

	notes, err := s.AttemptMove("A", "e2", "e4", t0.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventGameOver}, events(notes))

	over := notes[0].Message.Payload.(messages.GameOverPayload)
	assert.Equal(t, "timeout", over.Reason)
	require.NotNil(t, over.Winner)
	assert.Equal(t, "B", *over.Winner)

	assert.Equal(t, StatusFinished, s.Status())
	snap := s.Snapshot(t0.Add(time.Hour))
	assert.Equal(t, time.Duration(0), snap.Clocks["A"])
	assert.Equal(t, time.Minute, snap.Clocks["B"])
	assert.Equal(t, rules.NewChess().NewPosition().FEN(), snap.FEN)
}

func TestTimeoutBeatsOwnershipCheck(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
	}{
		{"opponent piece", "e7", "e5"},
		{"empty square", "e3", "e4"},
		{"illegal move", "e2", "e5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.TimeControl = clock.TimeControl{Initial: time.Minute}
			s, _ := newPairedSession(t, settings)

			notes, err := s.AttemptMove("A", tt.from, tt.to, t0.Add(2*time.Minute))
			require.NoError(t, err)
			require.Equal(t, []string{messages.EventGameOver}, events(notes))

			over := notes[0].Message.Payload.(messages.GameOverPayload)
			assert.Equal(t, "timeout", over.Reason)
			require.NotNil(t, over.Winner)
			assert.Equal(t, "B", *over.Winner)
			assert.Equal(t, StatusFinished, s.Status())
		})
	}
}

func TestTerminalMoveReasons(t *testing.T) {
	tests := []struct {
		name    string
		outcome rules.MoveResult
		reason  string
		winner  string
	}{
		{"checkmate", rules.MoveResult{Checkmate: true}, "checkmate", "A"},
		{"stalemate", rules.MoveResult{Stalemate: true}, "stalemate", ""},
		{"draw", rules.MoveResult{Draw: true}, "draw", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubEngine{owner: color.White, legal: true, outcome: tt.outcome}
			s := NewSession("m1", DefaultSettings(), engine, &fakeScheduler{})
			_, _ = s.Join("A", t0)
			_, _ = s.Join("B", t0)

			notes, err := s.AttemptMove("A", "e2", "e4", t0.Add(time.Second))
			require.NoError(t, err)
			require.Equal(t, []string{messages.EventMoveApplied, messages.EventState, messages.EventGameOver}, events(notes))

			over := notes[2].Message.Payload.(messages.GameOverPayload)
			assert.Equal(t, tt.reason, over.Reason)
			if tt.winner == "" {
				assert.Nil(t, over.Winner)
			} else {
				require.NotNil(t, over.Winner)
				assert.Equal(t, tt.winner, *over.Winner)
			}

			require.NotNil(t, s.Result())
			assert.Equal(t, Reason(tt.reason), s.Result().Reason)
			assert.Equal(t, tt.winner, s.Result().Winner)
			assert.Equal(t, StatusFinished, s.Status())
		})
	}
}

func TestMoveJustBeforeFlagIsAccepted(t *testing.T) {
	settings := DefaultSettings()
	settings.TimeControl = clock.TimeControl{Initial: time.Minute}
	s, _ := newPairedSession(t, settings)

	_, err := s.AttemptMove("A", "e2", "e4", t0.Add(time.Minute-time.Millisecond))
	require.NoError(t, err)

	snap := s.Snapshot(t0.Add(time.Minute))
	assert.Equal(t, time.Millisecond, snap.Clocks["A"])
	assert.Equal(t, StatusActive, snap.Status)
}

func TestResignScenario(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())

	notes, err := s.Resign("A", t0.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventGameOver}, events(notes))

	over := notes[0].Message.Payload.(messages.GameOverPayload)
	assert.Equal(t, "resignation", over.Reason)
	assert.Equal(t, "B", *over.Winner)
	assert.Equal(t, t0.Add(time.Second+30*time.Second), over.RematchDeadline)

	for _, p := range []string{"A", "B"} {
		notes, err := s.AttemptMove(p, "e2", "e4", t0.Add(2*time.Second))
		assert.ErrorIs(t, err, ErrNotActive)
		assert.Empty(t, notes)
	}

	_, err = s.Resign("B", t0.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestDrawOfferExpiresAndCanBeReissued(t *testing.T) {
	s, sched := newPairedSession(t, DefaultSettings())

	notes, err := s.OfferDraw("A", t0)
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventDrawOffered}, events(notes))
	offered := notes[0].Message.Payload.(messages.OfferPayload)
	assert.Equal(t, "A", offered.By)
	assert.Equal(t, t0.Add(30*time.Second), offered.Deadline)
	assert.Equal(t, 30*time.Second, sched.afters[0])

	_, err = s.OfferDraw("A", t0.Add(time.Second))
	assert.ErrorIs(t, err, ErrOfferPending)
	_, err = s.OfferDraw("B", t0.Add(time.Second))
	assert.ErrorIs(t, err, ErrOfferPending)

	first, _ := sched.last()
	notes, err = s.Expire(first, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{messages.EventDrawOfferExpired}, events(notes))
	assert.Equal(t, offer.Expired, s.Offer(offer.KindDraw).Resolution())

	_, err = s.AcceptDraw("B", t0.Add(31*time.Second))
	assert.ErrorIs(t, err, ErrNoOffer)

	_, err = s.OfferDraw("A", t0.Add(40*time.Second))
	require.NoError(t, err)

	_, err = s.Expire(first, t0.Add(41*time.Second))
	assert.ErrorIs(t, err, ErrStaleExpiry)
	assert.True(t, s.Offer(offer.KindDraw).Pending())
}

func TestAcceptDraw(t *testing.T) {
	s, sched := newPairedSession(t, DefaultSettings())
	_, err := s.OfferDraw("A", t0)
	require.NoError(t, err)

	_, err = s.AcceptDraw("A", t0)
	assert.ErrorIs(t, err, ErrOwnOffer)

	notes, err := s.AcceptDraw("B", t0.Add(5*time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventGameOver}, events(notes))

	over := notes[0].Message.Payload.(messages.GameOverPayload)
	assert.Equal(t, "draw_accepted", over.Reason)
	assert.Nil(t, over.Winner)
	assert.Equal(t, StatusFinished, s.Status())

	e, timer := sched.last()
	assert.True(t, timer.stopped)
	_, err = s.Expire(e, t0.Add(30*time.Second))
	assert.ErrorIs(t, err, ErrStaleExpiry)
}

func TestDeclineDraw(t *testing.T) {
	s, sched := newPairedSession(t, DefaultSettings())
	_, err := s.OfferDraw("B", t0)
	require.NoError(t, err)

	_, err = s.DeclineDraw("B", t0)
	assert.ErrorIs(t, err, ErrOwnOffer)
	_, err = s.DeclineDraw("C", t0)
	assert.ErrorIs(t, err, ErrNotParticipant)

	notes, err := s.DeclineDraw("A", t0.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventDrawDeclined}, events(notes))
	assert.Equal(t, "A", notes[0].Message.Payload.(messages.OfferDeclinedPayload).By)
	assert.Equal(t, StatusActive, s.Status())

	e, timer := sched.last()
	assert.True(t, timer.stopped)

	_, err = s.AcceptDraw("A", t0.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrNoOffer)
	_, err = s.Expire(e, t0.Add(30*time.Second))
	assert.ErrorIs(t, err, ErrStaleExpiry)
}

func TestGameOverCancelsPendingDrawOffer(t *testing.T) {
	s, sched := newPairedSession(t, DefaultSettings())
	_, err := s.OfferDraw("A", t0)
	require.NoError(t, err)

	_, err = s.Resign("B", t0.Add(time.Second))
	require.NoError(t, err)

	e, timer := sched.last()
	assert.True(t, timer.stopped)
	assert.Equal(t, offer.Expired, s.Offer(offer.KindDraw).Resolution())

	notes, err := s.Expire(e, t0.Add(30*time.Second))
	assert.ErrorIs(t, err, ErrStaleExpiry)
	assert.Empty(t, notes)
}

func TestOffersRequireActiveMatch(t *testing.T) {
	s := NewSession("m1", DefaultSettings(), rules.NewChess(), &fakeScheduler{})
	_, _ = s.Join("A", t0)

	_, err := s.OfferDraw("A", t0)
	assert.ErrorIs(t, err, ErrNotActive)
	_, err = s.Resign("A", t0)
	assert.ErrorIs(t, err, ErrNotActive)
	_, err = s.ProposeRematch("A", t0)
	assert.ErrorIs(t, err, ErrNotFinished)
}

func scholarsMate(t *testing.T, s *Session) time.Time {
	t.Helper()

	moves := [][3]string{
		{"A", "e2", "e4"}, {"B", "e7", "e5"},
		{"A", "f1", "c4"}, {"B", "b8", "c6"},
		{"A", "d1", "h5"}, {"B", "g8", "f6"},
	}
	now := t0
	for _, mv := range moves {
		now = now.Add(time.Second)
		_, err := s.AttemptMove(mv[0], mv[1], mv[2], now)
		require.NoError(t, err)
	}
	return now
}

func TestCheckmateThenRematchScenario(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())
	now := scholarsMate(t, s).Add(time.Second)

	notes, err := s.AttemptMove("A", "h5", "f7", now)
	require.NoError(t, err)
	require.Equal(t,
		[]string{messages.EventMoveApplied, messages.EventState, messages.EventGameOver},
		events(notes))

	over := notes[2].Message.Payload.(messages.GameOverPayload)
	assert.Equal(t, "checkmate", over.Reason)
	assert.Equal(t, "A", *over.Winner)
	assert.Equal(t, &Result{Reason: ReasonCheckmate, Winner: "A"}, s.Result())

	_, err = s.AttemptMove("B", "e8", "f7", now.Add(time.Second))
	assert.ErrorIs(t, err, ErrNotActive)

	notes, err = s.ProposeRematch("B", now.Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventRematchProposed}, events(notes))

	_, _, err = s.AcceptRematch("B", "m2", now.Add(3*time.Second))
	assert.ErrorIs(t, err, ErrOwnOffer)

	next, notes, err := s.AcceptRematch("A", "m2", now.Add(3*time.Second))
	require.NoError(t, err)
	require.Equal(t, []string{messages.EventRematchAccepted}, events(notes))
	assert.Equal(t, "m2", notes[0].Message.Payload.(messages.RematchAcceptedPayload).NewMatchID)
	assert.Equal(t, "m1", notes[0].MatchID)

	snap := next.Snapshot(now.Add(3 * time.Second))
	assert.Equal(t, "m2", snap.MatchID)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Equal(t, map[string]color.Color{"B": color.White, "A": color.Black}, snap.Colors)
	assert.Equal(t, "B", snap.Turn)
	assert.Equal(t, []string{"B", "A"}, snap.Players)
	assert.Equal(t, map[string]time.Duration{"A": 10 * time.Minute, "B": 10 * time.Minute}, snap.Clocks)
	assert.Equal(t, rules.NewChess().NewPosition().FEN(), snap.FEN)

	_, err = next.AttemptMove("B", "e2", "e4", now.Add(4*time.Second))
	assert.NoError(t, err)
}

func TestRematchWindowCloses(t *testing.T) {
	s, _ := newPairedSession(t, DefaultSettings())
	_, err := s.Resign("A", t0)
	require.NoError(t, err)

	_, err = s.ProposeRematch("A", t0.Add(30*time.Second))
	assert.ErrorIs(t, err, ErrRematchClosed)
	_, err = s.ProposeRematch("C", t0)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestDeclineAndExpireRematch(t *testing.T) {
	s, sched := newPairedSession(t, DefaultSettings())
	_, err := s.Resign("A", t0)
	require.NoError(t, err)

	_, err = s.ProposeRematch("A", t0.Add(time.Second))
	require.NoError(t, err)
	_, err = s.ProposeRematch("B", t0.Add(time.Second))
	assert.ErrorIs(t, err, ErrOfferPending)

	notes, err := s.DeclineRematch("B", t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{messages.EventRematchDeclined}, events(notes))
	_, timer := sched.last()
	assert.True(t, timer.stopped)

	_, _, err = s.AcceptRematch("B", "m2", t0.Add(3*time.Second))
	assert.ErrorIs(t, err, ErrNoOffer)

	_, err = s.ProposeRematch("B", t0.Add(4*time.Second))
	require.NoError(t, err)

	e, _ := sched.last()
	notes, err = s.Expire(e, t0.Add(34*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{messages.EventRematchExpired}, events(notes))
	assert.Equal(t, offer.Expired, s.Offer(offer.KindRematch).Resolution())
}

func TestTick(t *testing.T) {
	settings := DefaultSettings()
	settings.TimeControl = clock.TimeControl{Initial: time.Minute}
	s, _ := newPairedSession(t, settings)

	notes := s.Tick(t0.Add(10 * time.Second))
	require.Equal(t, []string{messages.EventClock}, events(notes))
	update := notes[0].Message.Payload.(messages.ClockUpdatePayload)
	assert.Equal(t, map[string]int64{"A": 50000, "B": 60000}, update.Clocks)
	assert.Equal(t, "A", update.Turn)

	notes = s.Tick(t0.Add(time.Minute))
	require.Equal(t, []string{messages.EventGameOver}, events(notes))
	over := notes[0].Message.Payload.(messages.GameOverPayload)
	assert.Equal(t, "timeout", over.Reason)
	assert.Equal(t, "B", *over.Winner)

	assert.Empty(t, s.Tick(t0.Add(2*time.Minute)))
}

func TestUsernamesFollowOffersAndRematch(t *testing.T) {
	s := NewSession("m1", DefaultSettings(), rules.NewChess(), &fakeScheduler{})
	_, err := s.JoinAs("A", "alice", t0)
	require.NoError(t, err)
	notes, err := s.JoinAs("B", "bob", t0)
	require.NoError(t, err)

	state := notes[0].Message.Payload.(messages.StatePayload)
	assert.Equal(t, map[string]string{"A": "alice", "B": "bob"}, state.Usernames)

	notes, err = s.OfferDraw("A", t0.Add(10*time.Second))
	require.NoError(t, err)
	offered := notes[0].Message.Payload.(messages.OfferPayload)
	assert.Equal(t, "alice", offered.Username)
	assert.Equal(t, int64(30000), offered.RemainingMs)

	notes, err = s.DeclineDraw("B", t0.Add(11*time.Second))
	require.NoError(t, err)
	declined := notes[0].Message.Payload.(messages.OfferDeclinedPayload)
	assert.Equal(t, "B", declined.By)
	assert.Equal(t, "bob", declined.Username)

	_, err = s.Resign("A", t0.Add(12*time.Second))
	require.NoError(t, err)
	notes, err = s.ProposeRematch("B", t0.Add(13*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "bob", notes[0].Message.Payload.(messages.OfferPayload).Username)

	next, _, err := s.AcceptRematch("A", "m2", t0.Add(14*time.Second))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "alice", "B": "bob"}, next.Snapshot(t0.Add(14*time.Second)).Usernames)
}
