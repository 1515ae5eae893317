// Package messages defines the JSON envelopes exchanged over the websocket
package messages

import (
	"time"

	"github.com/tecu23/match-server/internal/color"
)

// Outbound event names
const (
	EventConnected        = "connected"
	EventState            = "state"
	EventMoveApplied      = "move_applied"
	EventDrawOffered      = "draw_offered"
	EventDrawDeclined     = "draw_declined"
	EventDrawOfferExpired = "draw_offer_expired"
	EventGameOver         = "game_over"
	EventRematchProposed  = "rematch_proposed"
	EventRematchDeclined  = "rematch_declined"
	EventRematchExpired   = "rematch_expired"
	EventRematchAccepted  = "rematch_accepted"
	EventClock            = "clock"
	EventError            = "error"
)

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	PlayerID     string `json:"player_id"`
}

// StatePayload is the full match snapshot used for (re)synchronisation
type StatePayload struct {
	MatchID   string                 `json:"match_id"`
	Status    string                 `json:"status"`
	FEN       string                 `json:"fen"`
	Turn      string                 `json:"turn"`
	Colors    map[string]color.Color `json:"color_assignment"`
	Usernames map[string]string      `json:"usernames,omitempty"`
	Clocks    map[string]int64       `json:"clocks"`
	Players   []string               `json:"players"`
	Reason    string                 `json:"reason,omitempty"`
	Winner    string                 `json:"winner,omitempty"`
	Deadline  *time.Time             `json:"rematch_deadline,omitempty"`
}

type MoveAppliedPayload struct {
	MatchID string `json:"match_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	By      string `json:"by"`
}

// OfferPayload announces a new draw or rematch offer
type OfferPayload struct {
	MatchID     string    `json:"match_id"`
	By          string    `json:"by"`
	Username    string    `json:"username,omitempty"`
	Deadline    time.Time `json:"deadline"`
	RemainingMs int64     `json:"remaining_ms"`
}

// OfferDeclinedPayload names who turned an offer down
type OfferDeclinedPayload struct {
	MatchID  string `json:"match_id"`
	By       string `json:"by"`
	Username string `json:"username,omitempty"`
}

type OfferExpiredPayload struct {
	MatchID string `json:"match_id"`
}

// GameOverPayload is sent once when a match reaches its terminal state.
// Winner is nil for drawn games.
type GameOverPayload struct {
	MatchID         string    `json:"match_id"`
	Reason          string    `json:"reason"`
	Winner          *string   `json:"winner"`
	RematchDeadline time.Time `json:"rematch_deadline"`
}

type RematchAcceptedPayload struct {
	MatchID    string `json:"match_id"`
	NewMatchID string `json:"new_match_id"`
}

// ClockUpdatePayload contains the remaining time of both players in milliseconds
type ClockUpdatePayload struct {
	MatchID string           `json:"match_id"`
	Clocks  map[string]int64 `json:"clocks"`
	Turn    string           `json:"turn"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
