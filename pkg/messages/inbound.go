package messages

import "encoding/json"

// Inbound event types a client may send
const (
	TypeJoin           = "join"
	TypeMove           = "move"
	TypeOfferDraw      = "offer_draw"
	TypeAcceptDraw     = "accept_draw"
	TypeDeclineDraw    = "decline_draw"
	TypeResign         = "resign"
	TypeProposeRematch = "propose_rematch"
	TypeAcceptRematch  = "accept_rematch"
	TypeDeclineRematch = "decline_rematch"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MatchPayload addresses an action to a match
type MatchPayload struct {
	MatchID string `json:"match_id"`
}

// MovePayload represents the payload for making a move during a match
type MovePayload struct {
	MatchID string `json:"match_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}
