package match

import (
	"github.com/tecu23/match-server/pkg/messages"
)

// Audience says which connections a notification is meant for
type Audience int

const (
	// AudienceMatch reaches every connection subscribed to the match
	AudienceMatch Audience = iota
	// AudienceActor reaches only the connection that sent the action
	AudienceActor
)

// Notification is an outbound message produced by a session. Sessions never
// write to connections themselves; the multiplexer fans these out in order.
type Notification struct {
	MatchID  string
	Audience Audience
	Message  messages.OutboundMessage
}

func (s *Session) notify(audience Audience, event string, payload interface{}) Notification {
	return Notification{
		MatchID:  s.ID,
		Audience: audience,
		Message: messages.OutboundMessage{
			Event:   event,
			Payload: payload,
		},
	}
}
