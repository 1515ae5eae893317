// Package server multiplexes websocket connections onto match sessions
package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tecu23/match-server/pkg/events"
	"github.com/tecu23/match-server/pkg/manager"
	"github.com/tecu23/match-server/pkg/match"
	"github.com/tecu23/match-server/pkg/messages"
)

var errMissingMatchID = errors.New("match_id is required")

// InboundHubMessage is a raw frame read from a connection
type InboundHubMessage struct {
	Conn *Connection // who sent it
	Data []byte
}

// Hub keeps track of every connection and of which matches each one
// follows. All match work happens on the Run goroutine: inbound frames,
// offer expiries and clock ticks are applied one at a time, in the order
// they arrive.
type Hub struct {
	connections   map[*Connection]bool            // Registered connections
	subscriptions map[string]map[*Connection]bool // match id -> followers

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Frames read from clients
	ticks      chan struct{}          // Clock broadcast requests
	quit       chan struct{}
	done       chan struct{}

	manager   *manager.Manager
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewHub creates a new hub
func NewHub(m *manager.Manager, publisher *events.Publisher, logger *zap.Logger) *Hub {
	return &Hub{
		connections:   make(map[*Connection]bool),
		subscriptions: make(map[string]map[*Connection]bool),
		register:      make(chan *Connection),
		unregister:    make(chan *Connection),
		inbound:       make(chan InboundHubMessage, 256),
		ticks:         make(chan struct{}, 1),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		manager:       m,
		publisher:     publisher,
		logger:        logger,
	}
}

// Run is the main execution of the hub. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case e := <-h.manager.Expirations():
			h.deliver(nil, h.manager.Expire(e))

		case <-h.ticks:
			h.deliver(nil, h.manager.Tick())

		case <-h.quit:
			for conn := range h.connections {
				h.unregisterConnection(conn)
			}
			return
		}
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.ws.Close()
	}
}

// Unregister removes a connection and all of its subscriptions
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Tick requests a clock broadcast. Requests made while one is already
// queued are merged.
func (h *Hub) Tick() {
	select {
	case h.ticks <- struct{}{}:
	default:
	}
}

// Shutdown stops the loop and closes every connection
func (h *Hub) Shutdown() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

func (h *Hub) registerConnection(conn *Connection) {
	h.connections[conn] = true
	h.logger.Info("connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.String("player_id", conn.PlayerID),
		zap.Int("connections", len(h.connections)))

	h.send(conn, messages.OutboundMessage{
		Event: messages.EventConnected,
		Payload: messages.ConnectedPayload{
			ConnectionID: conn.ID.String(),
			PlayerID:     conn.PlayerID,
		},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	if _, ok := h.connections[conn]; !ok {
		return
	}

	delete(h.connections, conn)
	for matchID, followers := range h.subscriptions {
		delete(followers, conn)
		if len(followers) == 0 {
			delete(h.subscriptions, matchID)
		}
	}
	close(conn.send)

	h.logger.Info("connection unregistered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", len(h.connections)))

	if h.publisher != nil {
		h.publisher.Publish(events.Event{
			Type: events.EventConnectionClosed,
			Payload: map[string]string{
				"connection_id": conn.ID.String(),
				"player_id":     conn.PlayerID,
			},
		})
	}
}

// handleInbound decodes a client frame and routes it to its match
func (h *Hub) handleInbound(msg InboundHubMessage) {
	if _, ok := h.connections[msg.Conn]; !ok {
		return
	}

	action, err := decodeAction(msg.Data)
	if err != nil {
		h.logger.Debug("malformed message",
			zap.String("connection_id", msg.Conn.ID.String()),
			zap.Error(err))
		h.sendError(msg.Conn, err.Error())
		return
	}
	action.PlayerID = msg.Conn.PlayerID
	action.Username = msg.Conn.Username

	res := h.manager.Handle(action)
	if res.Joined {
		h.subscribe(action.MatchID, msg.Conn)
	}

	h.deliver(msg.Conn, res.Notifications)
}

func decodeAction(data []byte) (manager.Action, error) {
	var inbound messages.InboundMessage
	if err := json.Unmarshal(data, &inbound); err != nil {
		return manager.Action{}, fmt.Errorf("invalid message: %w", err)
	}

	action := manager.Action{Kind: manager.ActionKind(inbound.Type)}

	switch inbound.Type {
	case messages.TypeMove:
		var payload messages.MovePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return manager.Action{}, fmt.Errorf("invalid %s payload: %w", inbound.Type, err)
		}
		action.MatchID = payload.MatchID
		action.From = payload.From
		action.To = payload.To

	case messages.TypeJoin,
		messages.TypeOfferDraw,
		messages.TypeAcceptDraw,
		messages.TypeDeclineDraw,
		messages.TypeResign,
		messages.TypeProposeRematch,
		messages.TypeAcceptRematch,
		messages.TypeDeclineRematch:
		var payload messages.MatchPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return manager.Action{}, fmt.Errorf("invalid %s payload: %w", inbound.Type, err)
		}
		action.MatchID = payload.MatchID

	default:
		return manager.Action{}, fmt.Errorf("unknown message type %q", inbound.Type)
	}

	if action.MatchID == "" {
		return manager.Action{}, errMissingMatchID
	}

	return action, nil
}

func (h *Hub) subscribe(matchID string, conn *Connection) {
	followers, ok := h.subscriptions[matchID]
	if !ok {
		followers = make(map[*Connection]bool)
		h.subscriptions[matchID] = followers
	}
	followers[conn] = true
}

// deliver fans notifications out in order. actor is the connection that
// caused them, nil for expiries and ticks.
func (h *Hub) deliver(actor *Connection, notes []match.Notification) {
	for _, n := range notes {
		if n.Audience == match.AudienceActor {
			if actor != nil {
				h.send(actor, n.Message)
			}
			continue
		}

		for conn := range h.subscriptions[n.MatchID] {
			h.send(conn, n.Message)
		}

		if n.Message.Event == messages.EventRematchAccepted {
			h.moveSubscriptions(n)
		}
	}
}

// moveSubscriptions makes the followers of a rematched match follow its
// successor. The old id is retired and will never produce traffic again.
func (h *Hub) moveSubscriptions(n match.Notification) {
	payload, ok := n.Message.Payload.(messages.RematchAcceptedPayload)
	if !ok {
		return
	}

	for conn := range h.subscriptions[n.MatchID] {
		h.subscribe(payload.NewMatchID, conn)
	}
	delete(h.subscriptions, n.MatchID)
}

func (h *Hub) sendError(conn *Connection, msg string) {
	h.send(conn, messages.OutboundMessage{
		Event:   messages.EventError,
		Payload: messages.ErrorPayload{Message: msg},
	})
}

// send queues msg on conn. A connection whose buffer is full is dropped
// rather than stalling every match.
func (h *Hub) send(conn *Connection, msg messages.OutboundMessage) {
	if !h.connections[conn] {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal outbound message", zap.String("event", msg.Event), zap.Error(err))
		return
	}

	select {
	case conn.send <- data:
	default:
		h.logger.Warn("connection too slow, dropping",
			zap.String("connection_id", conn.ID.String()))
		h.unregisterConnection(conn)
	}
}
