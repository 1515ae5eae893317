// Package events is an in-process publisher for match lifecycle events
package events

import (
	"sync"

	"go.uber.org/zap"
)

// EventType names a lifecycle transition
type EventType string

// Lifecycle events published by the manager and the hub
const (
	EventMatchCreated     EventType = "MATCH_CREATED"
	EventMatchStarted     EventType = "MATCH_STARTED"
	EventMatchFinished    EventType = "MATCH_FINISHED"
	EventRematchAccepted  EventType = "REMATCH_ACCEPTED"
	EventOfferExpired     EventType = "OFFER_EXPIRED"
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
)

// Event is one lifecycle transition. MatchID is empty for connection events.
type Event struct {
	Type    EventType
	MatchID string
	Payload interface{}
}

// Handler observes events. It runs on its own goroutine and must not
// touch match state.
type Handler func(event Event)

// Publisher fans lifecycle events out to observers such as the health
// counters. Publishing never blocks the match loop.
type Publisher struct {
	mu    sync.RWMutex
	typed map[EventType][]Handler
	all   []Handler

	inflight sync.WaitGroup
	logger   *zap.Logger
}

// NewPublisher creates a publisher with no observers
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{
		typed:  make(map[EventType][]Handler),
		logger: logger,
	}
}

// Subscribe observes a single event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.typed[eventType] = append(p.typed[eventType], handler)
}

// SubscribeAll observes every event type
func (p *Publisher) SubscribeAll(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.all = append(p.all, handler)
}

// Publish hands event to the typed observers first, then to the ones
// watching everything
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := make([]Handler, 0, len(p.typed[event.Type])+len(p.all))
	handlers = append(handlers, p.typed[event.Type]...)
	handlers = append(handlers, p.all...)
	p.mu.RUnlock()

	for _, handler := range handlers {
		p.inflight.Add(1)
		go p.run(handler, event)
	}
}

// Wait blocks until every handler started so far has returned
func (p *Publisher) Wait() {
	p.inflight.Wait()
}

// run calls handler and logs a panic instead of propagating it
func (p *Publisher) run(handler Handler, event Event) {
	defer p.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event handler panicked",
				zap.String("type", string(event.Type)),
				zap.String("match_id", event.MatchID),
				zap.Any("panic", r))
		}
	}()

	handler(event)
}
