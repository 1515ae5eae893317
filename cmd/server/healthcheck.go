package main

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tecu23/match-server/pkg/events"
)

// stats counts lifecycle events for the health endpoint
type stats struct {
	created  atomic.Int64
	started  atomic.Int64
	finished atomic.Int64
	expired  atomic.Int64
}

func newStats() *stats {
	return &stats{}
}

func (s *stats) subscribe(p *events.Publisher, logger *zap.Logger) {
	p.Subscribe(events.EventMatchCreated, func(events.Event) { s.created.Add(1) })
	p.Subscribe(events.EventMatchStarted, func(events.Event) { s.started.Add(1) })
	p.Subscribe(events.EventMatchFinished, func(events.Event) { s.finished.Add(1) })
	p.Subscribe(events.EventOfferExpired, func(events.Event) { s.expired.Add(1) })

	p.SubscribeAll(func(e events.Event) {
		logger.Debug("event", zap.String("type", string(e.Type)), zap.String("match_id", e.MatchID))
	})
}

type healthResponse struct {
	Status          string `json:"status"`
	Uptime          string `json:"uptime"`
	LiveMatches     int    `json:"live_matches"`
	MatchesCreated  int64  `json:"matches_created"`
	MatchesStarted  int64  `json:"matches_started"`
	MatchesFinished int64  `json:"matches_finished"`
	OffersExpired   int64  `json:"offers_expired"`
}

// handleHealth handles the GET /health endpoint
func (app *application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:          "ok",
		Uptime:          app.Clock.Since(app.StartTime).String(),
		LiveMatches:     app.Registry.Len(),
		MatchesCreated:  app.Stats.created.Load(),
		MatchesStarted:  app.Stats.started.Load(),
		MatchesFinished: app.Stats.finished.Load(),
		OffersExpired:   app.Stats.expired.Load(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		app.Logger.Error("encode health response", zap.Error(err))
	}
}
