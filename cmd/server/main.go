// Package main is the entry point of the application
package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/match-server/internal/auth"
	"github.com/tecu23/match-server/pkg/config"
	"github.com/tecu23/match-server/pkg/events"
	"github.com/tecu23/match-server/pkg/manager"
	"github.com/tecu23/match-server/pkg/match"
	"github.com/tecu23/match-server/pkg/repository"
	"github.com/tecu23/match-server/pkg/rules"
	"github.com/tecu23/match-server/pkg/server"
)

// App encapsulates global dependencies
type application struct {
	Auth      *auth.TokenAuth
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Registry  *repository.InMemoryRepository
	Timers    *manager.Timers
	Hub       *server.Hub
	Scheduler gocron.Scheduler
	Server    *http.Server
	Stats     *stats

	upgrader  websocket.Upgrader
	StartTime time.Time
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port, overrides PORT")
	envFile := flag.String("env", ".env", "optional env file")
	flag.Parse()

	cfg, cfgErr := config.Load(*envFile)

	// Initialize logger
	logger := initLogger(*debug || (cfgErr == nil && cfg.Debug))
	defer logger.Sync() //nolint:errcheck

	if cfgErr != nil {
		logger.Fatal("loading config error", zap.Error(cfgErr))
	}
	if *port != "" {
		cfg.Port = *port
	}

	clock := clockwork.NewRealClock()

	// Initialize event publisher
	publisher := events.NewPublisher(logger)
	st := newStats()
	st.subscribe(publisher, logger)

	// Offer deadlines are armed here and drained by the hub loop
	timers := manager.NewTimers(clock)

	settings := cfg.MatchSettings()
	engine := rules.NewChess()
	registry := repository.NewInMemoryRepository(func(id string) *match.Session {
		return match.NewSession(id, settings, engine, timers)
	}, logger)

	gm := manager.NewManager(registry, timers, clock, publisher, logger)
	hub := server.NewHub(gm, publisher, logger)

	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		logger.Fatal("create scheduler error", zap.Error(err))
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.ClockBroadcast),
		gocron.NewTask(hub.Tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Fatal("schedule clock broadcast error", zap.Error(err))
	}

	app := &application{
		Auth:      auth.NewTokenAuth(cfg.JWTSecret, clock),
		Clock:     clock,
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Registry:  registry,
		Timers:    timers,
		Hub:       hub,
		Scheduler: scheduler,
		Stats:     st,
		StartTime: clock.Now(),
	}
	app.upgrader = app.newUpgrader()

	go app.Hub.Run()
	app.Scheduler.Start()

	logger.Info("match settings",
		zap.Duration("starting_time", settings.TimeControl.Initial),
		zap.Duration("increment", settings.TimeControl.Increment),
		zap.Duration("offer_window", settings.OfferWindow),
		zap.Duration("rematch_window", settings.RematchWindow),
		zap.Duration("clock_broadcast", cfg.ClockBroadcast))

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}
