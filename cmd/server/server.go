package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// serve starts the http server and handles graceful shutdown
func (app *application) serve() error {
	app.Server = &http.Server{
		Addr:         ":" + app.Config.Port,
		Handler:      app.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownError := make(chan error, 1)

	go func() {
		// Set up signal handling for graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		// Wait for shutdown signal
		s := <-quit
		app.Logger.Info("Shutting down server", zap.String("signal", s.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		shutdownError <- app.Shutdown(ctx)
	}()

	app.Logger.Info("Starting server", zap.String("address", app.Server.Addr))

	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownError; err != nil {
		return err
	}

	app.Logger.Info("Server stopped gracefully")
	return nil
}

// Shutdown stops accepting connections and then the match loop. Every
// component is stopped even when an earlier one fails.
func (app *application) Shutdown(ctx context.Context) error {
	var err error

	if app.Server != nil {
		err = multierr.Append(err, app.Server.Shutdown(ctx))
	}
	if app.Scheduler != nil {
		err = multierr.Append(err, app.Scheduler.Shutdown())
	}
	if app.Hub != nil {
		app.Hub.Shutdown()
	}
	if app.Timers != nil {
		app.Timers.Close()
	}
	if app.Publisher != nil {
		app.Publisher.Wait()
	}

	if err != nil {
		app.Logger.Error("shutdown finished with errors", zap.Errors("errors", multierr.Errors(err)))
		return err
	}

	app.Logger.Info("All components shut down successfully")
	return nil
}
