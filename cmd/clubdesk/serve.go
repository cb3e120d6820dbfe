package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/events"
	"github.com/alfredjeanlab/clubdesk/internal/logging"
	"github.com/alfredjeanlab/clubdesk/internal/server"
	"github.com/alfredjeanlab/clubdesk/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the reference federation API backed by PostgreSQL",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// serve is the server; there is nothing to connect to.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return setup() },
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		level := "info"
		if verbose {
			level = "debug"
		}
		log, err := logging.New(logging.Options{Level: level})
		if err != nil {
			return err
		}
		defer log.Sync()

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		var publisher events.Publisher = &events.NoopPublisher{}
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			log.Info("events enabled", zap.String("nats_url", cfg.NATSURL))
		} else {
			log.Info("events disabled (CLUBDESK_EVENTS_NATS_URL not set)")
		}
		defer publisher.Close()

		clubServer := server.NewClubServer(store, publisher,
			server.WithLogger(log),
			server.WithMetrics(server.NewMetrics()),
			server.WithLocation(location),
		)
		if cfg.AuthToken == "" {
			log.Warn("serve.auth_token is empty; the API accepts unauthenticated requests")
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           clubServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveErr := make(chan error, 1)
		go func() {
			log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case <-cmd.Context().Done():
			log.Info("shutting down")
		case err := <-serveErr:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		log.Info("server stopped")
		return nil
	},
}
