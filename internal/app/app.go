// Package app wires the connections service from its configuration and runs the HTTP server
// until a shutdown signal arrives.
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gitlab.com/dirk.krummacker/connections-service/internal/config"
	"gitlab.com/dirk.krummacker/connections-service/internal/identity"
	"gitlab.com/dirk.krummacker/connections-service/internal/logger"
	"gitlab.com/dirk.krummacker/connections-service/internal/service"
	"gitlab.com/dirk.krummacker/connections-service/internal/store"
	"gitlab.com/dirk.krummacker/connections-service/internal/suggestion"
)

// ServiceName is the value of the "service" field of every log line.
const ServiceName = "connections-service"

// shutdownTimeout is how long running requests may take after a shutdown signal.
const shutdownTimeout = 10 * time.Second

// NewVerifier creates the identity verifier for the auth configuration.
func NewVerifier(cfg config.AuthConfig) (identity.Verifier, error) {
	switch cfg.Mode {
	case config.AuthModeStatic:
		return identity.StaticVerifier{UserID: cfg.StaticUser}, nil
	case config.AuthModeJWT:
		return identity.NewJWTVerifier(identity.JWTConfig{
			Secret:    cfg.JWTSecret,
			PublicKey: cfg.JWTPublicKey,
			Issuer:    cfg.JWTIssuer,
		})
	default:
		return nil, errors.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// Run opens the store, builds the service and serves it until ctx is cancelled or the process
// receives SIGINT or SIGTERM.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(ServiceName, cfg.LogLevel)
	log.Info().
		Str("http_address", cfg.Address()).
		Str("auth_mode", cfg.Auth.Mode).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")
	if cfg.Auth.Mode == config.AuthModeStatic {
		log.Warn().Str("user", cfg.Auth.StaticUser).Msg("Static auth mode: every caller is the same user")
	}

	verifier, err := NewVerifier(cfg.Auth)
	if err != nil {
		return errors.Wrap(err, "init identity")
	}
	s, err := store.Open(cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		return errors.Wrap(err, "init store")
	}

	svc := service.New(service.Options{
		Store:    s,
		Verifier: verifier,
		Suggester: suggestion.NewClient(suggestion.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}),
		Logger:         log,
		RequestLogging: cfg.RequestLogging(),
		SignInURL:      cfg.Auth.SignInURL,
	})
	return Serve(ctx, log, cfg.Address(), svc.SetupHttpRouter(), s)
}

// Serve runs the HTTP server on the address. On shutdown it lets running requests finish for
// up to ten seconds and closes the store afterwards.
func Serve(ctx context.Context, log zerolog.Logger, address string, handler http.Handler, s store.Store) error {
	httpServer := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("address", address).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "HTTP server error")
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		case <-gCtx.Done():
			log.Info().Msg("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		if err := s.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Store close error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Stack().Err(err).Msg("Application error")
		return err
	}
	log.Info().Msg("Server stopped successfully")
	return nil
}
