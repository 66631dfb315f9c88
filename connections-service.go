package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gitlab.com/dirk.krummacker/connections-service/internal/app"
	"gitlab.com/dirk.krummacker/connections-service/internal/identity"
	"gitlab.com/dirk.krummacker/connections-service/internal/logger"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
	"gitlab.com/dirk.krummacker/connections-service/internal/service"
	"gitlab.com/dirk.krummacker/connections-service/internal/store"
	"gitlab.com/dirk.krummacker/connections-service/internal/suggestion"
)

// demoConfig is the configuration of the demo. The demo runs on an in-memory store and signs
// every caller in as the same user.
type demoConfig struct {
	Port         int    `envconfig:"PORT" default:"8080"`
	User         string `envconfig:"DEMO_USER" default:"demo-user"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
}

// Usage example:
// > OPENAI_API_KEY=sk-... go run connections-service.go
// > open http://localhost:8080/dashboard
func main() {
	var cfg demoConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New("connections-demo", "info")

	s := store.NewMemoryStore()
	if err := populateStore(context.Background(), s, cfg.User); err != nil {
		log.Fatal().Err(err).Msg("failed to populate the store")
	}
	router := service.New(service.Options{
		Store:          s,
		Verifier:       identity.StaticVerifier{UserID: cfg.User},
		Suggester:      suggestion.NewClient(suggestion.Config{APIKey: cfg.OpenAIAPIKey}),
		Logger:         log,
		RequestLogging: true,
	}).SetupHttpRouter()

	if err := app.Serve(context.Background(), log, fmt.Sprintf(":%d", cfg.Port), router, s); err != nil {
		os.Exit(1)
	}
}

// initialConnections is the test data of the demo.
func initialConnections() []model.Connection {
	return []model.Connection{
		{
			Name:                "Dirk Krummacker",
			Relationship:        "Colleague",
			Importance:          model.ImportanceHigh,
			LastContact:         "2024-11-29",
			NextContact:         "2025-01-15",
			Notes:               "Working on the contacts service, likes Go.",
			CTOs:                model.StringList{"Send the benchmark results"},
			FutureTalkingPoints: model.StringList{"Conference in Prague"},
		},
		{
			Name:         "Pavla Krummackerova",
			Relationship: "Friend",
			Importance:   model.ImportanceMedium,
			LastContact:  "2024-01-27",
			Notes:        "Birthday on January 27.",
		},
		{
			Name:                "Adam Krummacker",
			Relationship:        "Mentee",
			Importance:          model.ImportanceLow,
			LastContact:         "2024-03-31",
			FutureTalkingPoints: model.StringList{"University applications"},
		},
		{
			Name:         "David Krummacker",
			Relationship: "Mentee",
			Importance:   model.ImportanceMedium,
			LastContact:  "2024-12-11",
			CTOs:         model.StringList{"Recommend a book on algorithms"},
		},
	}
}

// populateStore enters the initial test data for the owner. A connection whose name is already
// present is not added again.
func populateStore(ctx context.Context, s store.Store, ownerID string) error {
	existing, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	present := map[string]bool{}
	for _, c := range existing {
		present[c.Name] = true
	}
	for _, c := range initialConnections() {
		if present[c.Name] {
			continue
		}
		if _, err := s.Insert(ctx, ownerID, c); err != nil {
			return err
		}
	}
	return nil
}
