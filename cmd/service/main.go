package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"gitlab.com/dirk.krummacker/connections-service/internal/app"
	"gitlab.com/dirk.krummacker/connections-service/internal/config"
)

// Usage example on the command line:
// > DATABASE_URI=sqlite://nexus.db AUTH_MODE=static PORT=8080 GIN_MODE=release go run main.go
func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Bool("check-config") {
		fmt.Printf("configuration is valid, listening on %s with auth mode %s\n", cfg.Address(), cfg.Auth.Mode)
		return nil
	}
	if err := app.Run(ctx, cfg); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "connections-service",
		Usage:  "Personal relationship manager: connections API, AI suggestions and dashboard",
		Action: run,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check-config",
				Usage: "Validate the environment configuration and exit",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "application error:", err)
		os.Exit(1)
	}
}
