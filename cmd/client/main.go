package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gitlab.com/dirk.krummacker/connections-service/internal/dashboard"
	"gitlab.com/dirk.krummacker/connections-service/internal/logger"
	"gitlab.com/dirk.krummacker/connections-service/internal/model"
)

// Usage example on the command line:
// > NEXUS_TOKEN=eyJhbGciOi... go run main.go bench --sizes 100,1000
// > go run main.go --url http://localhost:8080 dashboard
func main() {
	cmd := &cli.Command{
		Name:  "client",
		Usage: "Command line client for the connections service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Base URL of the service",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("NEXUS_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Session token sent as bearer token",
				Sources: cli.EnvVars("NEXUS_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "bench",
				Usage:  "Measure the average duration of POST, PUT, GET and DELETE requests",
				Action: bench,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "sizes",
						Usage: "Comma separated numbers of requests per row",
						Value: "1000,5000,10000",
					},
				},
			},
			{
				Name:   "dashboard",
				Usage:  "Interactive dashboard on the terminal",
				Action: interactive,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "client error:", err)
		os.Exit(1)
	}
}

func newClient(cmd *cli.Command) *dashboard.Client {
	return dashboard.NewClient(cmd.String("url"), cmd.String("token"))
}

func interactive(ctx context.Context, cmd *cli.Command) error {
	log := logger.NewWithWriter(os.Stderr, "connections-client", "warn")
	session := dashboard.NewSession(newClient(cmd), log)
	if err := session.Load(ctx); err != nil {
		return err
	}
	fmt.Printf("%d connections loaded, type help for the commands\n", len(session.Connections()))
	return dashboard.RunShell(ctx, session, os.Stdin, os.Stdout)
}

func parseSizes(value string) ([]int, error) {
	var sizes []int
	for _, field := range strings.Split(value, ",") {
		size, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || size < 1 {
			return nil, errors.Errorf("invalid size %q", field)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func bench(ctx context.Context, cmd *cli.Command) error {
	sizes, err := parseSizes(cmd.String("sizes"))
	if err != nil {
		return err
	}
	client := newClient(cmd)
	connection := model.Connection{
		Name:         "Marcus Antonius",
		Relationship: "Colleague",
		Importance:   model.ImportanceHigh,
		LastContact:  "0027-11-09",
		Notes:        "+39 999 777 555",
	}

	fmt.Println()
	fmt.Println("  Elements      POST       PUT       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)

		// POST requests
		ids := make([]string, 0, loops)
		var duration time.Duration
		for i := 0; i < loops; i++ {
			before := time.Now()
			id, err := client.Create(ctx, connection)
			duration += time.Since(before)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		printAverage(duration, loops)

		// PUT requests
		shuffle(ids)
		if err := callInLoop(ids, func(id string) error {
			updated := connection
			updated.ID = id
			updated.Notes = "moved to Alexandria"
			return client.Update(ctx, updated)
		}); err != nil {
			return err
		}

		// GET requests, the service only lists whole collections
		if err := callInLoop(ids, func(string) error {
			_, err := client.List(ctx)
			return err
		}); err != nil {
			return err
		}

		// DELETE requests
		shuffle(ids)
		if err := callInLoop(ids, func(id string) error {
			return client.Delete(ctx, id)
		}); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func callInLoop(ids []string, f func(id string) error) error {
	var duration time.Duration
	for _, id := range ids {
		before := time.Now()
		if err := f(id); err != nil {
			return err
		}
		duration += time.Since(before)
	}
	printAverage(duration, len(ids))
	return nil
}

// printAverage prints the average duration in microseconds.
func printAverage(duration time.Duration, loops int) {
	fmt.Printf("%10d", duration.Microseconds()/int64(loops))
}

func shuffle(ids []string) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
