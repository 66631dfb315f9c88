package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gitlab.com/dirk.krummacker/connections-service/internal/dashboard"
)

// Usage example on the command line:
// > PORT=8080 go run main.go
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	client := dashboard.NewClient("http://localhost:"+port, "")
	totalWaitTime := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		healthy := client.Healthy(ctx)
		cancel()
		if healthy {
			fmt.Println("service is available")
			break
		}
		totalWaitTime += 5
		fmt.Printf("Waiting %d seconds", totalWaitTime)
		fmt.Println()
		time.Sleep(5 * time.Second)
	}
}
