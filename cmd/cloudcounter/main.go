// main.go - HTTP server application
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philippdubach/cloudcounter/internal"
	"github.com/philippdubach/cloudcounter/internal/seeder"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "seed" {
		runSeed(os.Args[2:])
		return
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	log.Println("Starting application...")
	if err := app.StartAsync(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	log.Println("Application started successfully")

	waitForShutdownSignal(app)
}

// runSeed populates the database with sample traffic for local development
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	count := fs.Int("hits", 10000, "number of hits to generate")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	se := seeder.NewSeeder(app.DBManager, app.Processor, slog.Default(), *count)
	if err := se.Run(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	log.Printf("Seeded %d hits", *count)
}

// waitForShutdownSignal sets up signal handling and performs graceful shutdown
func waitForShutdownSignal(app *internal.Application) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	log.Println("Initiating graceful shutdown...")
	if err := app.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
		os.Exit(1)
	}
	log.Println("Server shutdown complete")
}
