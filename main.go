package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jtpadensity/app"
	"jtpadensity/internal/config"
	"jtpadensity/internal/container"
	"jtpadensity/internal/errors"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appContainer.Connect(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	res, err := appContainer.Replication.Run(ctx, appContainer.Request(app.AllSteps))
	if err != nil {
		appContainer.Shutdown(context.Background())
		log.Fatalf("Replication failed [%s]: %v", errors.GetCode(err), err)
	}

	for _, path := range res.Files {
		log.Printf("Wrote %s", path)
	}
	if err := appContainer.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown: %v", err)
	}
}
