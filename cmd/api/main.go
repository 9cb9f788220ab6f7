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
	"jtpadensity/ui"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer c.Shutdown(context.Background())

	if err := c.Connect(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	res, err := c.Replication.Run(ctx, c.Request(app.AllSteps))
	if err != nil {
		log.Fatalf("Replication failed: %v", err)
	}

	server := ui.NewApp(ui.Config{Port: cfg.Server.Port, GinMode: cfg.Server.GinMode},
		ui.ContentFromRun(res, c.Replication.PlotFormat()), c.Repo, c.Logger)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
