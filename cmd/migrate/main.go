package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"jtpadensity/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// migrate applies the result-store schema. Usage: migrate [database_url] [--print]
func main() {
	_ = godotenv.Load()
	runner := migration.NewRunner()

	databaseURL := os.Getenv("DATABASE_URL")
	for _, arg := range os.Args[1:] {
		if arg == "--print" {
			for _, stmt := range runner.Statements() {
				fmt.Println(stmt + ";")
			}
			return
		}
		databaseURL = arg
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate <database_url> (or set DATABASE_URL), or migrate --print")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := runner.Run(context.Background(), db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema is at version %s (%d statements applied)", runner.Version(), len(runner.Statements()))
}
