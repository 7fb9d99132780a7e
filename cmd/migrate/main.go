package main

import (
	"context"
	"log"

	"ataraxia/internal/config"
	"ataraxia/internal/db"
)

func main() {
	cfg := config.Load()
	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	applied, err := db.Migrate(context.Background(), database, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	if len(applied) == 0 {
		log.Printf("%s is up to date", cfg.DBPath)
		return
	}
	for _, name := range applied {
		log.Printf("applied %s to %s", name, cfg.DBPath)
	}
}
