package main

import (
	"context"
	"log"

	"ataraxia/internal/config"
	"ataraxia/internal/db"
	"ataraxia/internal/handler"
	"ataraxia/internal/repository"
	"ataraxia/internal/router"
	"ataraxia/internal/service"
)

func main() {
	cfg := config.Load()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if _, err := db.Migrate(context.Background(), database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	preferenceRepo := repository.NewPreferenceRepository(database)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	preferenceService := service.NewPreferenceService(preferenceRepo, userRepo)

	authHandler := handler.NewAuthHandler(authService)
	preferenceHandler := handler.NewPreferenceHandler(preferenceService)

	engine := router.New(authService, authHandler, preferenceHandler, cfg.CORSOrigins, router.AuthLimit{
		PerSecond: cfg.AuthRatePerSecond,
		Burst:     cfg.AuthRateBurst,
	})
	log.Printf("ataraxia account service listening on :%s", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
