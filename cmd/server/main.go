package main

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/router"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/validators"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/pkg/config"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/pkg/media"
)

func main() {
	// Initialize database connection (loads .env first)
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB() // Ensure database connection is closed when main exits

	// Load configuration
	cfg := config.Load()

	// Initialize media store
	mediaStore, err := media.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media store: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e, cfg)

	// Setup routes and dependencies
	router.SetupRoutes(e, db.Mongo, mediaStore, cfg)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
