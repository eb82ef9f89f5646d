package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/famguard/FamGuardBack/internal/config"
	"github.com/famguard/FamGuardBack/internal/database"
	"github.com/famguard/FamGuardBack/internal/notify"
	"github.com/famguard/FamGuardBack/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	db, err := database.Connect(context.Background(), cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var events notify.Publisher = notify.NopPublisher{}
	if cfg.RedisURL != "" {
		publisher, err := notify.NewRedisPublisher(context.Background(), cfg.RedisURL, cfg.NotifyChannel)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer publisher.Close()
		events = publisher
	}

	app := fiber.New()

	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	routes.RegisterRoutes(app, cfg, db, events)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
