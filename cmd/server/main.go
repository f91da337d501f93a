// cmd/server/main.go
// This is the entry point for the chess ratings API server.
// The cmd/ folder holds executable binaries; internal/ holds the packages they are
// built from, which other modules cannot import.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/trentd187/chess-ratings/internal/config"
	"github.com/trentd187/chess-ratings/internal/database"
	"github.com/trentd187/chess-ratings/internal/handlers"
	"github.com/trentd187/chess-ratings/internal/logging"
	"github.com/trentd187/chess-ratings/internal/middleware"
	"github.com/trentd187/chess-ratings/internal/rating"
	"github.com/trentd187/chess-ratings/internal/service"
	"github.com/trentd187/chess-ratings/internal/websocket"
)

func main() {
	// Load configuration from environment variables (and optionally a .env file).
	cfg, err := config.Load()
	if err != nil {
		// No configured logger yet, so use a plain production one.
		log := logging.New("production")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg.Env)

	// Connect to the database. SQL logging goes through the same zerolog logger;
	// outside production every statement is logged.
	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		Logger:  &log,
		Verbose: !cfg.IsProduction(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Bring the schema up to date before serving: SQL migrations on Postgres,
	// AutoMigrate on a local SQLite file.
	if err := database.Migrate(db, cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// The Hub fans tournament events out to WebSocket spectators. "go hub.Run()" runs
	// its event loop in the background for the life of the process.
	hub := websocket.NewHub()
	go hub.Run()

	engine := rating.NewEngine(cfg.Rating)
	services := service.New(db, engine, hub, log)

	app := fiber.New(fiber.Config{
		AppName:      "Chess Ratings API",
		ErrorHandler: handlers.ErrorHandler(log, cfg.IsProduction()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// --- Global middleware ---
	// recover turns a panic in a handler into a 500 instead of crashing the server.
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	// logger writes one access-log line per request: method, path, status, latency.
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.Register(app, handlers.Deps{
		DB:       db,
		Verifier: middleware.NewJWTVerifier(cfg.JWTSecret),
		Services: services,
		Hub:      hub,
	})

	// Serve in the background so main can wait for SIGINT/SIGTERM and shut down
	// cleanly: in-flight requests finish, then the hub closes spectator feeds.
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	hub.Stop()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
