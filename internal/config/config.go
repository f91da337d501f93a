// Package config handles loading and validating runtime configuration for the ratings API.
// Values are read from environment variables so the same binary can run in dev, staging,
// and production; only the environment changes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	// Handy in development; in production the platform sets real environment variables.
	"github.com/joho/godotenv"

	"github.com/trentd187/chess-ratings/internal/rating"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port          string   // TCP port the HTTP server listens on (e.g. "5600")
	Env           string   // "development", "staging", or "production"
	DatabaseURL   string   // PostgreSQL URL, or a file: DSN for SQLite
	JWTSecret     string   // HS256 secret the identity provider signs access tokens with
	MigrationsDir string   // Directory holding the golang-migrate SQL files
	CORSOrigins   []string // Allowed browser origins; "*" when empty

	// Rating starts from rating.DefaultConfig; RATING_* variables override single constants.
	Rating rating.Config
}

// IsProduction reports whether diagnostics (error details, stack traces) must be hidden.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables and returns a populated Config.
// A missing .env file is fine; a malformed numeric setting is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", "5600"),
		Env:           getenv("ENV", "development"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		MigrationsDir: getenv("MIGRATIONS_PATH", "migrations"),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
		Rating:        rating.DefaultConfig(),
	}

	// The managed auth service exposes its signing secret under this name.
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	}

	var err error
	r := &cfg.Rating
	if r.DefaultRating, err = intEnv("RATING_DEFAULT", r.DefaultRating); err != nil {
		return nil, err
	}
	if r.KProvisional, err = floatEnv("RATING_K_PROVISIONAL", r.KProvisional); err != nil {
		return nil, err
	}
	if r.KEstablished, err = floatEnv("RATING_K_ESTABLISHED", r.KEstablished); err != nil {
		return nil, err
	}
	if r.ProvisionalGames, err = intEnv("RATING_PROVISIONAL_GAMES", r.ProvisionalGames); err != nil {
		return nil, err
	}
	if r.EstablishmentBonus, err = intEnv("RATING_ESTABLISHMENT_BONUS", r.EstablishmentBonus); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.Rating.DefaultRating <= 0 {
		return fmt.Errorf("RATING_DEFAULT must be positive, got %d", c.Rating.DefaultRating)
	}
	if c.Rating.KProvisional <= 0 || c.Rating.KEstablished <= 0 {
		return fmt.Errorf("rating K-factors must be positive")
	}
	if c.Rating.ProvisionalGames < 0 {
		return fmt.Errorf("RATING_PROVISIONAL_GAMES must not be negative, got %d", c.Rating.ProvisionalGames)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

// splitList turns "a, b,c" into []string{"a", "b", "c"}, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
