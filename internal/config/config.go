// Package config loads process configuration from the environment, with an
// optional .env file for development.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds everything the process reads from the environment.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    string
	Env          string
	Debug        bool
}

// Load reads the optional .env file and the environment. Missing values fall
// back to development defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "halcyon.db"),
		JWTSecret:    getEnv("JWT_SECRET", "halcyon-dev-secret"),
		Env:          getEnv("ENV", "development"),
		Debug:        os.Getenv("DEBUG") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
