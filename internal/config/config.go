// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	JWT       JWTConfig
	Player    PlayerConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
	Env   string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds the settings used to validate access tokens issued by the hosted auth service
type JWTConfig struct {
	Secret string
}

// PlayerConfig holds lesson player settings
type PlayerConfig struct {
	// EmbedOrigin is passed to the video host as the "origin" embed parameter when set.
	EmbedOrigin string
	// CompleteOnAdvance marks the lesson being left as completed when the learner moves to the next one.
	CompleteOnAdvance bool
	// SessionTTL is the idle time after which a player session is dropped.
	SessionTTL time.Duration
}

// RateLimitConfig holds per-IP request limits
type RateLimitConfig struct {
	RequestsPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080" // default port
	}
	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	logEnv := os.Getenv("LOG_ENV")
	if logEnv == "" {
		logEnv = "production"
	}
	if logEnv != "production" && logEnv != "development" {
		return nil, fmt.Errorf("invalid LOG_ENV: %s, must be 'production' or 'development'", logEnv)
	}
	cfg.Logging.Env = logEnv

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	// Player configuration
	cfg.Player.EmbedOrigin = os.Getenv("PLAYER_EMBED_ORIGIN")

	completeOnAdvanceStr := os.Getenv("PLAYER_COMPLETE_ON_ADVANCE")
	if completeOnAdvanceStr == "" {
		completeOnAdvanceStr = "true"
	}
	completeOnAdvance, err := strconv.ParseBool(completeOnAdvanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PLAYER_COMPLETE_ON_ADVANCE: %w", err)
	}
	cfg.Player.CompleteOnAdvance = completeOnAdvance

	sessionTTLStr := os.Getenv("PLAYER_SESSION_TTL")
	if sessionTTLStr == "" {
		sessionTTLStr = "2h"
	}
	sessionTTL, err := time.ParseDuration(sessionTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PLAYER_SESSION_TTL: %w", err)
	}
	if sessionTTL <= 0 {
		return nil, fmt.Errorf("PLAYER_SESSION_TTL must be positive")
	}
	cfg.Player.SessionTTL = sessionTTL

	// Rate limit configuration
	rateLimitStr := os.Getenv("RATE_LIMIT_PER_MINUTE")
	if rateLimitStr == "" {
		rateLimitStr = "100"
	}
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}
	if rateLimit < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	cfg.RateLimit.RequestsPerMinute = rateLimit

	return cfg, nil
}

// parseOrigins splits a comma-separated origin list.
// An empty list allows all origins.
func parseOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, origin := range parts {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}
