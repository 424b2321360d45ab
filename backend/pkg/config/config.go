package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"kinship/backend/internal/constants"
	apperrors "kinship/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port           string
	Env            string
	RequestTimeout time.Duration

	// Storage backends
	ContactBackend string
	GraphBackend   string
	SQLitePath     string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Consistency
	ReconcileConcurrency int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),
		ContactBackend:       strings.ToLower(getEnv("CONTACT_BACKEND", constants.BackendSQLite)),
		GraphBackend:         strings.ToLower(getEnv("GRAPH_BACKEND", constants.BackendSQLite)),
		SQLitePath:           getEnv("SQLITE_PATH", "kinship.db"),
		Neo4jURI:             getEnv("NEO4J_URI", ""),
		Neo4jUser:            getEnv("NEO4J_USER", ""),
		Neo4jPassword:        getEnv("NEO4J_PASSWORD", ""),
		ReconcileConcurrency: getEnvInt("RECONCILE_CONCURRENCY", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.ContactBackend {
	case constants.BackendMemory, constants.BackendSQLite:
	default:
		return apperrors.NewConfigValidationFailed("CONTACT_BACKEND", fmt.Sprintf("unsupported backend %q", c.ContactBackend))
	}

	switch c.GraphBackend {
	case constants.BackendMemory, constants.BackendSQLite:
	case constants.BackendNeo4j:
		// Neo4j credentials are only needed when the graph lives there
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	default:
		return apperrors.NewConfigValidationFailed("GRAPH_BACKEND", fmt.Sprintf("unsupported backend %q", c.GraphBackend))
	}

	if c.UsesSQLite() && c.SQLitePath == "" {
		return apperrors.NewConfigMissingRequired("SQLITE_PATH")
	}
	if c.ReconcileConcurrency < 1 {
		return apperrors.NewConfigValidationFailed("RECONCILE_CONCURRENCY", "must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("REQUEST_TIMEOUT", "must be positive")
	}
	return nil
}

// UsesSQLite reports whether either store is backed by the SQLite file
func (c *Config) UsesSQLite() bool {
	return c.ContactBackend == constants.BackendSQLite || c.GraphBackend == constants.BackendSQLite
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
