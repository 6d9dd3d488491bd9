// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint (optional, tracing disabled if not set)

	// Engine settings
	MemoryCapacity   int       // pattern memory bound
	ConsensusWeights []float64 // risk, privacy, treasury, guardian (empty = equal)
	ScorerTimeoutMS  int64

	// Guardian personality
	RiskTolerance       float64
	LearningRate        float64
	ConfidenceThreshold float64

	// Rate limiting
	RateLimitRPM int

	// CORS
	AllowedOrigins []string // empty = allow all
}

// Defaults
const (
	DefaultPort           = "8080"
	DefaultEnv            = "development"
	DefaultLogLevel       = "info"
	DefaultMemoryCapacity = 1000
	DefaultScorerTimeout  = 2000 // ms
	DefaultRateLimitRPM   = 120

	DefaultRiskTolerance       = 0.5
	DefaultLearningRate        = 0.1
	DefaultConfidenceThreshold = 0.7
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:         os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MemoryCapacity:      int(getEnvInt64("MEMORY_CAPACITY", DefaultMemoryCapacity)),
		ScorerTimeoutMS:     getEnvInt64("SCORER_TIMEOUT_MS", DefaultScorerTimeout),
		RiskTolerance:       getEnvFloat("RISK_TOLERANCE", DefaultRiskTolerance),
		LearningRate:        getEnvFloat("LEARNING_RATE", DefaultLearningRate),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", DefaultConfidenceThreshold),
		RateLimitRPM:        int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimitRPM)),
	}

	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if raw := os.Getenv("CONSENSUS_WEIGHTS"); raw != "" {
		weights, err := parseWeights(raw)
		if err != nil {
			return nil, err
		}
		cfg.ConsensusWeights = weights
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are in range
func (c *Config) Validate() error {
	if c.MemoryCapacity <= 0 {
		return fmt.Errorf("MEMORY_CAPACITY must be positive, got %d", c.MemoryCapacity)
	}
	if c.RiskTolerance < 0 || c.RiskTolerance > 1 {
		return fmt.Errorf("RISK_TOLERANCE must be in [0,1], got %f", c.RiskTolerance)
	}
	if c.LearningRate < 0 || c.LearningRate > 1 {
		return fmt.Errorf("LEARNING_RATE must be in [0,1], got %f", c.LearningRate)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %f", c.ConfidenceThreshold)
	}
	if len(c.ConsensusWeights) != 0 && len(c.ConsensusWeights) != 4 {
		return fmt.Errorf("CONSENSUS_WEIGHTS needs exactly 4 values, got %d", len(c.ConsensusWeights))
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// parseWeights parses a comma-separated weight vector, e.g. "0.5,0.2,0.2,0.1".
func parseWeights(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("CONSENSUS_WEIGHTS: invalid weight %q", p)
		}
		if w < 0 {
			return nil, fmt.Errorf("CONSENSUS_WEIGHTS: negative weight %f", w)
		}
		weights = append(weights, w)
	}
	return weights, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
