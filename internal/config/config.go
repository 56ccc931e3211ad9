// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port                int
	LogLevel            string
	DevMode             bool
	TargetsFile         string  // YAML target configuration
	DefaultContribution float64 // Contribution used when a request omits it
	HoldingsSheets      int     // Leading workbook sheets concatenated into one snapshot
	MaxUploadMB         int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnvAsInt("REBALANCER_PORT", 8002),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		TargetsFile:         getEnv("TARGETS_FILE", "configs/targets.yaml"),
		DefaultContribution: getEnvAsFloat("DEFAULT_CONTRIBUTION", 2500),
		HoldingsSheets:      getEnvAsInt("HOLDINGS_SHEETS", 2),
		MaxUploadMB:         getEnvAsInt("MAX_UPLOAD_MB", 10),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values are usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("REBALANCER_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.TargetsFile == "" {
		return fmt.Errorf("TARGETS_FILE must not be empty")
	}
	if math.IsNaN(c.DefaultContribution) || math.IsInf(c.DefaultContribution, 0) || c.DefaultContribution < 0 {
		return fmt.Errorf("DEFAULT_CONTRIBUTION must be a non-negative number, got %v", c.DefaultContribution)
	}
	if c.HoldingsSheets < 1 {
		return fmt.Errorf("HOLDINGS_SHEETS must be at least 1, got %d", c.HoldingsSheets)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1, got %d", c.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
