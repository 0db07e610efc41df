package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gapfill/domain/imputation"
	"gapfill/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Imputation ImputationConfig
	Data       DataConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Log        LogConfig
}

// ImputationConfig holds the gap policy and worker settings
type ImputationConfig struct {
	LinearMaxGap       int
	SplineMaxGap       int
	SplineNeighborhood int
	MinSplinePoints    int
	Workers            int
}

// DataConfig holds input/output file settings
type DataConfig struct {
	InputFile     string
	OutputFile    string
	SentinelRules string
	// RegularizeHourly puts rows on an hourly grid before imputation
	RegularizeHourly bool
}

// DatabaseConfig holds database connection settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	UIPort  string
	GinMode string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads an optional .env file, then configuration from environment variables, and validates it
func Load(envFiles ...string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only
func FromEnv() (*Config, error) {
	config := &Config{
		Imputation: *loadImputationConfig(),
		Data:       *loadDataConfig(),
		Database:   DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Server:     *loadServerConfig(),
		Log:        LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Policy converts the imputation settings into an engine policy
func (c *Config) Policy() imputation.Policy {
	return imputation.Policy{
		LinearMaxLength: c.Imputation.LinearMaxGap,
		SplineMaxLength: c.Imputation.SplineMaxGap,
		Neighborhood:    c.Imputation.SplineNeighborhood,
		MinSplinePoints: c.Imputation.MinSplinePoints,
	}
}

func loadImputationConfig() *ImputationConfig {
	defaults := imputation.DefaultPolicy()
	return &ImputationConfig{
		LinearMaxGap:       getEnvIntOrDefault("LINEAR_MAX_GAP", defaults.LinearMaxLength),
		SplineMaxGap:       getEnvIntOrDefault("SPLINE_MAX_GAP", defaults.SplineMaxLength),
		SplineNeighborhood: getEnvIntOrDefault("SPLINE_NEIGHBORHOOD", defaults.Neighborhood),
		MinSplinePoints:    getEnvIntOrDefault("MIN_SPLINE_POINTS", defaults.MinSplinePoints),
		Workers:            getEnvIntOrDefault("IMPUTE_WORKERS", runtime.GOMAXPROCS(0)),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		InputFile:        getEnvOrDefault("INPUT_FILE", ""),
		OutputFile:       getEnvOrDefault("OUTPUT_FILE", "imputed.csv"),
		SentinelRules:    getEnvOrDefault("SENTINEL_RULES", ""),
		RegularizeHourly: getEnvBoolOrDefault("REGULARIZE_HOURLY", false),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		UIPort:  getEnvOrDefault("UI_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	if err := config.Policy().Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Imputation.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("IMPUTE_WORKERS must be >= 1, got %d", config.Imputation.Workers))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
