package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"jtpadensity/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Analysis AnalysisConfig
	Output   OutputConfig
	Database DatabaseConfig
	Server   ServerConfig
	LogLevel string
}

// DataConfig holds input settings
type DataConfig struct {
	InputFile string
}

// AnalysisConfig holds the estimation settings shared by all three density fits
type AnalysisConfig struct {
	Seed       int64
	GridMin    float64
	GridMax    float64
	GridPoints int
	BWSelect   string
	PolyOrder  int
	Kernel     string
	CILevel    float64
	CIReps     int
	Uniform    bool
}

// OutputConfig holds report and chart destinations
type OutputConfig struct {
	Dir        string
	PlotFormat string
}

// DatabaseConfig holds optional persistence settings; an empty URL disables persistence
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

var (
	validBWSelect = []string{"imse-dpi", "imse-rot", "mse-dpi", "mse-rot"}
	validKernels  = []string{"triangular", "epanechnikov", "uniform"}
	validFormats  = []string{"png", "svg"}
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data: DataConfig{
			InputFile: getEnvOrDefault("INPUT_FILE", "jtpa.csv"),
		},
		Analysis: AnalysisConfig{
			Seed:       getEnvInt64OrDefault("SEED", 42),
			GridMin:    getEnvFloatOrDefault("GRID_MIN", 2),
			GridMax:    getEnvFloatOrDefault("GRID_MAX", 5),
			GridPoints: getEnvIntOrDefault("GRID_POINTS", 10),
			BWSelect:   strings.ToLower(getEnvOrDefault("BW_SELECT", "imse-dpi")),
			PolyOrder:  getEnvIntOrDefault("POLY_ORDER", 2),
			Kernel:     strings.ToLower(getEnvOrDefault("KERNEL", "triangular")),
			CILevel:    getEnvFloatOrDefault("CI_LEVEL", 95),
			CIReps:     getEnvIntOrDefault("CI_REPS", 2000),
			Uniform:    getEnvBoolOrDefault("CI_UNIFORM", true),
		},
		Output: OutputConfig{
			Dir:        getEnvOrDefault("OUTPUT_DIR", "output"),
			PlotFormat: strings.ToLower(getEnvOrDefault("PLOT_FORMAT", "png")),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks the settings that would otherwise fail deep inside the pipeline
func (c *Config) Validate() error {
	if c.Data.InputFile == "" {
		return errors.ConfigInvalid("input file is required")
	}
	a := c.Analysis
	if a.GridPoints < 2 {
		return errors.ConfigInvalid(fmt.Sprintf("grid needs at least 2 points, got %d", a.GridPoints))
	}
	if !(a.GridMax > a.GridMin) {
		return errors.ConfigInvalid(fmt.Sprintf("grid max %g must exceed grid min %g", a.GridMax, a.GridMin))
	}
	if !contains(validBWSelect, a.BWSelect) {
		return errors.ConfigInvalid(fmt.Sprintf("unknown bandwidth rule %q", a.BWSelect))
	}
	if !contains(validKernels, a.Kernel) {
		return errors.ConfigInvalid(fmt.Sprintf("unknown kernel %q", a.Kernel))
	}
	if a.PolyOrder < 1 || a.PolyOrder > 5 {
		return errors.ConfigInvalid(fmt.Sprintf("polynomial order must be in [1,5], got %d", a.PolyOrder))
	}
	if a.CILevel <= 0 || a.CILevel >= 100 {
		return errors.ConfigInvalid(fmt.Sprintf("confidence level must be in (0,100), got %g", a.CILevel))
	}
	if a.CIReps < 100 {
		return errors.ConfigInvalid(fmt.Sprintf("uniform band needs at least 100 draws, got %d", a.CIReps))
	}
	if !contains(validFormats, c.Output.PlotFormat) {
		return errors.ConfigInvalid(fmt.Sprintf("unknown plot format %q", c.Output.PlotFormat))
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
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

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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
