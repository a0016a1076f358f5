// Package config holds the process settings read from the environment and
// the JSON pipeline description executed by the command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/vegasq/medframe/query"
)

// Environment variable names.
const (
	EnvLogLevel    = "MEDFRAME_LOG_LEVEL"
	EnvLogFormat   = "MEDFRAME_LOG_FORMAT"
	EnvOutputDir   = "MEDFRAME_OUTPUT_DIR"
	EnvDPI         = "MEDFRAME_DPI"
	EnvMetricsFile = "MEDFRAME_METRICS_FILE"
	EnvPushgateway = "MEDFRAME_PUSHGATEWAY"
	EnvTable       = "MEDFRAME_TABLE"
)

// Settings are the process-wide knobs that do not belong to one pipeline.
type Settings struct {
	LogLevel  string
	LogFormat string

	// OutputDir receives chart images with relative paths.
	OutputDir string
	DPI       int

	// MetricsFile, when set, receives a Prometheus text exposition of the
	// run. Pushgateway additionally pushes the same metrics.
	MetricsFile string
	Pushgateway string

	// Table is the name the cleaned table is registered under.
	Table string
}

// LoadSettings reads Settings from the environment. Any envFiles are loaded
// first with godotenv; variables already set in the environment win.
func LoadSettings(envFiles ...string) (*Settings, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	dpi, err := getEnvAsInt(EnvDPI, 300)
	if err != nil {
		return nil, err
	}
	s := &Settings{
		LogLevel:    getEnv(EnvLogLevel, "info"),
		LogFormat:   getEnv(EnvLogFormat, "console"),
		OutputDir:   getEnv(EnvOutputDir, "results"),
		DPI:         dpi,
		MetricsFile: getEnv(EnvMetricsFile, ""),
		Pushgateway: getEnv(EnvPushgateway, ""),
		Table:       getEnv(EnvTable, "patients"),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate ensures all settings are usable.
func (s *Settings) Validate() error {
	if _, err := zapcore.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	switch strings.ToLower(s.LogFormat) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("%s: unknown log format %q", EnvLogFormat, s.LogFormat)
	}
	if s.DPI <= 0 {
		return errors.New(EnvDPI + ": dpi must be positive")
	}
	if !query.ValidName(s.Table) {
		return fmt.Errorf("%s: %q: %w", EnvTable, s.Table, query.ErrInvalidName)
	}
	if s.Pushgateway != "" && s.MetricsFile == "" {
		return errors.New(EnvPushgateway + " requires " + EnvMetricsFile)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, valueStr)
	}
	return value, nil
}
