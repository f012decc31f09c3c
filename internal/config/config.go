// Package config loads demuxer configuration from environment variables with
// defaults and command-line overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Downlink rates determine how long the core worker sleeps on an empty
// intake queue.
const (
	DownlinkLRIT = "LRIT"
	DownlinkHRIT = "HRIT"
)

// Input source kinds.
const (
	SourceOSP      = "osp"
	SourceGoesrecv = "goesrecv"
	SourceFile     = "file"
)

// Config holds the application configuration
type Config struct {
	Demuxer DemuxerConfig
	Source  SourceConfig
	Monitor MonitorConfig
	Logging LoggingConfig
}

// LoadOptions holds command-line override options
type LoadOptions struct {
	Downlink   string
	Source     string
	InputFile  string
	OutputRoot string
	LogLevel   string
}

// DemuxerConfig holds the core demuxer configuration
type DemuxerConfig struct {
	Downlink     string
	SpacecraftID int
	OutputRoot   string
	DumpPath     string
	KeyFile      string
	CatalogPath  string
}

// SourceConfig holds input source configuration
type SourceConfig struct {
	Kind      string
	Host      string
	Port      string
	InputFile string
}

// MonitorConfig holds the status/metrics listener configuration. An empty
// address disables the monitor.
type MonitorConfig struct {
	Addr string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := &Config{}

	config.Demuxer.Downlink = strings.ToUpper(getOverrideOrEnv(opts.Downlink, "XRIT_DOWNLINK", DownlinkLRIT))
	config.Demuxer.SpacecraftID = getIntWithDefault("XRIT_SPACECRAFT_ID", 195)
	config.Demuxer.OutputRoot = getOverrideOrEnv(opts.OutputRoot, "XRIT_OUTPUT", "received")
	config.Demuxer.DumpPath = getEnvWithDefault("XRIT_DUMP_PATH", "")
	config.Demuxer.KeyFile = getEnvWithDefault("XRIT_KEY_FILE", "")
	config.Demuxer.CatalogPath = getEnvWithDefault("XRIT_CATALOG", "")

	config.Source.Kind = strings.ToLower(getOverrideOrEnv(opts.Source, "XRIT_SOURCE", SourceOSP))
	config.Source.Host = getEnvWithDefault("XRIT_SOURCE_HOST", "127.0.0.1")
	config.Source.Port = getEnvWithDefault("XRIT_SOURCE_PORT", "5001")
	config.Source.InputFile = getOverrideOrEnv(opts.InputFile, "XRIT_INPUT_FILE", "")

	// A file argument implies the file source, as a convenience.
	if opts.InputFile != "" {
		config.Source.Kind = SourceFile
	}

	config.Monitor.Addr = getEnvWithDefault("XRIT_MONITOR_ADDR", "")

	config.Logging.Level = getOverrideOrEnv(opts.LogLevel, "XRIT_LOG_LEVEL", "info")

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Demuxer.Downlink != DownlinkLRIT && c.Demuxer.Downlink != DownlinkHRIT {
		return fmt.Errorf("invalid downlink: %s", c.Demuxer.Downlink)
	}

	if c.Demuxer.SpacecraftID < 0 || c.Demuxer.SpacecraftID > 255 {
		return fmt.Errorf("spacecraft id out of range: %d", c.Demuxer.SpacecraftID)
	}

	if c.Demuxer.OutputRoot == "" {
		return fmt.Errorf("output root cannot be empty")
	}

	switch c.Source.Kind {
	case SourceOSP, SourceGoesrecv:
		if c.Source.Host == "" {
			return fmt.Errorf("source host cannot be empty")
		}
		if port, err := strconv.Atoi(c.Source.Port); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid source port: %s", c.Source.Port)
		}
	case SourceFile:
		if c.Source.InputFile == "" {
			return fmt.Errorf("file source requires an input file")
		}
	default:
		return fmt.Errorf("unknown input source: %s", c.Source.Kind)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getOverrideOrEnv returns command-line override value, env value, or default
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}
