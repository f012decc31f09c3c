package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DownlinkLRIT, cfg.Demuxer.Downlink)
	assert.Equal(t, 195, cfg.Demuxer.SpacecraftID)
	assert.Equal(t, "received", cfg.Demuxer.OutputRoot)
	assert.Equal(t, SourceOSP, cfg.Source.Kind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Monitor.Addr)
}

func TestLoadWithOverrides(t *testing.T) {
	cfg, err := LoadWithOverrides(LoadOptions{
		Downlink:   "hrit",
		InputFile:  "dump.vcdu",
		OutputRoot: "/tmp/xrit",
		LogLevel:   "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, DownlinkHRIT, cfg.Demuxer.Downlink)
	assert.Equal(t, SourceFile, cfg.Source.Kind, "input file implies file source")
	assert.Equal(t, "dump.vcdu", cfg.Source.InputFile)
	assert.Equal(t, "/tmp/xrit", cfg.Demuxer.OutputRoot)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XRIT_DOWNLINK", "HRIT")
	t.Setenv("XRIT_SPACECRAFT_ID", "200")
	t.Setenv("XRIT_SOURCE", "goesrecv")
	t.Setenv("XRIT_SOURCE_PORT", "5004")
	t.Setenv("XRIT_MONITOR_ADDR", ":8090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DownlinkHRIT, cfg.Demuxer.Downlink)
	assert.Equal(t, 200, cfg.Demuxer.SpacecraftID)
	assert.Equal(t, SourceGoesrecv, cfg.Source.Kind)
	assert.Equal(t, "5004", cfg.Source.Port)
	assert.Equal(t, ":8090", cfg.Monitor.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad downlink", mutate: func(c *Config) { c.Demuxer.Downlink = "MRIT" }},
		{name: "bad spacecraft id", mutate: func(c *Config) { c.Demuxer.SpacecraftID = 300 }},
		{name: "empty output root", mutate: func(c *Config) { c.Demuxer.OutputRoot = "" }},
		{name: "bad source", mutate: func(c *Config) { c.Source.Kind = "udp" }},
		{name: "bad port", mutate: func(c *Config) { c.Source.Port = "notaport" }},
		{name: "empty host", mutate: func(c *Config) { c.Source.Host = "" }},
		{name: "file source without file", mutate: func(c *Config) { c.Source.Kind = SourceFile }},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
