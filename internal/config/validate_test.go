package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero buffer duration", mutate: func(c *Config) { c.Transcribe.BufferDurationSeconds = 0 }, wantErr: "buffer_duration_seconds"},
		{name: "zero interval", mutate: func(c *Config) { c.Transcribe.IntervalMS = 0 }, wantErr: "interval_ms"},
		{name: "zero min match len", mutate: func(c *Config) { c.Aging.MinMatchLen = 0 }, wantErr: "min_match_len"},
		{name: "max key len below min", mutate: func(c *Config) { c.Aging.MaxKeyLen = 5 }, wantErr: "max_key_len"},
		{name: "empty language", mutate: func(c *Config) { c.Model.Language = "" }, wantErr: "model.language"},
		{name: "empty indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "" }, wantErr: "indicator.backend"},
		{name: "unknown indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "carrier-pigeon" }, wantErr: "indicator.backend"},
		{name: "desktop backend without app name", mutate: func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.DesktopAppName = ""
		}, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsOnUnsetModelPath(t *testing.T) {
	cfg := Default()
	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "model.path")
}

func TestValidatePassesWithModelPathSet(t *testing.T) {
	cfg := Default()
	cfg.Model.Path = "/models/ggml-base.en.bin"
	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}
