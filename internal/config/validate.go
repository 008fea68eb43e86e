package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Transcribe.BufferDurationSeconds <= 0 {
		return nil, fmt.Errorf("transcribe.buffer_duration_seconds must be > 0")
	}
	if cfg.Transcribe.IntervalMS <= 0 {
		return nil, fmt.Errorf("transcribe.interval_ms must be > 0")
	}
	if cfg.Aging.MinMatchLen <= 0 {
		return nil, fmt.Errorf("aging.min_match_len must be > 0")
	}
	if cfg.Aging.MaxKeyLen < cfg.Aging.MinMatchLen {
		return nil, fmt.Errorf("aging.max_key_len must be >= aging.min_match_len")
	}
	if strings.TrimSpace(cfg.Model.Language) == "" {
		return nil, fmt.Errorf("model.language must not be empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.Model.Path) == "" {
		warnings = append(warnings, Warning{Message: "model.path is unset; run `whisperd doctor` before starting a session"})
	}

	return warnings, nil
}
