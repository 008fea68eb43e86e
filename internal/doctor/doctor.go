// Package doctor runs runtime readiness diagnostics for config, audio, and
// the whisper.cpp model file whisperd needs before a session can start.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/tollefsen/whisperd/internal/audio"
	"github.com/tollefsen/whisperd/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, audio, and model checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{
		{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)},
		checkModelPath(cfg.Config.Model.Path),
		checkBinary("pactl", "PulseAudio control tool for device listing"),
		checkAudioSelection(cfg.Config),
		checkBackendTool(cfg.Config),
	}
	return Report{Checks: checks}
}

// checkModelPath verifies the configured whisper.cpp model file exists and
// is not a directory; a missing file makes recognize.New fail with
// ErrModelLoad when `whisperd serve` starts (spec.md Section 6, 7).
func checkModelPath(path string) Check {
	path = strings.TrimSpace(path)
	if path == "" {
		return Check{Name: "model.path", Pass: false, Message: "model.path is unset"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "model.path", Pass: false, Message: fmt.Sprintf("stat %q: %v", path, err)}
	}
	if info.IsDir() {
		return Check{Name: "model.path", Pass: false, Message: fmt.Sprintf("%q is a directory, not a model file", path)}
	}
	return Check{Name: "model.path", Pass: true, Message: fmt.Sprintf("found %q (%d bytes)", path, info.Size())}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection or
// fallback issues before a session is started (spec.md Section 4.2).
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkBackendTool validates the CLI tool the configured indicator backend
// shells out to is present: hyprctl for "hypr", busctl for "desktop".
func checkBackendTool(cfg config.Config) Check {
	if !cfg.Indicator.Enable {
		return Check{Name: "indicator.backend", Pass: true, Message: "indicator disabled"}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend)) {
	case "desktop":
		return checkBinary("busctl", "desktop notification backend")
	default:
		return checkBinary("hyprctl", "Hyprland notification backend")
	}
}
