// Package hypr wraps the hyprctl CLI for the Hyprland indicator backend.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runHyprctl executes hyprctl and discards stdout on success.
func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

// runHyprctlOutput executes hyprctl and returns combined output for diagnostics.
func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
