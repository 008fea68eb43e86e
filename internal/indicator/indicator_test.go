package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tollefsen/whisperd/internal/config"
)

func TestHyprNotifyDispatchesRecordingAndError(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	installHyprctlStub(t, argsFile, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.IndicatorConfig{Enable: true, ErrorTimeoutMS: 1200}
	notify := NewHyprNotify(cfg, nil)

	notify.ShowRecording(context.Background())
	notify.ShowError(context.Background(), "")
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "--quiet dispatch notify 1 300000 rgb(89b4fa) Recording…", lines[0])
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) Speech recognition error", lines[1])
	require.Equal(t, "--quiet dispatch dismissnotify", lines[2])
}

func TestHyprNotifyShowErrorUsesProvidedTextAndDefaultTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	installHyprctlStub(t, argsFile, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.IndicatorConfig{Enable: true, ErrorTimeoutMS: 0}
	notify := NewHyprNotify(cfg, nil)
	notify.ShowError(context.Background(), "custom error")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, "--quiet dispatch notify 3 1200 rgb(f38ba8) custom error\n", string(data))
}

func TestHyprNotifyDisabledSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	installHyprctlStub(t, argsFile, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.IndicatorConfig{Enable: false}
	notify := NewHyprNotify(cfg, nil)
	notify.ShowRecording(context.Background())
	notify.ShowError(context.Background(), "ignored")
	notify.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestHyprNotifyCueStartAndStopDoNotDispatchNotifications(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	installHyprctlStub(t, argsFile, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.IndicatorConfig{Enable: true, SoundEnable: false}
	notify := NewHyprNotify(cfg, nil)
	notify.CueStart(context.Background())
	notify.CueStop(context.Background())

	_, err := os.Stat(argsFile)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestHyprNotifyDesktopBackendDispatchesViaBusctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	installBusctlStub(t, argsFile, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 7'
`)

	cfg := config.IndicatorConfig{Enable: true, Backend: "desktop", DesktopAppName: "whisperd-test"}
	notify := NewHyprNotify(cfg, nil)

	notify.ShowRecording(context.Background())
	notify.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "whisperd-test")
	require.Contains(t, lines[0], "Recording…")
	require.Contains(t, lines[1], "CloseNotification")
	require.Contains(t, lines[1], "7")
}

func TestHyprNotifyBackendIsCaseInsensitive(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	installBusctlStub(t, argsFile, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo 'u 1'
`)

	cfg := config.IndicatorConfig{Enable: true, Backend: " Desktop "}
	notify := NewHyprNotify(cfg, nil)
	notify.ShowRecording(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func installHyprctlStub(t *testing.T, argsFile, body string) {
	t.Helper()
	t.Setenv("HYPR_ARGS_FILE", argsFile)

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func installBusctlStub(t *testing.T, argsFile, body string) {
	t.Helper()
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
