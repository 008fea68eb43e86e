package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tollefsen/whisperd/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckModelPathUnset(t *testing.T) {
	check := checkModelPath("")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "unset")
}

func TestCheckModelPathMissing(t *testing.T) {
	check := checkModelPath("/definitely/missing/model.bin")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "stat")
}

func TestCheckModelPathDirectory(t *testing.T) {
	dir := t.TempDir()
	check := checkModelPath(dir)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "directory")
}

func TestCheckModelPathFound(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "ggml-base.en.bin")
	require.NoError(t, os.WriteFile(modelPath, []byte("fake model bytes"), 0o644))

	check := checkModelPath(modelPath)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "found")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestCheckBackendToolDisabledIndicator(t *testing.T) {
	cfg := config.Default()
	cfg.Indicator.Enable = false

	check := checkBackendTool(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "disabled")
}

func TestCheckBackendToolDesktop(t *testing.T) {
	cfg := config.Default()
	cfg.Indicator.Backend = "desktop"

	check := checkBackendTool(cfg)
	require.Equal(t, "busctl", check.Name)
}
