package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocaleDefaultsToEnglish(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale(""))
}

func TestIndicatorMessagesEnglish(t *testing.T) {
	msg := indicatorMessages(localeEnglish)
	require.Equal(t, "Recording…", msg.recording)
	require.Equal(t, "Speech recognition error", msg.errorText)
}

func TestIndicatorMessagesFromEnvReadsLANG(t *testing.T) {
	t.Setenv("LANG", "en_GB.UTF-8")
	msg := indicatorMessagesFromEnv()
	require.Equal(t, "Recording…", msg.recording)
}
