// Package config resolves, parses, validates, and defaults whisperd
// configuration.
package config

// Config is the fully materialized runtime configuration used by whisperd.
type Config struct {
	Audio      AudioConfig
	Model      ModelConfig
	Transcribe TranscribeConfig
	Aging      AgingConfig
	Indicator  IndicatorConfig
	Debug      DebugConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// ModelConfig names the whisper.cpp model file and recognition language.
type ModelConfig struct {
	Path     string
	Language string
}

// TranscribeConfig controls the rolling window size and re-inference cadence
// for the streaming transcriber (C4).
type TranscribeConfig struct {
	BufferDurationSeconds float64
	IntervalMS            int
}

// AgingConfig exposes the diff tracker's aging-detection heuristic
// thresholds (C5). These are policy, not invariants: revisit if
// Transcribe.BufferDurationSeconds changes from its 10s default.
type AgingConfig struct {
	MinMatchLen int
	MaxKeyLen   int
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
