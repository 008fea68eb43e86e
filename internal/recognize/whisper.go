// Package recognize wraps the whisper.cpp CGO bindings behind the narrow,
// stateless, no-context black-box contract the streaming transcriber needs:
// audio[] -> text, one independent call at a time.
package recognize

import (
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// ErrModelLoad wraps failures loading the model file at construction time.
var ErrModelLoad = errors.New("recognize: model load failed")

// Recognizer is the black-box speech-to-text function the streaming
// transcriber drives. Implementations must not carry decoder state across
// calls to Transcribe.
type Recognizer interface {
	Transcribe(samples []float32) (string, error)
	Close() error
}

// Whisper loads a whisper.cpp model once and creates a fresh inference
// context per Transcribe call, matching the no-context mode the revision
// mechanism in the diff tracker depends on.
type Whisper struct {
	model    whisperlib.Model
	language string
}

// New loads the model at modelPath. A missing or unreadable file returns an
// error wrapping ErrModelLoad.
func New(modelPath, language string) (*Whisper, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, fmt.Errorf("%w: model path is empty", ErrModelLoad)
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	if language == "" {
		language = "en"
	}
	return &Whisper{model: model, language: language}, nil
}

// Transcribe runs one independent, greedy (best-of-1), no-context inference
// pass over samples and returns the trimmed, concatenated segment text.
func (w *Whisper) Transcribe(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("recognize: create context: %w", err)
	}

	if err := wctx.SetLanguage(w.language); err != nil {
		return "", fmt.Errorf("recognize: set language %q: %w", w.language, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("recognize: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("recognize: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// Close releases the underlying model.
func (w *Whisper) Close() error {
	if w.model == nil {
		return nil
	}
	return w.model.Close()
}
