// Package transcribe implements the rolling-window streaming transcriber
// (C4): it owns the rolling buffer, periodically re-infers over the whole
// window, and publishes the latest transcript plus a change bit.
package transcribe

import (
	"fmt"
	"sync"

	"github.com/tollefsen/whisperd/internal/recognize"
	"github.com/tollefsen/whisperd/internal/resample"
	"github.com/tollefsen/whisperd/internal/rollbuf"
	"github.com/tollefsen/whisperd/internal/transcript"
)

// InferenceError wraps a single failed Transcribe call. The session
// continues; the latest transcript is left unchanged.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string { return fmt.Sprintf("transcribe: inference failed: %v", e.Err) }
func (e *InferenceError) Unwrap() error { return e.Err }

// Transcriber wraps a Recognizer and a rolling buffer of resampled 16 kHz
// mono f32 audio.
type Transcriber struct {
	recognizer recognize.Recognizer
	buffer     *rollbuf.Buffer

	mu     sync.Mutex
	latest string
}

// New creates a transcriber with a rolling buffer sized for bufferDurationSeconds
// of 16 kHz mono audio.
func New(recognizer recognize.Recognizer, bufferDurationSeconds float64) *Transcriber {
	capacity := int(bufferDurationSeconds * float64(resample.TargetRate))
	return &Transcriber{
		recognizer: recognizer,
		buffer:     rollbuf.New(capacity),
	}
}

// PushAudio forwards resampled mono samples into the rolling buffer.
func (t *Transcriber) PushAudio(samples []float32) {
	t.buffer.Push(samples)
}

// Transcribe takes a snapshot of the rolling buffer, runs inference, and
// stores the trimmed result as the latest transcript. It returns the new
// text only when it differs from the previously stored transcript; an
// unchanged result returns ("", false). An empty buffer short-circuits
// without invoking the recognizer.
func (t *Transcriber) Transcribe() (string, bool, error) {
	snapshot := t.buffer.Snapshot()
	if len(snapshot) == 0 {
		return "", false, nil
	}

	text, err := t.recognizer.Transcribe(snapshot)
	if err != nil {
		return "", false, &InferenceError{Err: err}
	}
	trimmed := transcript.Normalize(text)

	t.mu.Lock()
	defer t.mu.Unlock()
	if trimmed == t.latest {
		return "", false, nil
	}
	t.latest = trimmed
	return trimmed, true, nil
}

// CurrentTranscript returns the latest stored transcript without running
// inference.
func (t *Transcriber) CurrentTranscript() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Reset clears both the rolling buffer and the latest transcript.
func (t *Transcriber) Reset() {
	t.buffer.Clear()
	t.mu.Lock()
	t.latest = ""
	t.mu.Unlock()
}
