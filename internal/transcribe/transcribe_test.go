package transcribe

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	calls atomic.Int32
	next  func(samples []float32) (string, error)
}

func (f *fakeRecognizer) Transcribe(samples []float32) (string, error) {
	f.calls.Add(1)
	return f.next(samples)
}

func (f *fakeRecognizer) Close() error { return nil }

func TestTranscribeEmptyBufferShortCircuits(t *testing.T) {
	rec := &fakeRecognizer{next: func([]float32) (string, error) { return "should not be called", nil }}
	tr := New(rec, 10)

	text, changed, err := tr.Transcribe()
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, text)
	require.EqualValues(t, 0, rec.calls.Load())
}

func TestTranscribeReturnsChangeBitOnlyWhenDiffers(t *testing.T) {
	outputs := []string{"hello", "hello", "hello world"}
	i := 0
	rec := &fakeRecognizer{next: func([]float32) (string, error) {
		out := outputs[i]
		i++
		return out, nil
	}}
	tr := New(rec, 10)
	tr.PushAudio([]float32{0.1, 0.2, 0.3})

	text, changed, err := tr.Transcribe()
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "hello", text)

	text, changed, err = tr.Transcribe()
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, text)

	text, changed, err = tr.Transcribe()
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "hello world", text)

	require.Equal(t, "hello world", tr.CurrentTranscript())
}

func TestTranscribeInferenceErrorLeavesLatestUnchanged(t *testing.T) {
	failNext := true
	rec := &fakeRecognizer{next: func([]float32) (string, error) {
		if failNext {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	tr := New(rec, 10)
	tr.PushAudio([]float32{0.1})

	_, changed, err := tr.Transcribe()
	require.Error(t, err)
	var infErr *InferenceError
	require.ErrorAs(t, err, &infErr)
	require.False(t, changed)
	require.Empty(t, tr.CurrentTranscript())

	failNext = false
	text, changed, err := tr.Transcribe()
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "ok", text)
}

func TestResetClearsBufferAndLatest(t *testing.T) {
	rec := &fakeRecognizer{next: func([]float32) (string, error) { return "text", nil }}
	tr := New(rec, 10)
	tr.PushAudio([]float32{0.1})
	tr.Transcribe()
	require.Equal(t, "text", tr.CurrentTranscript())

	tr.Reset()
	require.Empty(t, tr.CurrentTranscript())

	text, changed, err := tr.Transcribe()
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, text)
}
