package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/tollefsen/whisperd/internal/resample"
)

// ErrDeviceError wraps start/stop failures surfaced by the capture stream.
var ErrDeviceError = errors.New("audio: device error")

// ErrChannelClosed is logged (never returned) when the callback detects the
// one consumer of the frame queue is gone; the callback discards the frame
// and continues.
var ErrChannelClosed = errors.New("audio: frame consumer is gone")

// frameQueue is the unbounded, single-producer/single-consumer handoff
// between the audio callback thread and the worker thread. Push never
// blocks; RecvBlocking waits for a frame or context cancellation.
type frameQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames [][]float32
	closed bool
}

func newFrameQueue() *frameQueue {
	q := &frameQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a frame. It never blocks.
func (q *frameQueue) Push(frame []float32) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.frames = append(q.frames, frame)
	q.mu.Unlock()
	q.cond.Signal()
}

// RecvBlocking waits for the next frame. It returns (nil, false) if ctx is
// cancelled first, or once the queue is closed and drained.
func (q *frameQueue) RecvBlocking(ctx context.Context) ([]float32, bool) {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		close(done)
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.frames) == 0 && !q.closed {
		select {
		case <-done:
			return nil, false
		default:
		}
		q.cond.Wait()
	}
	if len(q.frames) == 0 {
		return nil, false
	}
	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, true
}

// RecvNonblocking returns the next frame if one is queued, without waiting.
func (q *frameQueue) RecvNonblocking() ([]float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, true
}

func (q *frameQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// captureRate is the fallback rate used when a Device carries no SampleRate
// (e.g. a caller-constructed value in tests); live devices report their own
// native rate instead.
const captureRate = 48000

// Capture owns one PulseAudio record stream opened at the device's default
// configuration; onPCM downmixes to mono and resamples to 16 kHz f32 before
// handing frames to the single consumer.
type Capture struct {
	device Device
	logger *slog.Logger

	client *pulse.Client
	stream *pulse.RecordStream

	queue    *frameQueue
	ratio    float64
	format   PCMFormat
	channels int
	stopCh   chan struct{}

	debugDump bool
	debugPCM  []byte

	mu      sync.Mutex
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// Open selects the device's default configuration (spec.md 4.2): it rejects
// a format outside {f32, i16, u16} with ErrUnsupportedFormat, then opens a
// record stream at the device's native rate and channel count. Every
// callback invocation downmixes, converts to f32, and resamples to 16 kHz
// mono via internal/resample before handing the frame to the worker thread.
// When debugDump is set, the resampled PCM for the session is written to a
// WAV file under the state directory's debug/ folder on Stop.
func Open(ctx context.Context, logger *slog.Logger, selected Device, debugDump bool) (*Capture, error) {
	if selected.ID == "" {
		return nil, ErrNoDevice
	}
	if selected.Format == PCMFormatUnsupported {
		return nil, fmt.Errorf("%w: %s reports %s", ErrUnsupportedFormat, selected.ID, selected.Format)
	}

	channels := selected.Channels
	if channels < 1 {
		channels = 1
	}
	rate := selected.SampleRate
	if rate <= 0 {
		rate = captureRate
	}

	client, err := newClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceError, err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrDeviceError, selected.ID, err)
	}

	capture := &Capture{
		device:    selected,
		logger:    logger,
		client:    client,
		queue:     newFrameQueue(),
		ratio:     resample.Ratio(rate),
		format:    selected.Format,
		channels:  channels,
		stopCh:    make(chan struct{}),
		debugDump: debugDump,
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseWireFormat(selected.Format))
	recordOpts := []pulse.RecordOption{
		pulse.RecordSource(source),
		pulse.RecordSampleRate(rate),
		pulse.RecordMediaName("whisperd capture"),
	}
	switch channels {
	case 1:
		recordOpts = append(recordOpts, pulse.RecordMono)
	case 2:
		recordOpts = append(recordOpts, pulse.RecordStereo)
	default:
		chMap := make(pulseproto.ChannelMap, channels)
		recordOpts = append(recordOpts, pulse.RecordChannels(chMap))
	}

	stream, err := client.NewRecord(writer, recordOpts...)
	if err != nil {
		capture.closeResources()
		return nil, fmt.Errorf("%w: create record stream: %v", ErrDeviceError, err)
	}
	capture.stream = stream

	if logger != nil {
		logger.Info("capture opened",
			"device", selected.ID,
			"capture_rate", rate,
			"channels", channels,
			"format", selected.Format.String(),
		)
	}

	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

// pulseWireFormat returns the Pulse wire format to request for a classified
// PCMFormat. PCMFormatUint16 never reaches here through Open (classifyFormat
// never produces it against a real Pulse source); like every format other
// than f32 it maps to FormatInt16LE.
func pulseWireFormat(format PCMFormat) byte {
	switch format {
	case PCMFormatFloat32:
		return pulseproto.FormatFloat32LE
	default:
		return pulseproto.FormatInt16LE
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device { return c.device }

// BytesCaptured reports total raw bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 { return c.bytes.Load() }

// RecvBlocking delivers the next resampled mono frame, waiting until one is
// available or ctx is cancelled.
func (c *Capture) RecvBlocking(ctx context.Context) ([]float32, bool) {
	return c.queue.RecvBlocking(ctx)
}

// RecvNonblocking returns the next resampled mono frame if one is already
// queued.
func (c *Capture) RecvNonblocking() ([]float32, bool) {
	return c.queue.RecvNonblocking()
}

// Stop halts the stream and closes the frame queue exactly once. Idempotent.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	c.closeResources()
	c.inflight.Wait()
	if c.debugDump {
		c.writeDebugDump()
	}
	c.queue.Close()
	return nil
}

func (c *Capture) closeResources() {
	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
}

// onPCM runs on the PulseAudio callback thread. It must never block or
// panic: it decodes the negotiated PCM format, downmixes C channels to
// mono, resamples to 16 kHz, and enqueues the result on an unbounded queue
// (spec.md 4.1/4.2).
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, errClosedStream
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, errClosedStream
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	var interleaved []float32
	switch c.format {
	case PCMFormatFloat32:
		interleaved = decodeFloat32LE(buffer)
	case PCMFormatUint16:
		interleaved = resample.Uint16ToFloat32(decodeUint16LE(buffer))
	default:
		interleaved = resample.Int16ToFloat32(decodeInt16LE(buffer))
	}

	mono := resample.Downmix(interleaved, c.channels)
	frame := resample.Resample(mono, c.ratio)
	if len(frame) == 0 {
		return len(buffer), nil
	}

	if c.debugDump {
		c.debugPCM = append(c.debugPCM, encodeDebugFrame(frame)...)
	}

	c.queue.Push(frame)
	return len(buffer), nil
}

// encodeDebugFrame converts a resampled f32 frame to little-endian 16-bit
// PCM for the debug WAV dump.
func encodeDebugFrame(frame []float32) []byte {
	buf := make([]byte, len(frame)*2)
	for i, s := range frame {
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(int16(s*32767)))
	}
	return buf
}

var errClosedStream = errors.New("audio: capture stream stopped")

func decodeInt16LE(buffer []byte) []int16 {
	n := len(buffer) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(buffer[i*2 : i*2+2]))
	}
	return out
}

func decodeUint16LE(buffer []byte) []uint16 {
	n := len(buffer) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint16(buffer[i*2 : i*2+2])
	}
	return out
}

func decodeFloat32LE(buffer []byte) []float32 {
	n := len(buffer) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buffer[i*4 : i*4+4]))
	}
	return out
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
