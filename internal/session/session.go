// Package session implements the Controller/Worker lifecycle from spec.md
// Section 4.6: a two-state (Idle/Recording) session, a worker goroutine
// that owns the capture pipeline and drives the streaming transcriber, and
// poll-driven diffing against the two-tier tracker in internal/diff.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tollefsen/whisperd/internal/audio"
	"github.com/tollefsen/whisperd/internal/diff"
	"github.com/tollefsen/whisperd/internal/fsm"
	"github.com/tollefsen/whisperd/internal/ipc"
)

// workerTick is the worker loop's drain/transcribe cadence (spec.md
// Section 4.6: "Worker loop (runs every ~10 ms)").
const workerTick = 10 * time.Millisecond

// ErrAlreadyRecording and ErrNotRecording carry the exact error text
// spec.md Section 6 specifies for START/STOP on the wrong state.
var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Capture is the subset of *internal/audio.Capture the worker loop drives.
// Defined as an interface so tests can substitute a fake without a live
// PulseAudio connection.
type Capture interface {
	RecvNonblocking() ([]float32, bool)
	Stop() error
}

// Transcriber is the subset of *internal/transcribe.Transcriber the worker
// loop and Poll drive.
type Transcriber interface {
	PushAudio([]float32)
	Transcribe() (string, bool, error)
	CurrentTranscript() string
	Reset()
}

// Indicator is the session-facing subset of indicator.Controller.
type Indicator interface {
	ShowRecording(context.Context)
	ShowError(context.Context, string)
	CueStart(context.Context)
	CueStop(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStart(context.Context)          {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) Hide(context.Context)              {}

// DeviceSelector resolves the capture source to open for a new session.
type DeviceSelector func(ctx context.Context) (audio.Device, error)

// CaptureOpener opens the platform capture stream for a selected device.
// The worker goroutine calls this and keeps the returned handle for its
// own exclusive use: most capture hosts forbid moving the handle across
// threads (spec.md Section 9).
type CaptureOpener func(ctx context.Context, device audio.Device) (Capture, error)

// Controller owns the one Session a process may have at a time (spec.md
// Section 3 "Session"): the fsm state, the worker goroutine, and the diff
// tracker that turns transcript snapshots into a client-visible edit
// stream.
type Controller struct {
	logger             *slog.Logger
	selectDevice       DeviceSelector
	openCapture        CaptureOpener
	transcriber        Transcriber
	tracker            *diff.Tracker
	indicator          Indicator
	transcribeInterval time.Duration

	mu      sync.Mutex
	state   fsm.State
	capture Capture
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a controller. The transcriber and tracker are reused
// across sessions and Reset on each START; the recognizer backing the
// transcriber is loaded once at process startup per spec.md's
// ModelLoadError contract and outlives every individual session.
func New(
	logger *slog.Logger,
	selectDevice DeviceSelector,
	openCapture CaptureOpener,
	transcriber Transcriber,
	tracker *diff.Tracker,
	indicator Indicator,
	transcribeInterval time.Duration,
) *Controller {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if tracker == nil {
		tracker = diff.New()
	}
	if transcribeInterval <= 0 {
		transcribeInterval = 500 * time.Millisecond
	}
	return &Controller{
		logger:             logger,
		selectDevice:       selectDevice,
		openCapture:        openCapture,
		transcriber:        transcriber,
		tracker:            tracker,
		indicator:          indicator,
		transcribeInterval: transcribeInterval,
		state:              fsm.StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start transitions Idle -> Recording: it selects an input device, opens
// the capture pipeline, and spawns the worker goroutine that owns it.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != fsm.StateIdle {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	c.mu.Unlock()

	device, err := c.selectDevice(ctx)
	if err != nil {
		return fmt.Errorf("select input device: %w", err)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	capture, err := c.openCapture(workerCtx, device)
	if err != nil {
		cancel()
		return fmt.Errorf("open capture: %w", err)
	}

	c.mu.Lock()
	next, terr := fsm.Transition(c.state, fsm.EventStart)
	if terr != nil {
		c.mu.Unlock()
		cancel()
		_ = capture.Stop()
		return terr
	}
	c.state = next
	c.capture = capture
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	c.transcriber.Reset()
	c.tracker.Reset()
	c.indicator.ShowRecording(ctx)

	go c.workerLoop(workerCtx, capture, done)
	return nil
}

// Stop transitions Recording -> Idle: it cancels the worker's context,
// which it observes within one ~10ms tick, and joins the worker goroutine.
// The worker stops the capture stream itself before exiting, on the thread
// that owns it.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != fsm.StateRecording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	next, terr := fsm.Transition(c.state, fsm.EventStop)
	if terr != nil {
		c.mu.Unlock()
		return terr
	}
	c.state = next
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.capture = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.indicator.CueStop(context.Background())
	c.indicator.Hide(context.Background())
	return nil
}

// Poll returns the control-socket response line for the current state.
// Diffing happens here, driven by the polling client, not by the worker
// (spec.md Section 4.6): the rate of diff updates matches the client's
// consumption rate.
func (c *Controller) Poll() string {
	if c.State() != fsm.StateRecording {
		return ipc.FormatPoll(false, 0, "")
	}

	snapshot := c.transcriber.CurrentTranscript()
	result := c.tracker.Update(snapshot)
	if result == nil {
		return ipc.FormatPoll(true, 0, "")
	}
	return ipc.FormatPoll(true, result.Backspaces, result.Appended)
}

// workerLoop runs on its own goroutine for the lifetime of one session. It
// owns capture (spec.md Section 9: the capture handle is not safe to move
// between threads), drains frames into the transcriber's rolling buffer,
// and periodically re-infers over the whole window.
func (c *Controller) workerLoop(ctx context.Context, capture Capture, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := capture.Stop(); err != nil && c.logger != nil {
			c.logger.Warn("capture stop failed", "error", err.Error())
		}
	}()

	ticker := time.NewTicker(workerTick)
	defer ticker.Stop()

	lastTranscribe := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			frame, ok := capture.RecvNonblocking()
			if !ok {
				break
			}
			c.transcriber.PushAudio(frame)
		}

		if time.Since(lastTranscribe) < c.transcribeInterval {
			continue
		}
		lastTranscribe = time.Now()

		_, changed, err := c.transcriber.Transcribe()
		if err != nil {
			if c.logger != nil {
				c.logger.Error("inference failed", "error", err.Error())
			}
			continue
		}
		if changed && c.logger != nil {
			c.logger.Debug("transcript updated")
		}
	}
}

// Handle serves one control-socket command against this controller,
// matching spec.md Section 6's PING/START/STOP/POLL verbs. SHUTDOWN is
// intercepted by the server wiring in internal/app, not here: it
// terminates the process, which is outside this type's scope.
func (c *Controller) Handle(command string) ipc.Response {
	switch command {
	case ipc.CommandPing:
		return ipc.Response{Line: "PONG"}
	case ipc.CommandStart:
		if err := c.Start(context.Background()); err != nil {
			return ipc.Response{Line: ipc.ErrorLine(err.Error())}
		}
		return ipc.Response{Line: "OK"}
	case ipc.CommandStop:
		if err := c.Stop(); err != nil {
			return ipc.Response{Line: ipc.ErrorLine(err.Error())}
		}
		return ipc.Response{Line: "OK"}
	case ipc.CommandPoll:
		return ipc.Response{Line: c.Poll()}
	default:
		return ipc.Response{Line: ipc.ErrorLine("unknown command " + command)}
	}
}

// OpenPulseCapture adapts internal/audio.Open to the CaptureOpener shape,
// binding the logger/debugDump parameters once so the Controller does not
// forward them per call.
func OpenPulseCapture(logger *slog.Logger, debugDump bool) CaptureOpener {
	return func(ctx context.Context, device audio.Device) (Capture, error) {
		return audio.Open(ctx, logger, device, debugDump)
	}
}
