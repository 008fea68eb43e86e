// Package app wires CLI dispatch to the daemon (Controller/Worker) side and
// the control-socket client side described in spec.md Sections 4.6 and 6.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/tollefsen/whisperd/internal/audio"
	"github.com/tollefsen/whisperd/internal/cli"
	"github.com/tollefsen/whisperd/internal/config"
	"github.com/tollefsen/whisperd/internal/diff"
	"github.com/tollefsen/whisperd/internal/doctor"
	"github.com/tollefsen/whisperd/internal/indicator"
	"github.com/tollefsen/whisperd/internal/ipc"
	"github.com/tollefsen/whisperd/internal/logging"
	"github.com/tollefsen/whisperd/internal/recognize"
	"github.com/tollefsen/whisperd/internal/session"
	"github.com/tollefsen/whisperd/internal/transcribe"
	"github.com/tollefsen/whisperd/internal/version"
)

// clientCommandTimeout bounds one request/response roundtrip against an
// already-running daemon.
const clientCommandTimeout = 500 * time.Millisecond

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute is the package entrypoint used by cmd/whisperd/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses CLI arguments, loads config/logging, and dispatches a command.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("whisperd"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("whisperd"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandPing, cli.CommandStart, cli.CommandStop, cli.CommandPoll, cli.CommandShutdown:
		return r.commandForward(ctx, string(parsed.Command))
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandDevices prints discovered input devices and key availability metadata.
func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

// commandServe runs the daemon: it acquires the control socket, loads the
// recognizer once, and serves PING/START/STOP/POLL/SHUTDOWN until SHUTDOWN
// or process signal (spec.md Section 6, Section 4.6).
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath := ipc.SocketPath()

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 4)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: whisperd is already serving at %s\n", socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	recognizer, err := recognize.New(cfg.Model.Path, cfg.Model.Language)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("model load failed", "error", err.Error())
		return 1
	}
	defer func() { _ = recognizer.Close() }()

	transcriber := transcribe.New(recognizer, cfg.Transcribe.BufferDurationSeconds)
	tracker := diff.NewWithAging(cfg.Aging.MinMatchLen, cfg.Aging.MaxKeyLen)
	indicatorCtl := indicator.NewHyprNotify(cfg.Indicator, logger)

	controller := session.New(
		logger,
		func(selectCtx context.Context) (audio.Device, error) {
			selection, selectErr := audio.SelectDevice(selectCtx, cfg.Audio.Input, cfg.Audio.Fallback)
			if selectErr != nil {
				return audio.Device{}, selectErr
			}
			if selection.Warning != "" {
				logger.Warn("audio device fallback", "message", selection.Warning)
			}
			return selection.Device, nil
		},
		session.OpenPulseCapture(logger, cfg.Debug.EnableAudioDump),
		transcriber,
		tracker,
		indicatorCtl,
		time.Duration(cfg.Transcribe.IntervalMS)*time.Millisecond,
	)

	logger.Info("serving", "socket", socketPath)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- ipc.Serve(serverCtx, listener, daemonHandler(controller, logger, serverCancel))
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErrCh:
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
			return 1
		}
		return 0
	}

	serverCancel()
	<-serveErrCh
	return 0
}

// daemonHandler extends session.Controller.Handle with SHUTDOWN: a verb
// the Controller itself does not know how to act on since it terminates
// the process, not a session.
func daemonHandler(controller *session.Controller, logger *slog.Logger, shutdown context.CancelFunc) ipc.Handler {
	return ipc.HandlerFunc(func(command string) ipc.Response {
		if command == ipc.CommandShutdown {
			if err := controller.Stop(); err != nil && !errors.Is(err, session.ErrNotRecording) {
				logger.Warn("stop during shutdown failed", "error", err.Error())
			}
			logger.Info("shutdown requested")
			return ipc.Response{Line: "OK", Shutdown: true}
		}
		return controller.Handle(command)
	})
}

// commandForward sends one spec.md Section 6 control-socket verb to an
// already-running daemon and relays its response line.
func (r Runner) commandForward(ctx context.Context, command string) int {
	resp, err := ipc.Send(ctx, ipc.SocketPath(), command, clientCommandTimeout)
	if err != nil {
		if isNoDaemon(err) {
			fmt.Fprintln(r.Stderr, "error: no whisperd daemon is running; start one with `whisperd serve`")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(r.Stdout, resp)
	if strings.HasPrefix(resp, "ERROR") {
		return 1
	}
	return 0
}

// commandStatus reports idle/recording without requiring the caller to
// interpret the wire protocol: no daemon or an IDLE: response both print
// "idle"; any RECORDING: response prints "recording". This consumes one
// diff step against the live session the way any other POLL does.
func (r Runner) commandStatus(ctx context.Context) int {
	resp, err := ipc.Send(ctx, ipc.SocketPath(), ipc.CommandPoll, clientCommandTimeout)
	if err != nil {
		if isNoDaemon(err) {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	switch {
	case strings.HasPrefix(resp, "RECORDING"):
		fmt.Fprintln(r.Stdout, "recording")
	default:
		fmt.Fprintln(r.Stdout, "idle")
	}
	return 0
}

// isNoDaemon reports whether err reflects the absence of a responsive
// daemon (no socket file, or a socket file nobody is listening on).
func isNoDaemon(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "no such file or directory") {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
