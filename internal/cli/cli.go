// Package cli parses whisperd's small argv surface: one verb per
// invocation, plus a handful of global flags.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

// Command identifies one whisperd verb.
type Command string

const (
	CommandServe    Command = "serve"
	CommandPing     Command = "ping"
	CommandStart    Command = "start"
	CommandStop     Command = "stop"
	CommandPoll     Command = "poll"
	CommandShutdown Command = "shutdown"
	CommandStatus   Command = "status"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:    {},
	CommandPing:     {},
	CommandStart:    {},
	CommandStop:     {},
	CommandPoll:     {},
	CommandShutdown: {},
	CommandStatus:   {},
	CommandDevices:  {},
	CommandDoctor:   {},
	CommandVersion:  {},
	CommandHelp:     {},
}

// Parsed is the result of parsing argv into a command and its global flags.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse splits args into exactly one command plus optional flags. Flags must
// appear before the command: the command itself, if present, must be the
// last argument.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(strings.ToLower(arg))
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

// HelpText renders the usage banner printed by `help` and on parse errors.
func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  serve     Run the dictation daemon (blocks until SHUTDOWN or signal)
  ping      Check daemon liveness
  start     Begin a recording session
  stop      End the active recording session
  poll      Fetch the pending (backspaces, appended) edit
  shutdown  Terminate the daemon
  status    Print idle/recording state
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/whisperd/config.conf)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
