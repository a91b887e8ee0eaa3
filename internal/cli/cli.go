// Package cli parses the recite command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandPractice  Command = "practice"
	CommandToggle    Command = "toggle"
	CommandStart     Command = "start"
	CommandStop      Command = "stop"
	CommandCancel    Command = "cancel"
	CommandNext      Command = "next"
	CommandPrevious  Command = "previous"
	CommandRedo      Command = "redo"
	CommandPlay      Command = "play"
	CommandPause     Command = "pause"
	CommandResume    Command = "resume"
	CommandHint      Command = "hint"
	CommandStatus    Command = "status"
	CommandExercises Command = "exercises"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandPractice:  {},
	CommandToggle:    {},
	CommandStart:     {},
	CommandStop:      {},
	CommandCancel:    {},
	CommandNext:      {},
	CommandPrevious:  {},
	CommandRedo:      {},
	CommandPlay:      {},
	CommandPause:     {},
	CommandResume:    {},
	CommandHint:      {},
	CommandStatus:    {},
	CommandExercises: {},
	CommandDevices:   {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

// Forwarded reports whether the command is relayed to a running session.
func (c Command) Forwarded() bool {
	switch c {
	case CommandToggle, CommandStart, CommandStop, CommandCancel,
		CommandNext, CommandPrevious, CommandRedo,
		CommandPlay, CommandPause, CommandResume, CommandHint, CommandStatus:
		return true
	}
	return false
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Exercise   string
	ShowHelp   bool
}

// Parse reads flags and exactly one command. Flags may appear on either side
// of the command.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	seenCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		name, inline, hasInline := strings.Cut(arg, "=")
		switch name {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			return parsed, nil
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			seenCommand = true
		case "--config", "--exercise":
			value := inline
			if !hasInline {
				i++
				if i >= len(args) {
					return Parsed{}, fmt.Errorf("%s requires a value", name)
				}
				value = args[i]
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return Parsed{}, fmt.Errorf("%s requires a value", name)
			}
			if name == "--config" {
				parsed.ConfigPath = value
			} else {
				parsed.Exercise = strings.ToLower(value)
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			if seenCommand {
				return Parsed{}, fmt.Errorf("unexpected argument %q after command %q", arg, parsed.Command)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			seenCommand = true
		}
	}

	if !seenCommand && (parsed.ConfigPath != "" || parsed.Exercise != "") {
		return Parsed{}, errors.New("missing command")
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--exercise KEY] <command>

Session:
  practice   Run a practice session for the exercise (owns the microphone)
  toggle     Start recording, or stop and submit when recording
  start      Start recording
  stop       Stop recording and submit for evaluation
  cancel     Discard the active recording or evaluation
  next       Move to the next item
  previous   Move to the previous item
  redo       Restart the exercise from the first item
  play       Play the prompt audio for the current item
  pause      Pause prompt audio
  resume     Resume prompt audio
  hint       Reveal the secondary text for the current item
  status     Print the session state

Other:
  exercises  List the exercise catalog
  devices    List audio input sources
  doctor     Run configuration and environment checks
  version    Print version information
  help       Show this help

Flags:
  --config PATH    Config file path (default: $XDG_CONFIG_HOME/recite/config.jsonc)
  --exercise KEY   Exercise to practice; session commands check it against the running session
  -h, --help       Show help
  --version        Show version
`, binaryName)
}
