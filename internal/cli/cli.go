package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Command string

const (
	CommandRecord  Command = "record"
	CommandUpload  Command = "upload"
	CommandPause   Command = "pause"
	CommandResume  Command = "resume"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandLogin   Command = "login"
	CommandLogout  Command = "logout"
	CommandWatch   Command = "watch"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRecord:  {},
	CommandUpload:  {},
	CommandPause:   {},
	CommandResume:  {},
	CommandStop:    {},
	CommandCancel:  {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandLogin:   {},
	CommandLogout:  {},
	CommandWatch:   {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	Title        string
	Participants string
	Date         time.Time
	Watch        bool
	Device       string
	Duration     int
	Token        string
	File         string
	MeetingID    string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			return parsed, nil
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			return parsed, nil
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

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if err := parseCommandArgs(&parsed, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// parseCommandArgs consumes everything after the command word. Commands
// without flags of their own reject trailing arguments outright.
func parseCommandArgs(parsed *Parsed, args []string) error {
	switch parsed.Command {
	case CommandRecord:
		return parseRecordArgs(parsed, args)
	case CommandUpload:
		return parseUploadArgs(parsed, args)
	case CommandLogin:
		return parseLoginArgs(parsed, args)
	case CommandWatch:
		return parseWatchArgs(parsed, args)
	default:
		if len(args) > 0 {
			return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
		}
		return nil
	}
}

func parseRecordArgs(parsed *Parsed, args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--title":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			parsed.Title = value
		case "--participants":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			parsed.Participants = value
		case "--date":
			if err := parseDateFlag(parsed, args, &i); err != nil {
				return err
			}
		case "--device":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			parsed.Device = value
		case "--watch":
			parsed.Watch = true
		default:
			return fmt.Errorf("unknown argument for record: %s", arg)
		}
	}
	return nil
}

func parseUploadArgs(parsed *Parsed, args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--title":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			parsed.Title = value
		case "--participants":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			parsed.Participants = value
		case "--date":
			if err := parseDateFlag(parsed, args, &i); err != nil {
				return err
			}
		case "--duration":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			seconds, convErr := strconv.Atoi(value)
			if convErr != nil || seconds < 0 {
				return fmt.Errorf("--duration must be a non-negative integer, got %q", value)
			}
			parsed.Duration = seconds
		case "--watch":
			parsed.Watch = true
		default:
			if strings.HasPrefix(arg, "-") {
				return fmt.Errorf("unknown argument for upload: %s", arg)
			}
			if parsed.File != "" {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			parsed.File = arg
		}
	}
	if parsed.File == "" {
		return errors.New("upload requires an audio file path")
	}
	return nil
}

func parseLoginArgs(parsed *Parsed, args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--token":
			value, err := flagValue(args, &i, arg)
			if err != nil {
				return err
			}
			parsed.Token = value
		default:
			return fmt.Errorf("unknown argument for login: %s", arg)
		}
	}
	return nil
}

func parseWatchArgs(parsed *Parsed, args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("unknown argument for watch: %s", arg)
		}
		if parsed.MeetingID != "" {
			return fmt.Errorf("unexpected argument: %s", arg)
		}
		parsed.MeetingID = arg
	}
	if parsed.MeetingID == "" {
		return errors.New("watch requires a meeting id")
	}
	return nil
}

func parseDateFlag(parsed *Parsed, args []string, i *int) error {
	value, err := flagValue(args, i, "--date")
	if err != nil {
		return err
	}
	ts, parseErr := time.Parse(time.RFC3339, value)
	if parseErr != nil {
		return fmt.Errorf("--date must be an RFC 3339 timestamp, got %q", value)
	}
	parsed.Date = ts
	return nil
}

func flagValue(args []string, i *int, name string) (string, error) {
	*i++
	if *i >= len(args) {
		return "", fmt.Errorf("%s requires a value", name)
	}
	return args[*i], nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [flags]

Commands:
  record    Record a meeting, then submit it for processing
  upload    Submit an existing audio file for processing
  pause     Pause the active recording
  resume    Resume a paused recording
  stop      Stop the active recording and continue to submission
  cancel    Cancel the active recording and discard the audio
  status    Print recorder state and elapsed time
  devices   List available capture devices
  login     Store the server bearer token
  logout    Clear the stored bearer token
  watch     Poll a submitted meeting until processing finishes
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH        Config file path (default: $XDG_CONFIG_HOME/meetscribe/config.jsonc)
  -h, --help           Show help
  --version            Show version

Record flags:
  --title TEXT         Meeting title (prompted when omitted)
  --participants LIST  Participant emails, comma or space separated
  --date TIMESTAMP     Meeting time, RFC 3339 (default: now)
  --device TERM        Capture device ID or description substring
  --watch              Poll processing status after submit

Upload flags (plus --title, --participants, --date, --watch):
  --duration SECONDS   Recording length when not readable from the file

Login flags:
  --token TOKEN        Bearer token (prompted when omitted)
`, binaryName)
}
