package supervise

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"syscall"
	"time"

	"code.crute.us/mcrute/daemon-helper/supervise/logging"
	"github.com/spf13/pflag"
)

//go:generate go run ../generate_syscall/main.go

const (
	modeTerm            = "term"
	nostdinToken        = "nostdin"
	DefaultPollInterval = 200 * time.Millisecond
)

// ErrUsage is wrapped by every ParseInvocation error caused by bad command
// line input.
var ErrUsage = errors.New("invalid usage")

// Invocation is the supervisor configuration. It is derived once from the
// command line and never changes afterwards.
type Invocation struct {
	// EndSignal is delivered to the child when the control channel
	// closes. It is TERM when the mode argument is "term" and KILL for
	// any other mode.
	EndSignal syscall.Signal

	// KillGroup directs every signal at the child's process group rather
	// than the child alone. In this mode signal bytes read from the
	// control channel are not forwarded as received; EndSignal is sent to
	// the group instead.
	KillGroup bool

	// NoStdin lets the child inherit the supervisor's stdin. When false
	// the child reads from /dev/null and is started in a new session so
	// that group signals reach its descendants but not the supervisor.
	NoStdin bool

	// Command is the child program followed by its arguments. It is
	// executed directly, never through a shell.
	Command []string

	// PollInterval bounds how long the supervisor waits on the control
	// channel before checking whether the child is still alive.
	PollInterval time.Duration

	// Verbose enables debug event records on stderr.
	Verbose bool

	// LogFormat selects how records on stderr are rendered.
	LogFormat logging.Format
}

// EndSignalForMode maps the mode argument to the end signal.
func EndSignalForMode(mode string) syscall.Signal {
	if mode == modeTerm {
		return syscall.SIGTERM
	}
	return syscall.SIGKILL
}

// ParseInvocation parses args (argv without the program name) in the form
//
//	<mode> [options] [--kill-group] [nostdin] <command> [args...]
//
// Option parsing stops at the first non-option token so options meant for
// the child are passed through untouched. pflag.ErrHelp is returned as-is
// when help was requested.
func ParseInvocation(program string, args []string) (*Invocation, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("ParseInvocation: missing mode: %w", ErrUsage)
	}

	switch args[0] {
	case "-h", "--help":
		return nil, pflag.ErrHelp
	}

	inv := &Invocation{
		EndSignal: EndSignalForMode(args[0]),
	}

	var logFormat string
	fs := newFlagSet(program, inv, &logFormat)

	if err := fs.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil, err
		}
		return nil, fmt.Errorf("ParseInvocation: %s: %w", err, ErrUsage)
	}

	var err error
	if inv.LogFormat, err = logging.ParseFormat(logFormat); err != nil {
		return nil, fmt.Errorf("ParseInvocation: %s: %w", err, ErrUsage)
	}

	if inv.PollInterval <= 0 {
		return nil, fmt.Errorf("ParseInvocation: poll interval must be positive, got %s: %w", inv.PollInterval, ErrUsage)
	}

	rest := fs.Args()
	if len(rest) > 0 && rest[0] == nostdinToken {
		inv.NoStdin = true
		rest = rest[1:]
	}

	if len(rest) == 0 {
		return nil, fmt.Errorf("ParseInvocation: missing command: %w", ErrUsage)
	}
	inv.Command = append([]string(nil), rest...)

	return inv, nil
}

func newFlagSet(program string, inv *Invocation, logFormat *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.BoolVar(&inv.KillGroup, "kill-group", false, "signal the child's whole process group")
	fs.DurationVar(&inv.PollInterval, "poll-interval", DefaultPollInterval, "maximum wait on the control channel between liveness checks")
	fs.BoolVarP(&inv.Verbose, "verbose", "v", false, "log supervisor events to stderr")
	fs.StringVar(logFormat, "log-format", string(logging.Text), "stderr record format: text, json or auto")

	return fs
}

// Usage renders the help text for program.
func Usage(program string) string {
	var logFormat string
	fs := newFlagSet(program, &Invocation{}, &logFormat)

	return fmt.Sprintf("usage: %s <mode> [options] [--kill-group] [nostdin] <command> [args...]\n\n", program) +
		"Mode \"term\" ends the child with TERM, any other mode uses KILL.\n" +
		"Closing stdin ends the child. Each byte written to stdin is a signal number.\n\n" +
		"Options:\n" + fs.FlagUsages()
}

// SignalName returns the short name of sig ("TERM") or its number when the
// signal has no name.
func SignalName(sig syscall.Signal) string {
	if n, ok := signalNames[sig]; ok {
		return n
	}
	return strconv.Itoa(int(sig))
}
