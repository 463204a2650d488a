package supervise

import (
	"fmt"
	"syscall"
)

// Outcome is what the supervisor reports for a finished child: its own exit
// code and, when something went wrong, a one line diagnostic.
type Outcome struct {
	Code       int
	Diagnostic string
}

// TranslateExit classifies the child's final status. A death by the end
// signal is only expected when the supervisor asked for it, which is what
// requested records.
func TranslateExit(status ExitStatus, endSignal syscall.Signal, requested bool) Outcome {
	switch {
	case status.Signaled() && requested && status.Signal == endSignal:
		return Outcome{}
	case status.Signaled():
		return Outcome{
			Code:       1,
			Diagnostic: fmt.Sprintf("command crashed with signal %d", int(status.Signal)),
		}
	case status.Code > 0:
		return Outcome{
			Code:       status.Code,
			Diagnostic: fmt.Sprintf("command failed with exit status %d", status.Code),
		}
	default:
		return Outcome{}
	}
}
