package supervise

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus is the child's final status. Signal is non-zero when the child
// was terminated by a signal, in which case Code is meaningless.
type ExitStatus struct {
	Code   int
	Signal syscall.Signal
}

func (s ExitStatus) Signaled() bool {
	return s.Signal != 0
}

func (s ExitStatus) String() string {
	if s.Signaled() {
		return fmt.Sprintf("signal %s", SignalName(s.Signal))
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

func exitStatusFromWait(ws syscall.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{Signal: ws.Signal()}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}

// Exited reports whether the child has terminated without reaping it, so
// that Wait still observes the final status.
func (h *CommandHandle) Exited() (bool, error) {
	var info unix.Siginfo

	for {
		err := unix.Waitid(unix.P_PID, h.Pid(), &info, unix.WEXITED|unix.WNOHANG|unix.WNOWAIT, nil)
		switch err {
		case nil:
			// With WNOHANG the kernel leaves si_signo zero when the
			// child has not changed state.
			return info.Signo != 0, nil
		case unix.EINTR:
			continue
		default:
			return false, fmt.Errorf("Exited: waitid failed for %d: %w", h.Pid(), err)
		}
	}
}

// Wait blocks until the child is reaped and releases the handle.
func (h *CommandHandle) Wait() (ExitStatus, error) {
	defer h.release()

	err := h.cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return ExitStatus{}, fmt.Errorf("Wait: error waiting for %d: %w", h.Pid(), err)
	}

	ws, ok := h.cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitStatus{Code: h.cmd.ProcessState.ExitCode()}, nil
	}

	return exitStatusFromWait(ws), nil
}

func (h *CommandHandle) release() {
	if h.pidfd >= 0 {
		unix.Close(h.pidfd)
		h.pidfd = -1
	}
}
