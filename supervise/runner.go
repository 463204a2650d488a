package supervise

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// CommandHandle is the supervisor's handle on a launched child. It stays
// valid until Wait reaps the child.
type CommandHandle struct {
	cmd     *exec.Cmd
	pidfd   int
	session bool
}

func (h *CommandHandle) Pid() int {
	return h.cmd.Process.Pid
}

// Pgid returns the child's process group id, which equals its pid when it
// was started in its own session, or 0 otherwise.
func (h *CommandHandle) Pgid() int {
	if !h.session {
		return 0
	}
	return h.cmd.Process.Pid
}

// WakeFd is a descriptor that becomes readable when the child exits, or -1
// when the kernel could not provide one.
func (h *CommandHandle) WakeFd() int {
	return h.pidfd
}

func (h *CommandHandle) Signal(sig syscall.Signal) error {
	return h.cmd.Process.Signal(sig)
}

// SignalGroup delivers sig to every process in the child's process group.
func (h *CommandHandle) SignalGroup(sig syscall.Signal) error {
	return unix.Kill(-h.cmd.Process.Pid, sig)
}

type CommandRunner struct {
	// Stdin is handed to the child when the invocation asks for stdin to
	// be inherited. Stdout and Stderr are always handed to the child.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Run starts the invocation's command. Unless NoStdin is set the child gets
// /dev/null as stdin and heads a new session.
func (r *CommandRunner) Run(inv *Invocation) (*CommandHandle, error) {
	if len(inv.Command) == 0 {
		return nil, fmt.Errorf("Run: empty command")
	}

	cmd := exec.Command(inv.Command[0], inv.Command[1:]...)

	// Nil streams are left unset so exec connects them to os.DevNull. A
	// typed nil *os.File would close the descriptor in the child instead.
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}

	if inv.NoStdin {
		if r.Stdin != nil {
			cmd.Stdin = r.Stdin
		}
	} else {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("Run: error starting %s: %w", inv.Command[0], err)
	}

	hnd := &CommandHandle{
		cmd:     cmd,
		pidfd:   -1,
		session: !inv.NoStdin,
	}

	// The pid cannot be reused before Wait reaps it, so the pidfd always
	// refers to this child.
	if fd, err := unix.PidfdOpen(cmd.Process.Pid, 0); err == nil {
		hnd.pidfd = fd
	}

	return hnd, nil
}
