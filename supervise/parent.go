package supervise

import (
	"context"
	"fmt"
	"os"

	"code.crute.us/mcrute/daemon-helper/supervise/logging"
)

type State int

const (
	Running State = iota
	Terminating
	Exited
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Terminating:
		return "terminating"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the final account of one supervised run.
type Result struct {
	Status ExitStatus
	State  State

	// SawEOF records that termination was triggered by the control
	// channel closing.
	SawEOF bool

	// Interrupted records that termination was triggered by a signal to
	// the supervisor or by cancellation of its context.
	Interrupted bool
}

// Outcome translates the result into the supervisor's exit code.
func (r *Result) Outcome(inv *Invocation) Outcome {
	return TranslateExit(r.Status, inv.EndSignal, r.SawEOF || r.Interrupted)
}

// Supervisor runs one child to completion, relaying control events to it.
// It is not safe for concurrent use and Run may only be called once.
type Supervisor struct {
	Invocation *Invocation
	Runner     *CommandRunner
	Logger     *logging.InternalLogger

	// ControlFd is the descriptor control events are read from, normally
	// the supervisor's stdin.
	ControlFd int

	// Signals, when set, delivers signals that ask the supervisor itself
	// to stop. They are handled like the control channel closing.
	Signals <-chan os.Signal

	state       State
	sawEOF      bool
	interrupted bool
	forwarder   *Forwarder
}

func (s *Supervisor) transition(to State) {
	if to <= s.state {
		return
	}
	s.Logger.Debugf("state %s -> %s", s.state, to)
	s.state = to
}

// Run launches the child, relays control events until the child exits or
// termination is requested, then reaps the child. Launch failures are
// returned before anything else happens. Any later error is returned
// alongside a Result because the child has been reaped by then.
func (s *Supervisor) Run(ctx context.Context) (*Result, error) {
	s.forwarder = &Forwarder{Invocation: s.Invocation, Logger: s.Logger}

	hnd, err := s.Runner.Run(s.Invocation)
	if err != nil {
		return nil, err
	}
	s.Logger.Debugf("launched %s as pid %d (pgid %d)", s.Invocation.Command[0], hnd.Pid(), hnd.Pgid())

	loopErr := s.monitor(ctx, hnd)
	if loopErr != nil && s.state == Running {
		// Don't leave the child behind when the control channel breaks.
		s.forwarder.EndOfChannel(hnd)
		s.transition(Terminating)
	}

	status, err := hnd.Wait()
	s.transition(Exited)
	if err != nil {
		return nil, err
	}
	s.Logger.Debugf("reaped pid %d with %s", hnd.Pid(), status)

	res := &Result{
		Status:      status,
		State:       s.state,
		SawEOF:      s.sawEOF,
		Interrupted: s.interrupted,
	}

	if loopErr != nil {
		return res, fmt.Errorf("Run: control channel failed: %w", loopErr)
	}
	return res, nil
}

func (s *Supervisor) monitor(ctx context.Context, hnd *CommandHandle) error {
	control, err := NewControlChannel(s.ControlFd)
	if err != nil {
		return err
	}
	defer control.Close()

	for s.state == Running {
		ev, err := control.Next(s.Invocation.PollInterval, hnd.WakeFd())
		if err != nil {
			return err
		}

		switch ev.Kind {
		case ControlEOF:
			s.Logger.Debugf("control channel closed")
			s.sawEOF = true
			s.transition(Terminating)
			s.forwarder.EndOfChannel(hnd)
			return nil
		case ControlSignal:
			s.Logger.Debugf("control channel requested signal %d", ev.Signal)
			s.forwarder.Explicit(hnd, ev.Signal)
		}

		if s.stopRequested(ctx) {
			s.interrupted = true
			s.transition(Terminating)
			s.forwarder.EndOfChannel(hnd)
			return nil
		}

		exited, err := hnd.Exited()
		if err != nil {
			return err
		}
		if exited {
			s.Logger.Debugf("pid %d exited", hnd.Pid())
			s.transition(Exited)
		}
	}

	return nil
}

func (s *Supervisor) stopRequested(ctx context.Context) bool {
	select {
	case sig := <-s.Signals:
		s.Logger.Debugf("received %s, terminating child", sig)
		return true
	case <-ctx.Done():
		s.Logger.Debugf("context done, terminating child")
		return true
	default:
		return false
	}
}

// Main runs the child, logs the outcome and returns the exit code for the
// supervisor process.
func (s *Supervisor) Main(ctx context.Context) int {
	res, err := s.Run(ctx)
	if res == nil {
		s.Logger.Logf("unable to run command: %s", err)
		return 1
	}

	out := res.Outcome(s.Invocation)
	if out.Diagnostic != "" {
		s.Logger.Log(out.Diagnostic)
	}

	if err != nil {
		s.Logger.Logf("%s", err)
		if out.Code == 0 {
			out.Code = 1
		}
	}

	return out.Code
}
