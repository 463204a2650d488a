package supervise

import (
	"os"
	"os/signal"
	"syscall"

	"code.crute.us/mcrute/daemon-helper/supervise/logging"
	"golang.org/x/sys/unix"
)

// SetupSignals captures the signals that ask the supervisor itself to shut
// down. The child runs in its own session and would not see them otherwise.
func SetupSignals() chan os.Signal {
	sigs := make(chan os.Signal, 10)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	return sigs
}

func StopSignals(sigs chan os.Signal) {
	signal.Stop(sigs)
}

type signalTarget interface {
	Pid() int
	Signal(syscall.Signal) error
	SignalGroup(syscall.Signal) error
}

// Forwarder turns control events into signals for the child. Delivery is
// fire and forget, the liveness poll and the final wait decide what
// actually happened.
type Forwarder struct {
	Invocation *Invocation
	Logger     *logging.InternalLogger
}

// EndOfChannel delivers the end signal to the child, or to its whole group
// in kill-group mode.
func (f *Forwarder) EndOfChannel(t signalTarget) {
	f.deliver(t, f.Invocation.EndSignal)
}

// Explicit handles a signal byte read from the control channel. In
// kill-group mode the received number is ignored and the end signal goes to
// the group instead.
func (f *Forwarder) Explicit(t signalTarget, n int8) {
	if f.Invocation.KillGroup {
		f.Logger.Debugf("ignoring signal %d in kill-group mode, sending %s instead", n, SignalName(f.Invocation.EndSignal))
	}
	f.deliver(t, syscall.Signal(n))
}

func (f *Forwarder) deliver(t signalTarget, sig syscall.Signal) {
	var err error
	if f.Invocation.KillGroup {
		sig = f.Invocation.EndSignal
		f.Logger.Debugf("sending %s to process group %d", SignalName(sig), t.Pid())
		err = t.SignalGroup(sig)
		if err == unix.ESRCH {
			// nostdin children share the supervisor's group, there is
			// no group of their own to signal.
			f.Logger.Debugf("no process group %d, sending %s to pid instead", t.Pid(), SignalName(sig))
			err = t.Signal(sig)
		}
	} else {
		f.Logger.Debugf("sending %s to pid %d", SignalName(sig), t.Pid())
		err = t.Signal(sig)
	}

	if err != nil {
		f.Logger.Debugf("signal %s not delivered: %s", SignalName(sig), err)
	}
}
