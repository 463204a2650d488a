package supervise

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

type ControlKind int

const (
	// ControlIdle means nothing was read within the poll interval.
	ControlIdle ControlKind = iota
	ControlSignal
	ControlEOF
)

func (k ControlKind) String() string {
	switch k {
	case ControlSignal:
		return "signal"
	case ControlEOF:
		return "eof"
	default:
		return "idle"
	}
}

type ControlEvent struct {
	Kind ControlKind

	// Signal is the byte read from the channel as a signed 8-bit number.
	// Only meaningful for ControlSignal.
	Signal int8
}

// ControlChannel reads single-byte control events from a file descriptor,
// normally the supervisor's stdin. The descriptor is switched to
// non-blocking mode until Close restores its original flags.
type ControlChannel struct {
	fd    int
	flags int
}

func NewControlChannel(fd int) (*ControlChannel, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return nil, fmt.Errorf("NewControlChannel: unable to read descriptor flags: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("NewControlChannel: unable to set non-blocking mode: %w", err)
	}

	return &ControlChannel{fd: fd, flags: flags}, nil
}

func (c *ControlChannel) Fd() int {
	return c.fd
}

// Next waits up to timeout for one control event. wake is an additional
// descriptor whose readiness ends the wait early without producing an
// event; pass -1 for none.
func (c *ControlChannel) Next(timeout time.Duration, wake int) (ControlEvent, error) {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	if wake >= 0 {
		fds = append(fds, unix.PollFd{Fd: int32(wake), Events: unix.POLLIN})
	}

	if _, err := unix.Poll(fds, int(timeout/time.Millisecond)); err != nil {
		if err == unix.EINTR {
			return ControlEvent{Kind: ControlIdle}, nil
		}
		return ControlEvent{}, fmt.Errorf("ControlChannel.Next: poll failed: %w", err)
	}

	revents := fds[0].Revents
	switch {
	case revents == 0:
		return ControlEvent{Kind: ControlIdle}, nil
	case revents&unix.POLLNVAL != 0:
		return ControlEvent{}, fmt.Errorf("ControlChannel.Next: descriptor %d is not open", c.fd)
	}

	// POLLHUP and POLLERR fall through to the read, which reports EOF or
	// the underlying error.
	return c.read()
}

func (c *ControlChannel) read() (ControlEvent, error) {
	var buf [1]byte

	n, err := unix.Read(c.fd, buf[:])
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return ControlEvent{Kind: ControlIdle}, nil
	case err != nil:
		return ControlEvent{}, fmt.Errorf("ControlChannel.Next: read failed: %w", err)
	case n == 0:
		return ControlEvent{Kind: ControlEOF}, nil
	}

	return ControlEvent{Kind: ControlSignal, Signal: int8(buf[0])}, nil
}

// Close restores the descriptor's original flags. It does not close the
// descriptor.
func (c *ControlChannel) Close() error {
	if _, err := unix.FcntlInt(uintptr(c.fd), unix.F_SETFL, c.flags); err != nil {
		return fmt.Errorf("ControlChannel.Close: unable to restore flags: %w", err)
	}
	return nil
}
