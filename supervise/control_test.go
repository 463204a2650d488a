package supervise

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newControlPipe(t *testing.T) (*ControlChannel, *os.File, *os.File) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})

	c, err := NewControlChannel(int(r.Fd()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, r, w
}

func TestControlChannelIdle(t *testing.T) {
	c, _, _ := newControlPipe(t)

	start := time.Now()
	ev, err := c.Next(50*time.Millisecond, -1)
	require.NoError(t, err)

	assert.Equal(t, ControlIdle, ev.Kind)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestControlChannelSignalBytes(t *testing.T) {
	c, _, w := newControlPipe(t)

	_, err := w.Write([]byte{byte(unix.SIGUSR1), 0xff})
	require.NoError(t, err)

	ev, err := c.Next(time.Second, -1)
	require.NoError(t, err)
	assert.Equal(t, ControlEvent{Kind: ControlSignal, Signal: int8(unix.SIGUSR1)}, ev)

	// One byte per event, the second is still queued.
	ev, err = c.Next(time.Second, -1)
	require.NoError(t, err)
	assert.Equal(t, ControlEvent{Kind: ControlSignal, Signal: -1}, ev)
}

func TestControlChannelEOF(t *testing.T) {
	c, _, w := newControlPipe(t)
	require.NoError(t, w.Close())

	ev, err := c.Next(time.Second, -1)
	require.NoError(t, err)
	assert.Equal(t, ControlEOF, ev.Kind)
}

func TestControlChannelWakeFd(t *testing.T) {
	c, _, _ := newControlPipe(t)

	wr, ww, err := os.Pipe()
	require.NoError(t, err)
	defer wr.Close()
	defer ww.Close()

	_, err = ww.Write([]byte{1})
	require.NoError(t, err)

	start := time.Now()
	ev, err := c.Next(5*time.Second, int(wr.Fd()))
	require.NoError(t, err)

	assert.Equal(t, ControlIdle, ev.Kind)
	assert.Less(t, time.Since(start), time.Second)
}

func TestControlChannelRestoresFlags(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fd := int(r.Fd())
	require.NoError(t, unix.SetNonblock(fd, false))

	c, err := NewControlChannel(fd)
	require.NoError(t, err)

	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.O_NONBLOCK)

	require.NoError(t, c.Close())

	flags, err = unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	require.NoError(t, err)
	assert.Zero(t, flags&unix.O_NONBLOCK)
}

func TestControlChannelClosedDescriptor(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	fd := int(r.Fd())
	c, err := NewControlChannel(fd)
	require.NoError(t, err)
	r.Close()

	_, err = c.Next(100*time.Millisecond, -1)
	assert.Error(t, err)
}

func TestControlKindString(t *testing.T) {
	assert.Equal(t, "idle", ControlIdle.String())
	assert.Equal(t, "signal", ControlSignal.String())
	assert.Equal(t, "eof", ControlEOF.String())
}
