package supervise

import (
	"syscall"
	"testing"
	"time"

	"code.crute.us/mcrute/daemon-helper/supervise/logging"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndSignalForMode(t *testing.T) {
	assert.Equal(t, syscall.SIGTERM, EndSignalForMode("term"))
	assert.Equal(t, syscall.SIGKILL, EndSignalForMode("kill"))
	assert.Equal(t, syscall.SIGKILL, EndSignalForMode("TERM"))
	assert.Equal(t, syscall.SIGKILL, EndSignalForMode(""))
	assert.Equal(t, syscall.SIGKILL, EndSignalForMode("anything"))
}

func TestParseInvocationMinimal(t *testing.T) {
	inv, err := ParseInvocation("daemon-helper", []string{"term", "sleep", "10"})
	require.NoError(t, err)

	assert.Equal(t, syscall.SIGTERM, inv.EndSignal)
	assert.False(t, inv.KillGroup)
	assert.False(t, inv.NoStdin)
	assert.Equal(t, []string{"sleep", "10"}, inv.Command)
	assert.Equal(t, DefaultPollInterval, inv.PollInterval)
	assert.Equal(t, logging.Text, inv.LogFormat)
	assert.False(t, inv.Verbose)
}

func TestParseInvocationKillGroupAndNostdin(t *testing.T) {
	inv, err := ParseInvocation("daemon-helper", []string{"kill", "--kill-group", "nostdin", "ceph-osd", "-f", "-i", "0"})
	require.NoError(t, err)

	assert.Equal(t, syscall.SIGKILL, inv.EndSignal)
	assert.True(t, inv.KillGroup)
	assert.True(t, inv.NoStdin)
	assert.Equal(t, []string{"ceph-osd", "-f", "-i", "0"}, inv.Command)
}

func TestParseInvocationNostdinOnly(t *testing.T) {
	inv, err := ParseInvocation("daemon-helper", []string{"term", "nostdin", "cat"})
	require.NoError(t, err)

	assert.False(t, inv.KillGroup)
	assert.True(t, inv.NoStdin)
	assert.Equal(t, []string{"cat"}, inv.Command)
}

func TestParseInvocationStopsAtCommand(t *testing.T) {
	inv, err := ParseInvocation("daemon-helper", []string{"term", "ls", "--kill-group", "nostdin"})
	require.NoError(t, err)

	assert.False(t, inv.KillGroup)
	assert.False(t, inv.NoStdin)
	assert.Equal(t, []string{"ls", "--kill-group", "nostdin"}, inv.Command)
}

func TestParseInvocationSeparator(t *testing.T) {
	inv, err := ParseInvocation("daemon-helper", []string{"term", "--kill-group", "--", "-weird-name"})
	require.NoError(t, err)

	assert.True(t, inv.KillGroup)
	assert.Equal(t, []string{"-weird-name"}, inv.Command)
}

func TestParseInvocationOptions(t *testing.T) {
	inv, err := ParseInvocation("daemon-helper", []string{"term", "-v", "--poll-interval", "50ms", "--log-format=json", "true"})
	require.NoError(t, err)

	assert.True(t, inv.Verbose)
	assert.Equal(t, 50*time.Millisecond, inv.PollInterval)
	assert.Equal(t, logging.JSON, inv.LogFormat)
}

func TestParseInvocationErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"no args":           {},
		"no command":        {"term"},
		"only flags":        {"term", "--kill-group", "nostdin"},
		"unknown flag":      {"term", "--bogus", "true"},
		"bad format":        {"term", "--log-format", "xml", "true"},
		"zero interval":     {"term", "--poll-interval", "0s", "true"},
		"bad interval":      {"term", "--poll-interval", "soon", "true"},
		"negative interval": {"term", "--poll-interval=-1s", "true"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInvocation("daemon-helper", args)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestParseInvocationHelp(t *testing.T) {
	_, err := ParseInvocation("daemon-helper", []string{"term", "--help"})
	assert.Equal(t, pflag.ErrHelp, err)

	_, err = ParseInvocation("daemon-helper", []string{"term", "-h"})
	assert.Equal(t, pflag.ErrHelp, err)

	_, err = ParseInvocation("daemon-helper", []string{"--help"})
	assert.Equal(t, pflag.ErrHelp, err)
}

func TestUsage(t *testing.T) {
	u := Usage("daemon-helper")
	assert.Contains(t, u, "usage: daemon-helper <mode>")
	assert.Contains(t, u, "--kill-group")
	assert.Contains(t, u, "--poll-interval")
}

func TestSignalName(t *testing.T) {
	assert.Equal(t, "KILL", SignalName(syscall.SIGKILL))
	assert.Equal(t, "TERM", SignalName(syscall.SIGTERM))
	assert.Equal(t, "ABRT", SignalName(syscall.SIGIOT))
	assert.Equal(t, "CHLD", SignalName(syscall.SIGCHLD))
	assert.Equal(t, "-3", SignalName(syscall.Signal(-3)))
	assert.Equal(t, "100", SignalName(syscall.Signal(100)))
}
