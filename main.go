// daemon-helper runs a long-lived command and ties its lifetime to stdin.
//
// Usage:
//
//	daemon-helper <mode> [options] [--kill-group] [nostdin] <command> [args...]
//
// Closing stdin sends the end signal (TERM for mode "term", KILL otherwise)
// to the command, or to its process group with --kill-group. Each byte
// written to stdin is forwarded to the command as a signal number.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"code.crute.us/mcrute/daemon-helper/supervise"
	"code.crute.us/mcrute/daemon-helper/supervise/logging"
	"github.com/spf13/pflag"
)

func supervisorMain(program string, inv *supervise.Invocation) int {
	logger := logging.NewInternalLogger(program, os.Stderr, inv.LogFormat, inv.Verbose)
	defer logger.Close()

	sigs := supervise.SetupSignals()
	defer supervise.StopSignals(sigs)

	sup := &supervise.Supervisor{
		Invocation: inv,
		Runner: &supervise.CommandRunner{
			Stdin:  os.Stdin,
			Stdout: os.Stdout,
			Stderr: os.Stderr,
		},
		Logger:    logger,
		ControlFd: syscall.Stdin,
		Signals:   sigs,
	}

	return sup.Main(context.Background())
}

func main() {
	program := supervise.ProgramName()

	inv, err := supervise.ParseInvocation(program, os.Args[1:])
	switch {
	case errors.Is(err, pflag.ErrHelp):
		fmt.Print(supervise.Usage(program))
		os.Exit(0)
	case err != nil:
		// The logger format is not known until parsing succeeds.
		fmt.Fprintf(os.Stderr, "%s: %s\n\n%s", program, err, supervise.Usage(program))
		os.Exit(1)
	}

	os.Exit(supervisorMain(program, inv))
}
