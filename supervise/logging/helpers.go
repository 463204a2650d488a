package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

type InternalLogger struct {
	Logs      chan *LogRecord
	Pool      *RecordPool
	Program   string
	Verbose   bool
	Cancel    func()
	WaitGroup *sync.WaitGroup
}

// NewInternalLogger builds a logger and starts its writer goroutine. Close
// must be called before the process exits or queued records are lost.
func NewInternalLogger(program string, w io.Writer, f Format, verbose bool) *InternalLogger {
	ctx, cancel := context.WithCancel(context.Background())

	l := &InternalLogger{
		Logs:      make(chan *LogRecord, 100),
		Pool:      NewRecordPool(),
		Program:   program,
		Verbose:   verbose,
		Cancel:    cancel,
		WaitGroup: &sync.WaitGroup{},
	}

	l.WaitGroup.Add(1)
	go StreamWriter(ctx, l.WaitGroup, w, f, l)

	return l
}

func (l *InternalLogger) log(level Level, message string) {
	l.Logs <- l.Pool.Get().FromProgram(l.Program, os.Getpid()).FromNow().AtLevel(level).WithMessage(message)
}

func (l *InternalLogger) Log(message string) {
	l.log(Info, message)
}

func (l *InternalLogger) Logf(message string, args ...any) {
	l.Log(fmt.Sprintf(message, args...))
}

func (l *InternalLogger) Debugf(message string, args ...any) {
	if !l.Verbose {
		return
	}
	l.log(Debug, fmt.Sprintf(message, args...))
}

// Close flushes every queued record and stops the writer.
func (l *InternalLogger) Close() {
	l.Cancel()
	l.WaitGroup.Wait()
}

func (l *InternalLogger) Fatalf(message string, args ...any) {
	l.Fatal(fmt.Sprintf(message, args...))
}

func (l *InternalLogger) Fatal(message string) {
	l.Log(message)
	l.Close()
	os.Exit(1)
}
