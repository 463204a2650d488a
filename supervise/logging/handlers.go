package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	Auto Format = "auto"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case Text, JSON, Auto:
		return f, nil
	default:
		return "", fmt.Errorf("ParseFormat: unknown log format %q", s)
	}
}

// Resolve turns Auto into Text when w is a terminal and JSON otherwise.
func (f Format) Resolve(w io.Writer) Format {
	if f != Auto {
		return f
	}
	if fd, ok := w.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(fd.Fd())) {
		return Text
	}
	return JSON
}

type recordEncoder func(*LogRecord) error

func newEncoder(w io.Writer, f Format) recordEncoder {
	if f.Resolve(w) == JSON {
		enc := json.NewEncoder(w)
		return func(r *LogRecord) error { return enc.Encode(r) }
	}
	return func(r *LogRecord) error { return r.WriteText(w) }
}

// StreamWriter writes records from the logger channel to w until ctx is
// done, then drains whatever is still queued. The caller must have added
// one to wg before starting it.
func StreamWriter(ctx context.Context, wg *sync.WaitGroup, w io.Writer, f Format, logger *InternalLogger) {
	defer wg.Done()

	encode := newEncoder(w, f)
	write := func(r *LogRecord) {
		if err := encode(r); err != nil {
			// Nowhere left to report this but the raw stream.
			fmt.Fprintf(os.Stderr, "%s: StreamWriter: error writing log: %s\n", r.Program, err)
		}
		logger.Pool.Put(r)
	}

	for {
		select {
		case r := <-logger.Logs:
			write(r)
		case <-ctx.Done():
			for {
				select {
				case r := <-logger.Logs:
					write(r)
				default:
					return
				}
			}
		}
	}
}
