package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"time"
)

const maxBufferSize = 4000 // 4kbytes

type Level int

const (
	Info Level = iota
	Debug
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	default:
		return "info"
	}
}

type LogRecord struct {
	Program string
	Pid     int
	Time    int64
	Level   Level
	Message io.ReadWriter
}

func (r *LogRecord) FromProgram(p string, pid int) *LogRecord {
	r.Program = p
	r.Pid = pid
	return r
}

func (r *LogRecord) FromNow() *LogRecord {
	r.Time = time.Now().Unix()
	return r
}

func (r *LogRecord) AtLevel(l Level) *LogRecord {
	r.Level = l
	return r
}

func (r *LogRecord) WithMessage(s string) *LogRecord {
	r.Message.(*bytes.Buffer).WriteString(s)
	return r
}

func (r *LogRecord) Cap() int {
	return r.Message.(*bytes.Buffer).Cap()
}

func (r *LogRecord) Reset() *LogRecord {
	r.Program = ""
	r.Pid = 0
	r.Time = time.Now().Unix()
	r.Level = Info

	if r.Message == nil {
		r.Message = &bytes.Buffer{}
	} else {
		// Free buffers that are too big
		if r.Message.(*bytes.Buffer).Cap() > maxBufferSize {
			r.Message = &bytes.Buffer{}
		}
		r.Message.(*bytes.Buffer).Reset()
	}

	return r
}

// WriteText renders the record as a single "program: message" line, the
// form harnesses grep stderr for.
func (r *LogRecord) WriteText(w io.Writer) error {
	buf := &bytes.Buffer{}
	buf.Grow(len(r.Program) + 2 + r.Message.(*bytes.Buffer).Len() + 1)
	buf.WriteString(r.Program)
	buf.WriteString(": ")
	buf.Write(r.Message.(*bytes.Buffer).Bytes())
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *LogRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Program string `json:"program"`
		Pid     int    `json:"pid"`
		Time    int64  `json:"time"`
		Level   string `json:"level"`
		Message string `json:"message"`
	}{
		r.Program,
		r.Pid,
		r.Time,
		r.Level.String(),
		string(r.Message.(*bytes.Buffer).Bytes()),
	})
}
