package logging

import (
	"sync"
)

// RecordPool recycles LogRecords and their message buffers between the
// logger and the writer goroutine.
type RecordPool struct {
	pool sync.Pool
}

func NewRecordPool() *RecordPool {
	p := &RecordPool{}
	p.pool.New = func() any {
		return (&LogRecord{}).Reset()
	}
	return p
}

func (p *RecordPool) Get() *LogRecord {
	return p.pool.Get().(*LogRecord)
}

func (p *RecordPool) Put(r *LogRecord) {
	p.pool.Put(r.Reset())
}
