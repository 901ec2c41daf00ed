package source

import (
	"io"
	"sync/atomic"
)

// CountingReader tracks bytes read so uploads can report progress. BytesRead
// may be polled from another goroutine while reading is in flight.
type CountingReader struct {
	reader    io.Reader
	bytesRead atomic.Int64
	Total     int64 // 0 when unknown
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead.Add(int64(n))
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (r *CountingReader) BytesRead() int64 {
	return r.bytesRead.Load()
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(min(r.BytesRead()*100/r.Total, 100))
}
