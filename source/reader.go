package source

import (
	"bufio"
	"bytes"
	"io"
	"sync/atomic"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// countingReader tracks bytes pulled from the underlying file so progress
// can be read from another goroutine.
type countingReader struct {
	reader io.Reader
	read   atomic.Int64
	total  int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read.Add(int64(n))
	return n, err
}

// progress returns the read progress as a percentage (0-100), or 0 when
// the total size is unknown.
func (r *countingReader) progress() int {
	if r.total <= 0 {
		return 0
	}
	pct := int(r.read.Load() * 100 / r.total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// skipBOM drops a leading UTF-8 byte order mark, which Windows editors
// like to add.
func skipBOM(r *bufio.Reader) error {
	head, err := r.Peek(len(utf8BOM))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if bytes.Equal(head, utf8BOM) {
		_, err = r.Discard(len(utf8BOM))
		return err
	}
	return nil
}
