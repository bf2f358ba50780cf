package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// RejectWriter records lines that failed to import as tab-separated rows of
// line number, reason and the original record, so they can be fixed and
// re-imported. It is safe for concurrent use.
type RejectWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewRejectWriter creates (or truncates) the file at path and writes the
// header row. Intermediate directories are created automatically.
func NewRejectWriter(path string) (*RejectWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("rejects: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("rejects: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write([]string{"line", "reason", "record"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rejects: write header: %w", err)
	}
	w.Flush()

	return &RejectWriter{file: f, writer: w}, nil
}

// WriteReject appends one rejected line and flushes it.
func (r *RejectWriter) WriteReject(line int, reason, record string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writer.Write([]string{strconv.Itoa(line), reason, record}); err != nil {
		return fmt.Errorf("rejects: write row: %w", err)
	}
	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the underlying file.
func (r *RejectWriter) Close() error {
	r.writer.Flush()
	return r.file.Close()
}
