// Package source streams the lines of an import file one at a time. The
// next line is read only after the consumer acknowledges the previous one,
// so the reader never runs ahead of the store.
package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrNotFound   = errors.New("source: file not found")
	ErrUnreadable = errors.New("source: file unreadable")
	ErrAlreadyRun = errors.New("source: line sequence already consumed")
)

// Line is one non-blank input line. Number is the 1-based physical line
// number in the file.
type Line struct {
	Number int
	Text   string
	ack    *ack
}

type ack struct {
	once sync.Once
	done chan struct{}
}

// Ack releases the producer to read the next line. Calling it more than
// once is harmless.
func (l Line) Ack() {
	if l.ack == nil {
		return
	}
	l.ack.once.Do(func() { close(l.ack.done) })
}

// LineSource yields the lines of one input through Lines. Run drives it.
type LineSource struct {
	name      string
	closer    io.Closer
	counter   *countingReader
	reader    *bufio.Reader
	lines     chan Line
	started   atomic.Bool
	delivered atomic.Int64
}

// Open prepares a LineSource over the file at path. Nothing is read until
// Run is called.
func Open(path string) (*LineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrUnreadable, path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}

	s := New(path, f, info.Size())
	s.closer = f
	return s, nil
}

// New builds a LineSource over r. size is the total byte count used for
// progress, or 0 when unknown.
func New(name string, r io.Reader, size int64) *LineSource {
	counter := &countingReader{reader: r, total: size}
	return &LineSource{
		name:    name,
		counter: counter,
		reader:  bufio.NewReader(counter),
		lines:   make(chan Line),
	}
}

// Name is the path or label the source was built with.
func (s *LineSource) Name() string { return s.name }

// Lines is closed when Run returns.
func (s *LineSource) Lines() <-chan Line { return s.lines }

// Delivered is the number of lines handed to the consumer so far.
func (s *LineSource) Delivered() int { return int(s.delivered.Load()) }

// Progress is the percentage of input bytes read so far.
func (s *LineSource) Progress() int { return s.counter.progress() }

// Run reads the input line by line, handing each non-blank line to the
// consumer and waiting for its Ack before reading on. It returns nil at end
// of input and an ErrUnreadable error if the input fails mid-stream. A
// LineSource can be run once.
func (s *LineSource) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	defer close(s.lines)
	if s.closer != nil {
		defer s.closer.Close()
	}

	if err := skipBOM(s.reader); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnreadable, s.name, err)
	}

	number := 0
	for {
		text, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("%w: %s: after line %d: %w", ErrUnreadable, s.name, number, err)
		}
		if text != "" {
			number++
			text = strings.ToValidUTF8(strings.TrimRight(text, "\r\n"), "\uFFFD")
			if strings.TrimSpace(text) != "" {
				if werr := s.deliver(ctx, number, text); werr != nil {
					return werr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

// deliver blocks until the line is received and acknowledged.
func (s *LineSource) deliver(ctx context.Context, number int, text string) error {
	a := &ack{done: make(chan struct{})}

	// Counted before the handoff so the consumer never sees a stale count.
	s.delivered.Add(1)
	select {
	case s.lines <- Line{Number: number, Text: text, ack: a}:
	case <-ctx.Done():
		s.delivered.Add(-1)
		return ctx.Err()
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
