package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
)

// maxLineSize is the maximum size of a single envelope. Gossip messages carry
// the full message set so may grow large.
const maxLineSize = 16 << 20

// Transport reads newline delimited envelopes from an input stream and writes
// envelopes to an output stream.
//
// ReadLine must only be called by a single goroutine. Write is safe to call
// concurrently, where each envelope is written as a single line.
type Transport struct {
	scanner *bufio.Scanner
	reader  *trackedReader

	writer *trackedWriter
	// mu protects writes to writer.
	mu sync.Mutex
}

func NewTransport(r io.Reader, w io.Writer) *Transport {
	reader := newTrackedReader(r)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Transport{
		scanner: scanner,
		reader:  reader,
		writer:  newTrackedWriter(w),
	}
}

// ReadLine blocks until the next non-empty line is read. Returns io.EOF once
// the input is closed.
func (t *Transport) ReadLine() ([]byte, error) {
	for t.scanner.Scan() {
		line := bytes.TrimSpace(t.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer so copy the line.
		return bytes.Clone(line), nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return nil, io.EOF
}

// Write encodes the response and writes it as a single line.
func (t *Transport) Write(resp *Response) error {
	b, err := Encode(resp)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.writer.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// BytesRead returns the number of bytes read from the input stream.
func (t *Transport) BytesRead() int64 {
	return t.reader.NumBytesRead()
}

// BytesWritten returns the number of bytes written to the output stream.
func (t *Transport) BytesWritten() int64 {
	return t.writer.NumBytesWritten()
}

// trackedWriter is a wrapper for the underlying writer that counts the number
// of bytes written.
type trackedWriter struct {
	w io.Writer
	n *atomic.Int64
}

func newTrackedWriter(w io.Writer) *trackedWriter {
	return &trackedWriter{
		w: w,
		n: atomic.NewInt64(0),
	}
}

func (w *trackedWriter) Write(b []byte) (int, error) {
	n, err := w.w.Write(b)
	w.n.Add(int64(n))
	return n, err
}

func (w *trackedWriter) NumBytesWritten() int64 {
	return w.n.Load()
}

var _ io.Writer = &trackedWriter{}

// trackedReader is a wrapper for the underlying reader that counts the number
// of bytes read.
type trackedReader struct {
	r io.Reader
	n *atomic.Int64
}

func newTrackedReader(r io.Reader) *trackedReader {
	return &trackedReader{
		r: r,
		n: atomic.NewInt64(0),
	}
}

func (r *trackedReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	r.n.Add(int64(n))
	return n, err
}

func (r *trackedReader) NumBytesRead() int64 {
	return r.n.Load()
}

var _ io.Reader = &trackedReader{}
