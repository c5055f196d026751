package cluster

import (
	"io"
	"sync"
)

// inbox is an unbounded queue of lines written to a nodes input.
//
// Routing never blocks on a node, since a node blocked writing its output
// could otherwise deadlock with a node blocked reading its input.
type inbox struct {
	mu     sync.Mutex
	lines  [][]byte
	closed bool

	notifyCh chan struct{}
	doneCh   chan struct{}

	w io.WriteCloser
}

func newInbox(w io.WriteCloser) *inbox {
	i := &inbox{
		notifyCh: make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		w:        w,
	}
	go i.run()
	return i
}

// Push queues the line to be written to the node. The line must end with a
// newline.
func (i *inbox) Push(line []byte) {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.lines = append(i.lines, line)
	i.mu.Unlock()

	i.notify()
}

// Close closes the node input once the queued lines have been written.
func (i *inbox) Close() {
	i.mu.Lock()
	i.closed = true
	i.mu.Unlock()

	i.notify()
	<-i.doneCh
}

func (i *inbox) notify() {
	select {
	case i.notifyCh <- struct{}{}:
	default:
	}
}

func (i *inbox) run() {
	defer close(i.doneCh)
	defer i.w.Close()

	for {
		i.mu.Lock()
		lines := i.lines
		i.lines = nil
		closed := i.closed
		i.mu.Unlock()

		for _, line := range lines {
			if _, err := i.w.Write(line); err != nil {
				return
			}
		}

		if closed {
			return
		}
		if len(lines) == 0 {
			<-i.notifyCh
		}
	}
}
