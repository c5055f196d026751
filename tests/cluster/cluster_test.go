package cluster

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/glomers/pkg/protocol"
	"github.com/andydunstall/glomers/workload"
)

func TestLineTopology(t *testing.T) {
	assert.Equal(t, map[string][]string{
		"n0": {"n1"},
		"n1": {"n0", "n2"},
		"n2": {"n1"},
	}, LineTopology([]string{"n0", "n1", "n2"}))

	assert.Equal(t, map[string][]string{
		"n0": {},
	}, LineTopology([]string{"n0"}))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInbox(t *testing.T) {
	r, w := io.Pipe()
	var out syncBuffer
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		b, _ := io.ReadAll(r)
		out.mu.Lock()
		out.buf.Write(b)
		out.mu.Unlock()
	}()

	i := newInbox(w)
	i.Push([]byte("a\n"))
	i.Push([]byte("b\n"))
	i.Push([]byte("c\n"))

	// Close waits for queued lines to be written then closes the writer.
	i.Close()
	<-copyDone
	assert.Equal(t, "a\nb\nc\n", out.String())

	// Pushing after close is ignored.
	i.Push([]byte("d\n"))
}

func TestCluster_Echo(t *testing.T) {
	c, err := NewCluster(WithNodes(2), WithWorkload(workload.Echo))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	require.NoError(t, c.Start(ctx))

	reply, err := c.Request(ctx, "n1", "echo", map[string]any{
		"echo": "foo",
	})
	require.NoError(t, err)
	assert.Equal(t, "echo_ok", reply["type"])
	assert.Equal(t, "foo", reply["echo"])

	_, err = c.Request(ctx, "n0", "generate", nil)
	var perr *protocol.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, protocol.CodeNotSupported, perr.Code)

	_, err = c.Request(ctx, "n9", "echo", nil)
	assert.Error(t, err)

	require.NoError(t, c.Close())
}
