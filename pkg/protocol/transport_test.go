package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_ReadLine(t *testing.T) {
	input := "{\"a\":1}\n\n  \n{\"b\":2}\r\n{\"c\":3}"
	transport := NewTransport(strings.NewReader(input), io.Discard)

	var lines []string
	for {
		line, err := transport.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		lines = append(lines, string(line))
	}

	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}, lines)
	assert.Equal(t, int64(len(input)), transport.BytesRead())
}

func TestTransport_ReadLineTooLong(t *testing.T) {
	input := strings.Repeat("a", maxLineSize+1) + "\n"
	transport := NewTransport(strings.NewReader(input), io.Discard)

	_, err := transport.ReadLine()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
}

func TestTransport_Write(t *testing.T) {
	var out bytes.Buffer
	transport := NewTransport(strings.NewReader(""), &out)

	// Write concurrently to verify each envelope is written as a complete
	// line.
	var wg sync.WaitGroup
	for i := 0; i != 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			msg := NewMessage("n1", "gossip", map[string]any{
				"messages": []int64{1, 2, 3},
			})
			msg.Src = "n0"
			assert.NoError(t, transport.Write(msg))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, line := range lines {
		req, err := Decode([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, "gossip", req.Type)
	}
	assert.Equal(t, int64(out.Len()), transport.BytesWritten())
}

type errorWriter struct{}

func (w *errorWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("closed")
}

func TestTransport_WriteError(t *testing.T) {
	transport := NewTransport(strings.NewReader(""), &errorWriter{})
	assert.Error(t, transport.Write(NewMessage("n1", "gossip", nil)))
}
