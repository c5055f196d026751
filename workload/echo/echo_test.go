package echo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
)

func TestEcho(t *testing.T) {
	e := NewEcho(log.NewNopLogger())

	req, err := protocol.Decode([]byte(
		`{"src":"c1","dest":"n0","body":{"type":"echo","msg_id":1,"echo":"Please echo 35"}}`,
	))
	require.NoError(t, err)

	resps, err := e.Receive(req)
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Equal(t, "echo_ok", resps[0].Type)
	assert.Equal(t, "c1", resps[0].Dest)
	assert.Equal(t, int64(1), *resps[0].InReplyTo)
	assert.Equal(t, map[string]any{"echo": "Please echo 35"}, resps[0].Body)
}

func TestEcho_Errors(t *testing.T) {
	e := NewEcho(log.NewNopLogger())

	tests := []struct {
		name string
		line string
		code protocol.ErrorCode
	}{
		{
			name: "missing echo",
			line: `{"src":"c1","dest":"n0","body":{"type":"echo","msg_id":1}}`,
			code: protocol.CodeProtocolError,
		},
		{
			name: "unsupported type",
			line: `{"src":"c1","dest":"n0","body":{"type":"read","msg_id":1}}`,
			code: protocol.CodeNotSupported,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := protocol.Decode([]byte(tt.line))
			require.NoError(t, err)

			_, err = e.Receive(req)
			var perr *protocol.Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.code, perr.Code)
		})
	}
}
