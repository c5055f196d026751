package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("request", func(t *testing.T) {
		req, err := Decode([]byte(
			`{"src":"c1","dest":"n0","body":{"type":"broadcast","msg_id":1,"message":5}}`,
		))
		require.NoError(t, err)

		assert.Equal(t, "c1", req.Src)
		assert.Equal(t, "n0", req.Dest)
		assert.Equal(t, "broadcast", req.Type)
		require.NotNil(t, req.MsgID)
		assert.Equal(t, int64(1), *req.MsgID)
		assert.Nil(t, req.InReplyTo)

		var message int64
		assert.NoError(t, req.Field("message", &message))
		assert.Equal(t, int64(5), message)
	})

	t.Run("fire and forget", func(t *testing.T) {
		req, err := Decode([]byte(
			`{"src":"n1","dest":"n0","body":{"type":"gossip","messages":[1,2]}}`,
		))
		require.NoError(t, err)
		assert.Nil(t, req.MsgID)
	})

	t.Run("reply", func(t *testing.T) {
		req, err := Decode([]byte(
			`{"src":"n1","dest":"n0","body":{"type":"read_ok","in_reply_to":4}}`,
		))
		require.NoError(t, err)
		require.NotNil(t, req.InReplyTo)
		assert.Equal(t, int64(4), *req.InReplyTo)
	})

	tests := []struct {
		Name         string
		Line         string
		Correlatable bool
	}{
		{Name: "invalid json", Line: `{"src":`},
		{Name: "missing src", Line: `{"dest":"n0","body":{"type":"read","msg_id":1}}`},
		{Name: "body not object", Line: `{"src":"c1","dest":"n0","body":[1]}`},
		{Name: "invalid msg id", Line: `{"src":"c1","dest":"n0","body":{"type":"read","msg_id":"a"}}`},
		{
			Name:         "missing type",
			Line:         `{"src":"c1","dest":"n0","body":{"msg_id":1}}`,
			Correlatable: true,
		},
		{
			Name:         "invalid type",
			Line:         `{"src":"c1","dest":"n0","body":{"type":5,"msg_id":1}}`,
			Correlatable: true,
		},
		{
			Name:         "missing dest",
			Line:         `{"src":"c1","body":{"type":"read","msg_id":1}}`,
			Correlatable: true,
		},
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			req, err := Decode([]byte(test.Line))

			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, CodeProtocolError, perr.Code)

			if test.Correlatable {
				require.NotNil(t, req)
				require.NotNil(t, req.MsgID)
				assert.Equal(t, "c1", req.Src)
			} else {
				assert.Nil(t, req)
			}
		})
	}
}

func TestRequest_Field(t *testing.T) {
	req, err := Decode([]byte(
		`{"src":"c1","dest":"n0","body":{"type":"broadcast","msg_id":1,"message":"five","other":null}}`,
	))
	require.NoError(t, err)

	var message int64
	err = req.Field("message", &message)
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, CodeProtocolError, perr.Code)

	assert.False(t, req.HasField("other"))
	assert.Error(t, req.Field("other", &message))
	assert.False(t, req.HasField("missing"))
	assert.Error(t, req.Field("missing", &message))
	assert.True(t, req.HasField("message"))
}

func TestEncode(t *testing.T) {
	req, err := Decode([]byte(
		`{"src":"c1","dest":"n0","body":{"type":"read","msg_id":3}}`,
	))
	require.NoError(t, err)

	t.Run("reply", func(t *testing.T) {
		b, err := Encode(NewReply(req, map[string]any{
			"messages": []int64{1, 2},
		}))
		require.NoError(t, err)
		assert.JSONEq(
			t,
			`{"src":"n0","dest":"c1","body":{"type":"read_ok","in_reply_to":3,"messages":[1,2]}}`,
			string(b),
		)
	})

	t.Run("empty reply", func(t *testing.T) {
		b, err := Encode(NewReply(req, nil))
		require.NoError(t, err)
		assert.JSONEq(
			t,
			`{"src":"n0","dest":"c1","body":{"type":"read_ok","in_reply_to":3}}`,
			string(b),
		)
	})

	t.Run("error reply", func(t *testing.T) {
		b, err := Encode(NewErrorReply(req, Errorf(CodeBadTopology, "bad topology")))
		require.NoError(t, err)
		assert.JSONEq(
			t,
			`{"src":"n0","dest":"c1","body":{"type":"error","in_reply_to":3,"code":1001,"text":"bad topology"}}`,
			string(b),
		)
	})

	t.Run("message", func(t *testing.T) {
		msg := NewMessage("n1", "gossip", map[string]any{
			"messages": []int64{7},
		})
		msg.Src = "n0"
		b, err := Encode(msg)
		require.NoError(t, err)
		assert.JSONEq(
			t,
			`{"src":"n0","dest":"n1","body":{"type":"gossip","messages":[7]}}`,
			string(b),
		)
	})
}

func TestError(t *testing.T) {
	err := Errorf(CodeBadTopology, "missing entry for %s", "n0")
	assert.Equal(t, "bad-topology (1001): missing entry for n0", err.Error())
}
