package uniqueids

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/glomers/pkg/log"
	"github.com/andydunstall/glomers/pkg/protocol"
)

func TestUniqueIDs(t *testing.T) {
	u := NewUniqueIDs(log.NewNopLogger())

	req, err := protocol.Decode([]byte(
		`{"src":"c1","dest":"n0","body":{"type":"generate","msg_id":1}}`,
	))
	require.NoError(t, err)

	ids := make(map[string]struct{})
	for i := 0; i != 1000; i++ {
		resps, err := u.Receive(req)
		require.NoError(t, err)
		require.Len(t, resps, 1)
		assert.Equal(t, "generate_ok", resps[0].Type)

		id, ok := resps[0].Body["id"].(string)
		require.True(t, ok)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)

		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 1000)
}

func TestUniqueIDs_UnsupportedType(t *testing.T) {
	u := NewUniqueIDs(log.NewNopLogger())

	req, err := protocol.Decode([]byte(
		`{"src":"c1","dest":"n0","body":{"type":"echo","msg_id":1}}`,
	))
	require.NoError(t, err)

	_, err = u.Receive(req)
	var perr *protocol.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, protocol.CodeNotSupported, perr.Code)
}
