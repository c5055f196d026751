//go:build system

package tests

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andydunstall/glomers/pkg/protocol"
	"github.com/andydunstall/glomers/tests/cluster"
	"github.com/andydunstall/glomers/workload/broadcast"
)

func read(ctx context.Context, c *cluster.Cluster, nodeID string) ([]int64, error) {
	reply, err := c.Request(ctx, nodeID, broadcast.TypeRead, nil)
	if err != nil {
		return nil, err
	}
	raw, ok := reply["messages"].([]any)
	if !ok {
		return nil, fmt.Errorf("invalid messages: %v", reply["messages"])
	}
	values := make([]int64, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("invalid value: %v", v)
		}
		values = append(values, int64(f))
	}
	slices.Sort(values)
	return values, nil
}

// waitConverged waits for every node to read the expected values.
func waitConverged(
	t *testing.T,
	ctx context.Context,
	c *cluster.Cluster,
	expected []int64,
) {
	assert.Eventually(t, func() bool {
		for _, id := range c.NodeIDs() {
			values, err := read(ctx, c, id)
			if err != nil || !slices.Equal(values, expected) {
				return false
			}
		}
		return true
	}, time.Second*10, time.Millisecond*20)
}

func TestBroadcast(t *testing.T) {
	t.Run("converge", func(t *testing.T) {
		c, err := cluster.NewCluster(cluster.WithNodes(5))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		require.NoError(t, c.Start(ctx))

		var expected []int64
		for i := 0; i != 50; i++ {
			nodeID := c.NodeIDs()[rand.IntN(len(c.NodeIDs()))]
			reply, err := c.Request(ctx, nodeID, broadcast.TypeBroadcast, map[string]any{
				"message": i,
			})
			require.NoError(t, err)
			assert.Equal(t, "broadcast_ok", reply["type"])

			expected = append(expected, int64(i))
		}

		waitConverged(t, ctx, c, expected)

		require.NoError(t, c.Close())
	})

	t.Run("converge with message loss", func(t *testing.T) {
		c, err := cluster.NewCluster(
			cluster.WithNodes(5),
			cluster.WithDropRate(0.3),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		require.NoError(t, c.Start(ctx))

		var expected []int64
		for i := 0; i != 20; i++ {
			nodeID := c.NodeIDs()[i%len(c.NodeIDs())]
			_, err := c.Request(ctx, nodeID, broadcast.TypeBroadcast, map[string]any{
				"message": i,
			})
			require.NoError(t, err)

			expected = append(expected, int64(i))
		}

		waitConverged(t, ctx, c, expected)
		assert.Greater(t, c.Dropped(), int64(0))

		require.NoError(t, c.Close())
	})

	t.Run("partitioned topology", func(t *testing.T) {
		// The topology has two components, though gossip to random peers
		// still reaches every node.
		c, err := cluster.NewCluster(
			cluster.WithNodes(4),
			cluster.WithTopology(map[string][]string{
				"n0": {"n1"},
				"n1": {"n0"},
				"n2": {"n3"},
				"n3": {"n2"},
			}),
		)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		require.NoError(t, c.Start(ctx))

		_, err = c.Request(ctx, "n0", broadcast.TypeBroadcast, map[string]any{
			"message": 1,
		})
		require.NoError(t, err)
		_, err = c.Request(ctx, "n3", broadcast.TypeBroadcast, map[string]any{
			"message": 2,
		})
		require.NoError(t, err)

		waitConverged(t, ctx, c, []int64{1, 2})

		require.NoError(t, c.Close())
	})

	t.Run("peer broadcast", func(t *testing.T) {
		c, err := cluster.NewCluster(cluster.WithNodes(3))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		require.NoError(t, c.Start(ctx))

		// Broadcasts without a msg_id have no reply but are still gossiped.
		require.NoError(t, c.Send("n2", broadcast.TypeBroadcast, map[string]any{
			"message": 9,
		}))

		waitConverged(t, ctx, c, []int64{9})

		require.NoError(t, c.Close())
	})

	t.Run("bad topology", func(t *testing.T) {
		c, err := cluster.NewCluster(cluster.WithNodes(2))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()

		require.NoError(t, c.Start(ctx))

		_, err = c.Request(ctx, "n0", broadcast.TypeTopology, map[string]any{
			"topology": map[string][]string{"n1": {"n0"}},
		})
		var perr *protocol.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, protocol.CodeBadTopology, perr.Code)

		// The node keeps its existing topology.
		st, err := c.Nodes()[0].Status(ctx)
		require.NoError(t, err)
		workload := st.Workload.(*broadcast.Status)
		assert.Equal(t, broadcast.PhaseConfigured, workload.Phase)
		assert.Equal(t, []string{"n1"}, workload.Neighbours)

		require.NoError(t, c.Close())
	})
}
