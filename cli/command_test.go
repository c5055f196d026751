package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertiseAddrFromBindAddr(t *testing.T) {
	addr, err := advertiseAddrFromBindAddr("10.26.104.14:8002")
	require.NoError(t, err)
	assert.Equal(t, "10.26.104.14:8002", addr)

	addr, err = advertiseAddrFromBindAddr("localhost:8002")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8002", addr)

	_, err = advertiseAddrFromBindAddr("8002")
	assert.Error(t, err)
}

func TestNewCommand(t *testing.T) {
	cmd := NewCommand()

	for _, name := range []string{
		"config.path",
		"config.expand-env",
		"node.workload",
		"node.queue-size",
		"gossip.interval",
		"admin.bind-addr",
		"admin.advertise-addr",
		"log.level",
		"log.subsystems",
		"grace-period",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	status, _, err := cmd.Find([]string{"status", "workload"})
	require.NoError(t, err)
	assert.Equal(t, "workload", status.Name())
}
