package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestLogger(t *testing.T) {
	t.Run("filter by level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerWithWriter("warn", nil, &buf)
		require.NoError(t, err)

		logger.Info("dropped")
		logger.Warn("kept", zap.String("node-id", "n1"))

		records := decodeRecords(t, &buf)
		require.Len(t, records, 1)
		assert.Equal(t, "kept", records[0]["msg"])
		assert.Equal(t, "n1", records[0]["node-id"])
		assert.Equal(t, "main", records[0]["subsystem"])
	})

	t.Run("enabled subsystem", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerWithWriter("error", []string{"broadcast"}, &buf)
		require.NoError(t, err)

		logger.WithSubsystem("broadcast").Debug("gossip round")
		logger.WithSubsystem("node").Debug("dropped")

		records := decodeRecords(t, &buf)
		require.Len(t, records, 1)
		assert.Equal(t, "gossip round", records[0]["msg"])
		assert.Equal(t, "broadcast", records[0]["subsystem"])
	})

	t.Run("unsupported level", func(t *testing.T) {
		_, err := NewLogger("trace", nil)
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, (&Config{Level: "debug"}).Validate())
	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{Level: "verbose"}).Validate())
}
