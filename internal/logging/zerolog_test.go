package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubclient/internal/logging"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		entries = append(entries, entry)
	}

	return entries
}

func TestLogger(t *testing.T) {
	t.Parallel()

	t.Run("writes fields as json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := logging.New(&buf, "debug", logging.FormatJSON)
		logger.Debug("hub token refreshed", map[string]interface{}{"expires_in": "5m0s"})
		logger.Warn("hub authentication failed", map[string]interface{}{"status": 401})

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 2)
		assert.Equal(t, "debug", entries[0]["level"])
		assert.Equal(t, "hub token refreshed", entries[0]["message"])
		assert.Equal(t, "5m0s", entries[0]["expires_in"])
		assert.Equal(t, "warn", entries[1]["level"])
		assert.InDelta(t, 401, entries[1]["status"], 0)
	})

	t.Run("level filters", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := logging.New(&buf, "warn", "")
		logger.Debug("hidden", nil)
		logger.Info("hidden", nil)
		logger.Error("shown", nil)

		entries := decodeLines(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "shown", entries[0]["message"])
	})

	t.Run("unknown level means info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger := logging.New(&buf, "chatty", "")
		logger.Debug("hidden", nil)
		logger.Info("shown", nil)

		assert.Len(t, decodeLines(t, &buf), 1)
	})
}
