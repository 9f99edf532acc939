package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-script-bridge/internal/domain"
)

func TestConsoleExporter(t *testing.T) {
	t.Run("выводит результаты по одному на строку", func(t *testing.T) {
		var buf bytes.Buffer
		exp := NewWriterExporter(&buf)

		results := []domain.ScriptResult{
			{MessageID: "101", Output: "forwarded"},
			{MessageID: "102", Output: map[string]any{"action": "reply"}},
			{MessageID: "103"},
		}

		require.NoError(t, exp.Export(results))

		output := buf.String()
		assert.Contains(t, output, "--- Script Results ---")
		assert.Contains(t, output, "1. Message 101: forwarded")
		assert.Contains(t, output, `2. Message 102: {"action":"reply"}`)
		assert.Contains(t, output, "3. Message 103: <nil>")
	})

	t.Run("пустой список результатов", func(t *testing.T) {
		var buf bytes.Buffer
		exp := NewWriterExporter(&buf)

		require.NoError(t, exp.Export(nil))
		assert.Contains(t, buf.String(), "No results.")
	})
}
