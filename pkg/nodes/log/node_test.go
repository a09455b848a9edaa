package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAction_Execute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	action, err := NewLogAction(map[string]any{"message": "new follower {{ .senderId }}", "level": "warn"})
	require.NoError(t, err)

	ec := models.NewExecutionContext("r", "w", &models.InboundEvent{EventType: "follow", SenderID: "42"})
	result, err := action.Execute(context.Background(), ec, logger)
	require.NoError(t, err)

	assert.Equal(t, "new follower 42", result.Output["message"])
	assert.Equal(t, "warn", result.Output["level"])
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "new follower 42")
}

func TestNewLogAction_DefaultsAndValidation(t *testing.T) {
	action, err := NewLogAction(map[string]any{"message": "x"})
	require.NoError(t, err)
	assert.Equal(t, "info", action.level)

	_, err = NewLogAction(map[string]any{"message": "x", "level": "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLogAction_TemplateError(t *testing.T) {
	action, err := NewLogAction(map[string]any{"message": "{{ .broken "})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.NewExecutionContext("r", "w", nil), slog.Default())
	require.Error(t, err)
}
