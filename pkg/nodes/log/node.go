// Package log provides the log action that writes a templated message to the run logger.
package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/template"
)

type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
)

var logLevelName = map[LogLevel]string{
	Debug: "debug",
	Info:  "info",
	Warn:  "warn",
	Error: "error",
}

// Config is the log action configuration.
type Config struct {
	Message string `json:"message"         jsonschema:"description=Message to log. Supports templating"`
	Level   string `json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

type LogAction struct {
	message string
	level   string
}

func NewLogAction(config map[string]any) (*LogAction, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	level := cfg.Level
	if level == "" {
		level = logLevelName[Info]
	}

	if err := validateLevel(level); err != nil {
		return nil, err
	}

	return &LogAction{message: cfg.Message, level: level}, nil
}

func validateLevel(level string) error {
	for _, name := range logLevelName {
		if name == level {
			return nil
		}
	}

	return fmt.Errorf("invalid log level '%s' (must be debug, info, warn, or error)", level)
}

func (a *LogAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (protocol.ActionResult, error) {
	message, err := template.RenderStringWithContext(a.message, executionCtx)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("failed to render log message template: %w", err)
	}

	logger = logger.With("node_type", "log")

	switch a.level {
	case logLevelName[Debug]:
		logger.DebugContext(ctx, message)
	case logLevelName[Warn]:
		logger.WarnContext(ctx, message)
	case logLevelName[Error]:
		logger.ErrorContext(ctx, message)
	default:
		logger.InfoContext(ctx, message)
	}

	return protocol.ActionResult{
		Output: map[string]any{
			"message": message,
			"level":   a.level,
			"logged":  true,
		},
	}, nil
}
