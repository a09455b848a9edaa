// Package message provides actions that send outbound platform messages.
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/template"
)

var (
	ErrNoRecipient  = errors.New("event has no recipient")
	ErrEmptyMessage = errors.New("message is empty")
)

type Config struct {
	Message string `json:"message"          jsonschema:"minLength=1,description=Message text. Supports templating"`
	Status  string `json:"status,omitempty" jsonschema:"description=Editor status of the action"`
}

// DirectMessageAction replies to the sender of the triggering event.
type DirectMessageAction struct {
	messenger protocol.Messenger
	message   string
}

func NewDirectMessageAction(messenger protocol.Messenger, config map[string]any) (*DirectMessageAction, error) {
	cfg, err := decode(config)
	if err != nil {
		return nil, err
	}

	return &DirectMessageAction{messenger: messenger, message: cfg.Message}, nil
}

func (a *DirectMessageAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (protocol.ActionResult, error) {
	if executionCtx.Event == nil || executionCtx.Event.SenderID == "" {
		return protocol.ActionResult{}, ErrNoRecipient
	}

	text, err := render(a.message, executionCtx)
	if err != nil {
		return protocol.ActionResult{}, err
	}

	recipient := executionCtx.Event.SenderID
	if err := a.messenger.Send(ctx, recipient, text); err != nil {
		return protocol.ActionResult{}, fmt.Errorf("failed to send direct message: %w", err)
	}

	logger.InfoContext(ctx, "direct message sent", "recipient_id", recipient)

	return protocol.ActionResult{
		Output: map[string]any{
			"recipient_id": recipient,
			"message":      text,
			"sent":         true,
		},
	}, nil
}

// ReplyCommentAction answers the comment that triggered the run.
type ReplyCommentAction struct {
	messenger protocol.Messenger
	message   string
}

func NewReplyCommentAction(messenger protocol.Messenger, config map[string]any) (*ReplyCommentAction, error) {
	cfg, err := decode(config)
	if err != nil {
		return nil, err
	}

	return &ReplyCommentAction{messenger: messenger, message: cfg.Message}, nil
}

func (a *ReplyCommentAction) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (protocol.ActionResult, error) {
	var commentID string
	if executionCtx.Event != nil {
		commentID, _ = executionCtx.Event.Payload[models.PayloadKeyCommentID].(string)
	}

	if commentID == "" {
		return protocol.ActionResult{}, fmt.Errorf("%w: payload has no %s", ErrNoRecipient, models.PayloadKeyCommentID)
	}

	text, err := render(a.message, executionCtx)
	if err != nil {
		return protocol.ActionResult{}, err
	}

	if err := a.messenger.ReplyToComment(ctx, commentID, text); err != nil {
		return protocol.ActionResult{}, fmt.Errorf("failed to reply to comment: %w", err)
	}

	logger.InfoContext(ctx, "comment reply sent", "comment_id", commentID)

	return protocol.ActionResult{
		Output: map[string]any{
			"comment_id": commentID,
			"message":    text,
			"sent":       true,
		},
	}, nil
}

func decode(config map[string]any) (Config, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.Message) == "" {
		return cfg, fmt.Errorf("missing required field 'message'")
	}

	return cfg, nil
}

func render(message string, executionCtx *models.ExecutionContext) (string, error) {
	text, err := template.RenderStringWithContext(message, executionCtx)
	if err != nil {
		return "", fmt.Errorf("failed to render message template: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	return text, nil
}
