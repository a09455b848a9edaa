package models

import "time"

// Well-known inbound event types.
const (
	EventTypeManual        = "manual"
	EventTypeFollow        = "follow"
	EventTypeComment       = "comment"
	EventTypeLike          = "like"
	EventTypeDirectMessage = "direct-message"
	EventTypeMention       = "mention"
	EventTypeStoryReply    = "story-reply"
)

// Payload keys set by the event normalizers.
const (
	PayloadKeyText      = "text"
	PayloadKeyCommentID = "comment_id"
	PayloadKeyMediaID   = "media_id"
	PayloadKeyMessageID = "message_id"
)

// InboundEvent is a normalized platform event that may start workflow runs.
type InboundEvent struct {
	EventType  string         `json:"eventType"            validate:"required"`
	SenderID   string         `json:"senderId,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Source     string         `json:"source,omitempty"`
	ReceivedAt time.Time      `json:"receivedAt,omitzero"`
}

// Text returns the textual content of the event, if any.
func (e *InboundEvent) Text() string {
	if e == nil || e.Payload == nil {
		return ""
	}

	if s, ok := e.Payload[PayloadKeyText].(string); ok {
		return s
	}

	return ""
}

// AsMap exposes the event to templates and expression evaluators.
func (e *InboundEvent) AsMap() map[string]any {
	if e == nil {
		return map[string]any{}
	}

	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	return map[string]any{
		"eventType": e.EventType,
		"senderId":  e.SenderID,
		"payload":   payload,
		"source":    e.Source,
	}
}
