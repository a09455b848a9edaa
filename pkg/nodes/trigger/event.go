// Package trigger provides event triggers that start workflow traversal.
package trigger

import (
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

// Config is the TRIGGER node configuration.
type Config struct {
	TriggerType string `json:"triggerType"           jsonschema:"title=Trigger type,description=Event type that starts the workflow"`
	Description string `json:"description,omitempty" jsonschema:"description=Free text shown in the editor"`
	Keyword     string `json:"keyword,omitempty"     jsonschema:"description=Only match events whose text contains this keyword (case-insensitive)"`
}

// EventTrigger matches inbound events by exact event type and optional keyword.
type EventTrigger struct {
	eventType string
	keyword   string
}

func NewEventTrigger(eventType string, config map[string]any) (*EventTrigger, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	return &EventTrigger{
		eventType: eventType,
		keyword:   strings.ToLower(strings.TrimSpace(cfg.Keyword)),
	}, nil
}

func (t *EventTrigger) Matches(event *models.InboundEvent) bool {
	if event == nil || t.eventType == "" || event.EventType != t.eventType {
		return false
	}

	if t.keyword == "" {
		return true
	}

	return strings.Contains(strings.ToLower(event.Text()), t.keyword)
}
