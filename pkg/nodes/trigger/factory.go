package trigger

import (
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

// Delivery modes of platform events.
const (
	ModeInstant = "Instant"
	ModePolling = "Polling"
)

// EventTriggerFactory creates EventTrigger instances for one event type.
type EventTriggerFactory struct {
	eventType   string
	name        string
	description string
	category    string
	mode        string
}

func NewEventTriggerFactory(eventType, name, description, category, mode string) *EventTriggerFactory {
	return &EventTriggerFactory{
		eventType:   eventType,
		name:        name,
		description: description,
		category:    category,
		mode:        mode,
	}
}

// nolint:ireturn
func (f *EventTriggerFactory) Create(config map[string]any) (protocol.Trigger, error) {
	return NewEventTrigger(f.eventType, config)
}

func (f *EventTriggerFactory) ID() string {
	return f.eventType
}

func (f *EventTriggerFactory) Name() string {
	return f.name
}

func (f *EventTriggerFactory) Description() string {
	return f.description
}

func (f *EventTriggerFactory) Category() string {
	return f.category
}

// Mode reports whether events arrive instantly (webhook) or need polling.
func (f *EventTriggerFactory) Mode() string {
	return f.mode
}

func (f *EventTriggerFactory) Schema() map[string]any {
	schema := protocol.ReflectSchema(&Config{})
	if props, ok := schema["properties"].(map[string]any); ok {
		if tt, ok := props["triggerType"].(map[string]any); ok {
			tt["const"] = f.eventType
		}
	}

	return schema
}

// DefaultFactories returns the built-in platform triggers.
func DefaultFactories() []*EventTriggerFactory {
	return []*EventTriggerFactory{
		NewEventTriggerFactory(models.EventTypeFollow, "New Follower", "Triggers when someone follows your account", "Instagram", ModeInstant),
		NewEventTriggerFactory(models.EventTypeComment, "New Comment", "Triggers when someone comments on a post", "Instagram", ModePolling),
		NewEventTriggerFactory(models.EventTypeLike, "New Like", "Triggers when someone likes a post", "Instagram", ModePolling),
		NewEventTriggerFactory(models.EventTypeDirectMessage, "Direct Message", "Triggers when a direct message is received", "Instagram", ModeInstant),
		NewEventTriggerFactory(models.EventTypeMention, "Mention", "Triggers when the account is mentioned", "Instagram", ModeInstant),
		NewEventTriggerFactory(models.EventTypeStoryReply, "Story Reply", "Triggers when someone replies to a story", "Instagram", ModeInstant),
		NewEventTriggerFactory(models.EventTypeManual, "Manual", "Triggers when the workflow is executed by hand", "Core", ModeInstant),
	}
}
