package protocol

import "github.com/autoflowhq/autoflow/pkg/models"

// Trigger decides whether an inbound event starts traversal at its node.
type Trigger interface {
	Matches(event *models.InboundEvent) bool
}

type TriggerFactory interface {
	Descriptor
	Create(config map[string]any) (Trigger, error)
	// Category groups triggers in the editor, e.g. "Instagram"
	Category() string
}
