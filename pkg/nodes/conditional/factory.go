package conditional

import (
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

// TemplateConditionFactory creates TemplateCondition instances.
type TemplateConditionFactory struct {
	id string
}

// nolint:ireturn
func (f *TemplateConditionFactory) Create(config map[string]any) (protocol.Condition, error) {
	return NewTemplateCondition(config)
}

func (f *TemplateConditionFactory) ID() string {
	return f.id
}

func (f *TemplateConditionFactory) Name() string {
	return "If/Then"
}

func (f *TemplateConditionFactory) Description() string {
	return "Evaluates a template and routes execution to the yes or no branch"
}

// Schema returns the JSON schema for template condition configuration.
func (f *TemplateConditionFactory) Schema() map[string]any {
	schema := protocol.ReflectSchema(&Config{})
	schema["examples"] = []map[string]any{
		{"condition": `{{ eq .event.eventType "follow" }}`},
		{"condition": `{{ contains (lower .payload.text) "price" }}`},
		{"condition": `{{ gt .nodes.score.result 75.0 }}`},
	}

	return schema
}

// NewTemplateConditionFactory registers the condition under the given subtype id.
func NewTemplateConditionFactory(id string) *TemplateConditionFactory {
	return &TemplateConditionFactory{id: id}
}
