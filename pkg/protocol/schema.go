package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ReflectSchema builds the JSON schema of a config struct. Fields without
// omitempty are required and unknown attributes are allowed.
func ReflectSchema(instance any) map[string]any {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	raw, err := json.Marshal(reflector.Reflect(instance))
	if err != nil {
		return map[string]any{"type": "object"}
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return map[string]any{"type": "object"}
	}

	delete(schema, "$schema")
	delete(schema, "$id")

	return schema
}

// DecodeConfig copies a node config map into a typed struct.
func DecodeConfig(config map[string]any, out any) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
