package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidConfig = errors.New("invalid node config")

// ConfigError lists the schema violations of a node config.
type ConfigError struct {
	Kind    models.NodeKind
	Subtype string
	Issues  []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config for %q: %s", strings.ToLower(string(e.Kind)), e.Subtype, strings.Join(e.Issues, "; "))
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ValidateConfig checks config against the schema of the registered subtype
// and then builds the behaviour once to surface semantic errors. Unknown
// subtypes are not validated.
func (r *Registry) ValidateConfig(kind models.NodeKind, subtype string, config map[string]any) error {
	descriptor, ok := r.descriptor(kind, subtype)
	if !ok {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(descriptor.Schema()), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}

		return &ConfigError{Kind: kind, Subtype: subtype, Issues: issues}
	}

	if behavior := r.Resolve(kind, subtype, config); behavior.Err != nil {
		return &ConfigError{Kind: kind, Subtype: subtype, Issues: []string{behavior.Err.Error()}}
	}

	return nil
}

// ValidateNode validates the config of a stored node.
func (r *Registry) ValidateNode(node *models.Node) error {
	return r.ValidateConfig(node.Kind, node.Subtype(), node.Config)
}
