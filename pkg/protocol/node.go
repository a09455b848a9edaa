// Package protocol defines the interfaces and contracts for pluggable node behaviours.
package protocol

// Descriptor provides metadata about a node subtype.
type Descriptor interface {
	// ID returns the subtype identifier stored in the node config
	ID() string

	// Name returns the human-readable name for this subtype
	Name() string

	// Description returns a description of what this subtype does
	Description() string

	// Schema returns the JSON schema for configuring this subtype
	Schema() map[string]any
}
