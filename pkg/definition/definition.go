// Package definition reads and writes whole workflows as YAML documents.
//
// A definition carries the workflow attributes together with its nodes and
// edges. Edges reference nodes by the ids used inside the document; Import
// assigns fresh ids so the same document can be imported more than once.
package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/autoflowhq/autoflow/pkg/models"
	"gopkg.in/yaml.v3"
)

const CurrentVersion = 1

var (
	ErrInvalidDefinition  = errors.New("invalid workflow definition")
	ErrUnsupportedVersion = errors.New("unsupported definition version")
)

type Definition struct {
	Version  int             `yaml:"version"`
	Workflow models.Workflow `yaml:",inline"`
	Nodes    []*models.Node  `yaml:"nodes"`
	Edges    []*models.Edge  `yaml:"edges,omitempty"`
}

// Parse decodes a YAML document and validates it. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	return Read(bytes.NewReader(data))
}

func Read(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// Write encodes the definition with two-space indentation.
func Write(w io.Writer, def *Definition) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(def); err != nil {
		return err
	}

	return enc.Close()
}

// Validate checks the document structure. Node configs are checked against
// the registry on import.
func (d *Definition) Validate() error {
	if d.Version == 0 {
		d.Version = CurrentVersion
	}

	if d.Version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}

	if d.Workflow.Name == "" {
		return invalid("workflow name is required")
	}

	if d.Workflow.Status != "" && !d.Workflow.Status.Valid() {
		return invalid("unknown status %q", d.Workflow.Status)
	}

	if !d.Workflow.FailurePolicy.Valid() {
		return invalid("unknown failure policy %q", d.Workflow.FailurePolicy)
	}

	ids := make(map[string]struct{}, len(d.Nodes))

	for i, node := range d.Nodes {
		if node == nil || node.ID == "" {
			return invalid("node %d has no id", i)
		}

		if !node.Kind.Valid() {
			return invalid("node %s has unknown kind %q", node.ID, node.Kind)
		}

		if _, dup := ids[node.ID]; dup {
			return invalid("duplicate node id %s", node.ID)
		}

		ids[node.ID] = struct{}{}
	}

	for i, edge := range d.Edges {
		if edge == nil {
			return invalid("edge %d is empty", i)
		}

		if _, ok := ids[edge.SourceNodeID]; !ok {
			return invalid("edge %d references unknown source %q", i, edge.SourceNodeID)
		}

		if _, ok := ids[edge.TargetNodeID]; !ok {
			return invalid("edge %d references unknown target %q", i, edge.TargetNodeID)
		}
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}
