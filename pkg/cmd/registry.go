// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/registry"
)

// NewRegistry registers the built-in nodes and then any plugins found under
// pluginsPath. A nil messenger leaves the message actions unregistered.
func NewRegistry(log *slog.Logger, pluginsPath string, messenger protocol.Messenger) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	if messenger == nil {
		log.Warn("No messenger configured, message actions resolve to the no-op action")
	}

	reg.RegisterDefaultNodes(messenger)

	if pluginsPath != "" {
		if err := reg.LoadPlugins(pluginsPath); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
