package log

import (
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

type LogActionFactory struct{}

// nolint:ireturn
func (f *LogActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewLogAction(config)
}

func (f *LogActionFactory) ID() string {
	return "log"
}

func (f *LogActionFactory) Name() string {
	return "Log"
}

func (f *LogActionFactory) Description() string {
	return "Writes a message to the workflow run log"
}

func (f *LogActionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewLogActionFactory() *LogActionFactory {
	return &LogActionFactory{}
}
