package switchnode

import (
	"context"
	"testing"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchCondition_Decide(t *testing.T) {
	ec := models.NewExecutionContext("r", "w", &models.InboundEvent{
		EventType: "comment",
		Payload:   map[string]any{"lang": "pt", "stars": 5.0, "vip": true},
	})

	tests := []struct {
		name   string
		config map[string]any
		want   string
	}{
		{"string value", map[string]any{"path": "$.payload.lang"}, "pt"},
		{"braced path", map[string]any{"path": "{$.payload.lang}"}, "pt"},
		{"number value", map[string]any{"path": "$.payload.stars"}, "5"},
		{"bool value", map[string]any{"path": "$.payload.vip"}, "true"},
		{"case mapping", map[string]any{"path": "$.payload.lang", "cases": map[string]any{"pt": "portuguese"}}, "portuguese"},
		{"missing uses default", map[string]any{"path": "$.payload.none", "default": "other"}, "other"},
		{"missing without default", map[string]any{"path": "$.payload.none"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := NewSwitchCondition(tt.config)
			require.NoError(t, err)

			tag, err := cond.Decide(context.Background(), ec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tag)
		})
	}
}

func TestNewSwitchCondition_RequiresPath(t *testing.T) {
	_, err := NewSwitchCondition(map[string]any{})
	require.Error(t, err)
}
