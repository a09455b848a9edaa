package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessenger struct{}

func (stubMessenger) Send(context.Context, string, string) error { return nil }

func (stubMessenger) ReplyToComment(context.Context, string, string) error { return nil }

func newTestRegistry() *Registry {
	r := NewRegistry(slog.Default())
	r.RegisterDefaultNodes(stubMessenger{})

	return r
}

func TestResolve_RegisteredBehaviours(t *testing.T) {
	r := newTestRegistry()

	trg := r.Resolve(models.NodeKindTrigger, "follow", map[string]any{"triggerType": "follow"})
	require.NotNil(t, trg.Trigger)
	assert.False(t, trg.Fallback)
	assert.True(t, trg.Trigger.Matches(&models.InboundEvent{EventType: "follow"}))

	act := r.Resolve(models.NodeKindAction, "direct-message", map[string]any{"message": "hi"})
	require.NotNil(t, act.Action)
	assert.False(t, act.Fallback)

	cond := r.Resolve(models.NodeKindCondition, "if-condition", map[string]any{"condition": "true"})
	require.NotNil(t, cond.Condition)
	tag, err := cond.Condition.Decide(context.Background(), models.NewExecutionContext("r", "w", nil))
	require.NoError(t, err)
	assert.Equal(t, "yes", tag)
}

func TestResolve_Fallbacks(t *testing.T) {
	r := newTestRegistry()
	ec := models.NewExecutionContext("r", "w", &models.InboundEvent{EventType: "follow"})

	trg := r.Resolve(models.NodeKindTrigger, "carrier-pigeon", nil)
	assert.True(t, trg.Fallback)
	assert.False(t, trg.Trigger.Matches(&models.InboundEvent{EventType: "carrier-pigeon"}))

	act := r.Resolve(models.NodeKindAction, "follow-user", nil)
	assert.True(t, act.Fallback)
	result, err := act.Action.Execute(context.Background(), ec, slog.Default())
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	cond := r.Resolve(models.NodeKindCondition, "", nil)
	assert.True(t, cond.Fallback)
	tag, err := cond.Condition.Decide(context.Background(), ec)
	require.NoError(t, err)
	assert.Empty(t, tag)

	unknownKind := r.Resolve("LEGACY", "x", nil)
	assert.Equal(t, models.NodeKindAction, unknownKind.Kind)
	assert.NotNil(t, unknownKind.Action)
}

func TestResolve_RejectedConfigDegrades(t *testing.T) {
	r := newTestRegistry()

	b := r.Resolve(models.NodeKindAction, "direct-message", map[string]any{})
	assert.True(t, b.Fallback)
	require.Error(t, b.Err)
	assert.NotNil(t, b.Action)
}

func TestResolveNode(t *testing.T) {
	r := newTestRegistry()

	b := r.ResolveNode(&models.Node{Kind: models.NodeKindCondition, Config: models.NodeConfig{
		"conditionType": "compare", "path": "$.senderId", "operator": "exists",
	}})
	assert.False(t, b.Fallback)
	assert.Equal(t, "compare", b.Subtype)
}

func TestValidateConfig(t *testing.T) {
	r := newTestRegistry()

	require.NoError(t, r.ValidateConfig(models.NodeKindAction, "direct-message", map[string]any{"actionType": "direct-message", "message": "hello"}))
	require.NoError(t, r.ValidateConfig(models.NodeKindAction, "unknown", map[string]any{"anything": 1}), "unknown subtypes are not validated")

	err := r.ValidateConfig(models.NodeKindAction, "direct-message", map[string]any{"message": ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	err = r.ValidateConfig(models.NodeKindAction, "log", map[string]any{"message": "x", "level": "loud"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	err = r.ValidateConfig(models.NodeKindTrigger, "follow", map[string]any{"triggerType": "like"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	err = r.ValidateNode(&models.Node{Kind: models.NodeKindCondition, Config: models.NodeConfig{"conditionType": "javascript", "expression": "if ("}})
	require.ErrorIs(t, err, ErrInvalidConfig, "semantic errors are surfaced")

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "javascript", cfgErr.Subtype)
}

func TestCatalog(t *testing.T) {
	r := newTestRegistry()

	catalog := r.Catalog()
	require.NotEmpty(t, catalog)
	assert.Equal(t, models.NodeKindTrigger, catalog[0].Kind)

	ids := map[string]NodeType{}
	for _, nt := range catalog {
		ids[string(nt.Kind)+"/"+nt.ID] = nt
	}

	assert.Contains(t, ids, "ACTION/direct-message")
	assert.Contains(t, ids, "CONDITION/javascript")
	assert.Equal(t, "Instagram", ids["TRIGGER/follow"].Category)
	assert.NotContains(t, ids, "ACTION/follow-user")
}

func TestRegisterDefaultNodes_WithoutMessenger(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.RegisterDefaultNodes(nil)

	b := r.Resolve(models.NodeKindAction, "direct-message", map[string]any{"message": "hi"})
	assert.True(t, b.Fallback)
}

func TestLoadPlugins_MissingDirectory(t *testing.T) {
	r := NewRegistry(slog.Default())
	require.NoError(t, r.LoadPlugins(t.TempDir()))
}
