package cmd

import (
	"context"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/dispatcher"
	"github.com/autoflowhq/autoflow/pkg/eventbus"
	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/autoflowhq/autoflow/pkg/workflow"
)

// StartWorker consumes inbound events and run requests from bus. Runs are
// executed in this process, bounded by the executor options.
func StartWorker(
	ctx context.Context,
	bus eventbus.EventBus,
	repository *workflow.Repository,
	reg *registry.Registry,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...workflow.Option,
) (*workflow.Executor, error) {
	executor := workflow.NewExecutor(repository, reg, logger, opts...)
	d := dispatcher.New(repository, workflow.NewTriggerMatcher(reg, logger), executor, logger, dispatcher.WithMetrics(m))

	worker := dispatcher.NewWorker(d, executor, repository, logger)
	if err := worker.Register(bus); err != nil {
		return nil, err
	}

	if err := bus.Subscribe(ctx); err != nil {
		return nil, err
	}

	return executor, nil
}
