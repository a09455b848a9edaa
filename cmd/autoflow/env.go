package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/cmd"
	"github.com/autoflowhq/autoflow/pkg/log"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/registry"
	cli "github.com/urfave/cli/v3"
)

// env holds what the subcommands share. Call close when done.
type env struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	out         io.Writer
}

func openEnv(ctx context.Context, command *cli.Command) (*env, error) {
	cmd.SetupLogging(command)

	logger := log.WithModule("autoflow").With("command", command.Name)

	tokens, err := cmd.Tokens(ctx, command)
	if err != nil {
		return nil, err
	}

	reg, err := cmd.NewRegistry(logger, command.String("plugins-path"), cmd.NewMessenger(command.String("instagram-account-id"), tokens, logger))
	if err != nil {
		return nil, err
	}

	p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	return &env{
		logger:      logger,
		persistence: p,
		registry:    reg,
		out:         command.Root().Writer,
	}, nil
}

func (e *env) close(ctx context.Context) {
	if err := e.persistence.Close(ctx); err != nil {
		e.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
