package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/autoflowhq/autoflow/pkg/cmd"
	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/otelhelper"
	"github.com/autoflowhq/autoflow/pkg/services"
	"github.com/autoflowhq/autoflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const sourceCLI = "cli"

func NewExecuteCommand() *cli.Command {
	return &cli.Command{
		Name:      "execute",
		Aliases:   []string{"exec"},
		Usage:     "Run an active workflow against a hand-written event and wait for the result",
		ArgsUsage: "<workflow-id>",
		Flags: slices.Concat(cmd.CommonFlags(), cmd.EngineFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "event-type",
				Usage: "Event type delivered to the workflow triggers",
				Value: "manual",
			},
			&cli.StringFlag{
				Name:  "sender-id",
				Usage: "Sender of the event",
			},
			&cli.StringFlag{
				Name:  "payload",
				Usage: "Event payload as a JSON object",
			},
		}),
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID := command.Args().First()
			if workflowID == "" {
				return fmt.Errorf("%w: workflow id", ErrArgumentRequired)
			}

			event := &models.InboundEvent{
				EventType:  command.String("event-type"),
				SenderID:   command.String("sender-id"),
				Source:     sourceCLI,
				ReceivedAt: time.Now().UTC(),
			}

			if raw := command.String("payload"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &event.Payload); err != nil {
					return fmt.Errorf("invalid payload: %w", err)
				}
			}

			e, err := openEnv(ctx, command)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			executor := workflow.NewExecutor(
				workflow.NewRepository(e.persistence),
				e.registry,
				e.logger,
				cmd.ExecutorOptions(command, otelhelper.NoopTracer(), metrics.New())...,
			)

			run, err := executor.Execute(ctx, workflowID, event)
			if run == nil {
				return err
			}

			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")

			if encErr := enc.Encode(run); encErr != nil {
				return encErr
			}

			return err
		},
	}
}

func NewRunsCommand() *cli.Command {
	return &cli.Command{
		Name:      "runs",
		Usage:     "List the most recent runs of a workflow",
		ArgsUsage: "<workflow-id>",
		Flags: slices.Concat(cmd.CommonFlags(), []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of runs to show",
				Value: 20,
			},
		}),
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID := command.Args().First()
			if workflowID == "" {
				return fmt.Errorf("%w: workflow id", ErrArgumentRequired)
			}

			e, err := openEnv(ctx, command)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			runs, err := services.NewRun(e.persistence).ListRuns(ctx, workflowID, command.Int("limit"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tSUCCEEDED\tFAILED\tREASON")

			for _, run := range runs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					run.ID, run.Status, run.StartedAt.Format(time.RFC3339), run.ActionsSucceeded, run.ActionsFailed, run.FailureReason)
			}

			return w.Flush()
		},
	}
}
