package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/autoflowhq/autoflow/pkg/cmd"
	"github.com/autoflowhq/autoflow/pkg/definition"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var ErrArgumentRequired = errors.New("missing argument")

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List workflows",
		Flags: slices.Concat(cmd.CommonFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list workflows in this status (draft, active, paused)",
			},
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Only list workflows of this owner",
			},
		}),
		Action: func(ctx context.Context, command *cli.Command) error {
			e, err := openEnv(ctx, command)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			req := services.ListWorkflowsRequest{
				Limit:   100,
				OwnerID: command.String("owner"),
			}

			if status := command.String("status"); status != "" {
				s := models.WorkflowStatus(strings.ToUpper(status))
				req.Status = &s
			}

			result, err := services.NewWorkflow(e.persistence, e.registry).ListWorkflows(ctx, req)
			if err != nil {
				return fmt.Errorf("failed to list workflows: %w", err)
			}

			w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tOWNER")

			for _, wf := range result.Workflows {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wf.ID, wf.Name, wf.Status, wf.Owner)
			}

			return w.Flush()
		},
	}
}

func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create a workflow from a YAML definition",
		ArgsUsage: "<file>",
		Flags: slices.Concat(cmd.CommonFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "owner",
				Usage: "Owner of the imported workflow, overriding the document",
			},
			&cli.BoolFlag{
				Name:  "draft",
				Usage: "Keep the workflow in DRAFT even if the document is active",
			},
		}),
		Action: func(ctx context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("%w: definition file", ErrArgumentRequired)
			}

			def, err := readDefinition(path)
			if err != nil {
				return err
			}

			e, err := openEnv(ctx, command)
			if err != nil {
				return err
			}
			defer e.close(ctx)

			importer := definition.NewImporter(
				services.NewWorkflow(e.persistence, e.registry),
				services.NewGraph(e.persistence, e.registry),
			)

			wf, err := importer.Import(ctx, def, definition.ImportOptions{
				Owner:     command.String("owner"),
				KeepDraft: command.Bool("draft"),
			})
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", path, err)
			}

			_, err = fmt.Fprintf(e.out, "Imported workflow %s (%s)\n", wf.ID, wf.Status)

			return err
		},
	}
}

func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a workflow as a YAML definition",
		ArgsUsage: "<workflow-id>",
		Flags: slices.Concat(cmd.CommonFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "File to write, stdout when empty",
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

			def, err := definition.Export(ctx, e.persistence, workflowID)
			if err != nil {
				return err
			}

			output := command.String("output")
			if output == "" {
				return definition.Write(e.out, def)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}

			if err := definition.Write(f, def); err != nil {
				_ = f.Close()

				return err
			}

			return f.Close()
		},
	}
}

func readDefinition(path string) (*definition.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	def, err := definition.Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return def, nil
}
