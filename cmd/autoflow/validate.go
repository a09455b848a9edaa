package main

import (
	"context"
	"fmt"

	"github.com/autoflowhq/autoflow/pkg/cmd"
	"github.com/autoflowhq/autoflow/pkg/log"
	"github.com/autoflowhq/autoflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check a YAML definition without storing it",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (text, json)",
				Value: "text",
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("%w: definition file", ErrArgumentRequired)
			}

			cmd.SetupLogging(command)

			def, err := readDefinition(path)
			if err != nil {
				return err
			}

			reg, err := cmd.NewRegistry(log.WithModule("autoflow"), command.String("plugins-path"), nil)
			if err != nil {
				return err
			}

			if err := services.NewGraph(nil, reg).ValidateGraph(nil, def.Nodes, def.Edges); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			_, err = fmt.Fprintf(command.Root().Writer, "%s: %d nodes, %d edges, ok\n", path, len(def.Nodes), len(def.Edges))

			return err
		},
	}
}
