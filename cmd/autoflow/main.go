// Package main is the autoflow admin CLI: it moves workflow definitions in
// and out of a store and executes workflows by hand.
package main

import (
	"context"
	"os"

	"github.com/autoflowhq/autoflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "autoflow",
		Usage:                 "Manage autoflow workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewListCommand(),
			NewImportCommand(),
			NewExportCommand(),
			NewValidateCommand(),
			NewExecuteCommand(),
			NewRunsCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithModule("autoflow").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
