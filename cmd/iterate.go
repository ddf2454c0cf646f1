/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/prototyp3d/prototyp3d/internal/prototyper"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

var iterateName string

// iterateCmd represents the iterate command
var iterateCmd = &cobra.Command{
	Use:   "iterate <goal>",
	Short: "Run a follow-up goal against an existing workspace",
	Long: `Re-run the pipeline against a workspace produced by a previous create,
keeping its files in place. The new goal is planned against the current state
of the project.

Examples:
  p3d iterate "make the planets cast shadows" --name solar
  p3d iterate "add a reset button" --name demo --debug`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cleanup := setupLogging()
		defer cleanup()

		goal := strings.Join(args, " ")

		opts := buildOptions()
		opts.Sink = consoleSink{}

		p := prototyper.New(buildGateway(), goal, iterateName, opts)
		result, err := p.Execute(cmd.Context(), workspace.ReuseExisting)
		if err != nil {
			return err
		}
		return reportOutcomes(result)
	},
}

func init() {
	rootCmd.AddCommand(iterateCmd)
	iterateCmd.Flags().StringVar(&iterateName, "name", "", "Workspace name from a previous create")
	_ = iterateCmd.MarkFlagRequired("name")
}
