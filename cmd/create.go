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

var createName string

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <goal>",
	Short: "Generate a prototype from a goal",
	Long: `Create a fresh workspace from the template, plan tickets for the goal
and apply them one by one. The workspace name defaults to a generated UUID.

Examples:
  p3d create "a solar system with orbiting planets"
  p3d create "a chess board you can rotate" --name chess
  p3d create "a bouncing ball" --debug --fail-on-debug`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cleanup := setupLogging()
		defer cleanup()

		goal := strings.Join(args, " ")

		opts := buildOptions()
		opts.Sink = consoleSink{}

		p := prototyper.New(buildGateway(), goal, createName, opts)
		result, err := p.Execute(cmd.Context(), workspace.RecreateFromTemplate)
		if err != nil {
			return err
		}
		return reportOutcomes(result)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&createName, "name", "", "Workspace name (default: generated UUID)")
}
