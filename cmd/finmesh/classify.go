package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/finmesh/engine"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [query]",
	Short: "Show how a query is routed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMesh(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Close()

		caps := m.Classify(strings.Join(args, " "))
		plan := engine.Plan(caps)

		stages := make([]string, len(plan))
		for i, s := range plan {
			stages[i] = string(s)
		}

		cmd.Printf("Capabilities: %s\n", caps)
		cmd.Printf("Plan: %s\n", strings.Join(stages, " -> "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
