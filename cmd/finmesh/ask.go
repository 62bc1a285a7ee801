package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/finmesh/engine"
	"github.com/hupe1980/finmesh/finance"
)

var (
	askProfile      string
	askTransactions string
	askStream       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask the assistant a question",
	Long: `Routes the question to the matching agents and prints the composed answer.
Use --stream to follow agent events as they happen.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askProfile, "profile", "", "JSON file with the user's financial profile")
	askCmd.Flags().StringVar(&askTransactions, "transactions", "", "JSON file with recent transactions")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print events while agents run")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	req := engine.Request{Query: strings.Join(args, " ")}

	if askProfile != "" {
		var p finance.Profile
		if err := readJSON(askProfile, &p); err != nil {
			return err
		}
		req.Profile = &p
	}
	if askTransactions != "" {
		if err := readJSON(askTransactions, &req.Transactions); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	m, err := newMesh(ctx)
	if err != nil {
		return err
	}
	defer m.Close()

	if askStream {
		_, events, errs := m.Invoke(ctx, req)
		for ev := range events {
			if jsonOut {
				data, err := json.Marshal(ev)
				if err != nil {
					return fmt.Errorf("failed to marshal event: %w", err)
				}
				cmd.Println(string(data))
				continue
			}
			cmd.Printf("[%s] %s: %s\n", ev.Status, ev.Agent, ev.Message())
		}
		return <-errs
	}

	resp, err := m.Ask(ctx, req)
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.MarshalIndent(map[string]any{
			"request_id":   resp.RequestID,
			"response":     resp.Text,
			"capabilities": resp.Capabilities,
			"agents_used":  resp.AgentsUsed,
			"citations":    resp.Citations,
			"degraded":     resp.Degraded,
			"duration_ms":  resp.Duration.Milliseconds(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Text)
	cmd.Println()
	cmd.Printf("Agents: %s\n", strings.Join(resp.AgentsUsed, ", "))
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
