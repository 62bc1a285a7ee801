package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/finmesh"
	"github.com/hupe1980/finmesh/retrieval"
	"github.com/hupe1980/finmesh/search"
)

var (
	retrieveCorpus string
	retrieveLimit  int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Search the document corpus",
	Long: `Runs hybrid retrieval over the corpus.
Combines semantic (vector) and keyword (BM25) lanes, deduplicates and reranks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveCorpus, "corpus", "", "JSON corpus file (overrides CORPUS_FILE)")
	retrieveCmd.Flags().IntVarP(&retrieveLimit, "limit", "n", 5, "maximum number of results")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := newMesh(ctx, func(o *finmesh.Options) {
		if retrieveCorpus != "" {
			c := *o.Config
			c.Retrieval.CorpusFile = retrieveCorpus
			o.Config = &c
		}
	})
	if err != nil {
		return err
	}
	defer m.Close()

	res := m.Retrieve(ctx, strings.Join(args, " "), retrieveLimit)

	if jsonOut {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputRetrieval(cmd, res)
}

func outputRetrieval(cmd *cobra.Command, res retrieval.Retrieval) error {
	if len(res.Results) == 0 {
		cmd.Println(res.Message)
		return nil
	}

	cmd.Printf("Method: %s (%d candidates)\n\n", res.Method, res.TotalCandidates)
	for i, d := range res.Results {
		cmd.Printf("  [%d] %s (%s %.2f)\n", i+1, d.Source(), d.Lane, d.Score)
		cmd.Printf("      %s\n\n", search.Truncate(d.Text, 160))
	}
	return nil
}
