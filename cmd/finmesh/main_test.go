package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finmesh"
	"github.com/hupe1980/finmesh/config"
	"github.com/hupe1980/finmesh/model"
	"github.com/hupe1980/finmesh/search"
)

func setupOffline(t *testing.T) {
	t.Helper()
	orig := newMesh
	newMesh = func(ctx context.Context, optFns ...func(o *finmesh.Options)) (*finmesh.FinMesh, error) {
		return finmesh.New(ctx, append([]func(o *finmesh.Options){func(o *finmesh.Options) {
			o.Config = &config.Config{}
			o.Generators = []model.Generator{}
			o.SearchProviders = []search.Provider{}
		}}, optFns...)...)
	}
	t.Cleanup(func() {
		newMesh = orig
		jsonOut = false
		retrieveCorpus = ""
		rootCmd.SetArgs(nil)
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAskCmd_RequiresQuery(t *testing.T) {
	setupOffline(t)

	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestClassifyCmd(t *testing.T) {
	setupOffline(t)

	out, err := execute(t, "classify", "what's my spending this month")
	require.NoError(t, err)
	assert.Contains(t, out, "Capabilities: transaction,budget")
	assert.Contains(t, out, "Plan: routing -> fanout -> compliance-gate -> finalize -> done")
}

func TestAskCmd(t *testing.T) {
	setupOffline(t)

	out, err := execute(t, "ask", "find me the cheapest phone under my budget")
	require.NoError(t, err)
	assert.Contains(t, out, "Shopping Intelligence:")
	assert.Contains(t, out, "Agents: shopping_agent, budget_agent, compliance_agent, synthesis_agent")
}

func TestRetrieveCmd(t *testing.T) {
	setupOffline(t)

	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"loan-1","text":"The loan prepayment penalty is 2%.","metadata":{"source":"loan.pdf"}}]`), 0o600))

	out, err := execute(t, "retrieve", "--corpus", path, "loan", "penalty")
	require.NoError(t, err)
	assert.Contains(t, out, "loan.pdf")
	assert.Contains(t, out, "Method: vector+bm25")
}

func TestRetrieveCmd_HasLimitFlag(t *testing.T) {
	flag := retrieveCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}
