package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/finmesh"
	"github.com/hupe1980/finmesh/config"
	"github.com/hupe1980/finmesh/logging"
)

var (
	envFile  string
	logLevel string
	jsonOut  bool

	cfg    *config.Config
	logger *logging.ZapLogger
)

var rootCmd = &cobra.Command{
	Use:   "finmesh",
	Short: "Multi-agent personal finance assistant",
	Long: `finmesh routes a question to specialized agents for transactions, budgets,
compliance, shopping and document research, and composes one answer.
Backends are configured through environment variables or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}

		level, err := logging.ParseLevel(c.Log.Level)
		if err != nil {
			return err
		}
		zc := logging.DefaultZapConfig()
		zc.Level = level
		zc.Format = c.Log.Format
		zc.File = c.Log.File
		zc.Output = cmd.ErrOrStderr()

		cfg, logger = c, logging.NewZapLogger(zc)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
}

// newMesh builds the façade from the loaded configuration. Tests replace it.
var newMesh = func(ctx context.Context, optFns ...func(o *finmesh.Options)) (*finmesh.FinMesh, error) {
	m, err := finmesh.New(ctx, append([]func(o *finmesh.Options){func(o *finmesh.Options) {
		o.Config = cfg
		o.Logger = logger
	}}, optFns...)...)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return m, nil
}
