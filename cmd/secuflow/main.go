package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/secuflow/secuflow-go/internal/cache"
	"github.com/secuflow/secuflow-go/internal/config"
	"github.com/secuflow/secuflow-go/internal/gitaccess"
	"github.com/secuflow/secuflow-go/internal/ingest"
	"github.com/secuflow/secuflow-go/internal/mining"
	"github.com/secuflow/secuflow-go/internal/pipeline"
	"github.com/secuflow/secuflow-go/internal/storage"
	"github.com/secuflow/secuflow-go/internal/workspace"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "secuflow",
	Short: "Secuflow - socio-technical congruence mining for git repositories",
	Long: `Secuflow mines git repositories with the TNM tool, aggregates
contributor and file statistics, and computes coordination metrics
(STC / MC-STC) over the resulting graphs.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .secuflow/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`Secuflow {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(contributorsCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(credentialCmd)
}

// openStore builds the configured Store; callers own Close.
func openStore() (storage.Store, error) {
	return storage.New(cfg.Storage, logger)
}

// buildOrchestrator wires the full pipeline for commands that need it.
func buildOrchestrator(store storage.Store) (*pipeline.Orchestrator, *pipeline.Pool) {
	resolver := gitaccess.NewResolver(store, logger)
	git := gitaccess.NewClient(cfg.Git, resolver, logger)
	preparer := workspace.NewPreparer(cfg.Workspace, cfg.Git, logger)
	runner := mining.NewRunner(cfg.Mining, logger)
	miner := mining.NewOrchestrator(runner)
	ingester := ingest.NewIngester(store, logger)
	branches := cache.NewBranches(cfg.Cache.BranchTTL, nil)
	pool := pipeline.NewPool(cfg.Coordination.BackgroundWorkers, logger)

	return pipeline.NewOrchestrator(cfg, git, preparer, miner, ingester, store, branches, pool, logger), pool
}

// printGitError renders a classified transport failure with its remediation.
func printGitError(err error) {
	var gitErr *gitaccess.GitError
	if errors.As(err, &gitErr) {
		fmt.Fprintf(os.Stderr, "✗ %s\n\n%s\n", gitErr.Message, gitErr.Solution)
		return
	}
	fmt.Fprintf(os.Stderr, "✗ %v\n", err)
}
