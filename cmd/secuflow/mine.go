package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secuflow/secuflow-go/internal/models"
	"github.com/secuflow/secuflow-go/internal/pipeline"
)

var (
	mineOwner    string
	mineBranch   string
	mineDataType string
	mineSafeMode bool
)

var mineCmd = &cobra.Command{
	Use:   "mine <project-id> <repo-url>",
	Short: "Run a mining pass: clone, sanitize, mine, and ingest the results",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		orch, pool := buildOrchestrator(store)
		defer pool.Shutdown()

		run, err := orch.RunMining(cmd.Context(), pipeline.MiningRequest{
			ProjectID: args[0],
			Owner:     mineOwner,
			RepoURL:   args[1],
			Branch:    mineBranch,
			DataType:  models.DataType(mineDataType),
			SafeMode:  &mineSafeMode,
		})
		if err != nil {
			printGitError(err)
			if run != nil {
				fmt.Printf("run %s failed\n", run.ID)
			}
			return fmt.Errorf("mining failed")
		}

		fmt.Printf("✓ run %s succeeded (branch %s)\n", run.ID, run.Branch)
		fmt.Printf("  artifacts: %s\n", run.OutputDir)
		return nil
	},
}

func init() {
	mineCmd.Flags().StringVar(&mineOwner, "owner", "", "credential owner to resolve secrets for")
	mineCmd.Flags().StringVar(&mineBranch, "branch", "", "branch to mine (defaults to main/master)")
	mineCmd.Flags().StringVar(&mineDataType, "data", string(models.DataCoordinationMinimal),
		"data to mine: assignment_matrix, file_dependency, or coordination_minimal")
	mineCmd.Flags().BoolVar(&mineSafeMode, "safe-mode", true,
		"mine a sanitized workspace instead of the raw clone")
}
