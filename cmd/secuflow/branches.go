package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var branchesSwitch string

var branchesCmd = &cobra.Command{
	Use:   "branches <project-id>",
	Short: "List branches of a project's local clone, or switch the checked-out branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		orch, pool := buildOrchestrator(store)
		defer pool.Shutdown()

		if branchesSwitch != "" {
			if err := orch.SwitchBranch(cmd.Context(), projectID, branchesSwitch); err != nil {
				printGitError(err)
				return fmt.Errorf("branch switch failed")
			}
			fmt.Printf("✓ switched to branch %s\n", branchesSwitch)
			return nil
		}

		listing, err := orch.ListBranches(cmd.Context(), projectID)
		if err != nil {
			printGitError(err)
			return fmt.Errorf("branch listing failed")
		}
		for _, b := range listing.Branches {
			marker := " "
			if b.IsCurrent {
				marker = "*"
			}
			fmt.Printf("%s %-40s %s  %s\n", marker, b.Name, b.CommitHash, b.BranchID)
		}
		return nil
	},
}

func init() {
	branchesCmd.Flags().StringVar(&branchesSwitch, "switch", "", "check out this branch instead of listing")
}
