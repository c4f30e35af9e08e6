package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secuflow/secuflow-go/internal/gitaccess"
)

var validateOwner string

var validateCmd = &cobra.Command{
	Use:   "validate <repo-url>",
	Short: "Check that a repository URL is reachable with the configured credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		resolver := gitaccess.NewResolver(store, logger)
		client := gitaccess.NewClient(cfg.Git, resolver, logger)

		report, err := client.ValidateAccess(cmd.Context(), validateOwner, repoURL)
		if err != nil {
			printGitError(err)
			return fmt.Errorf("repository is not accessible")
		}

		auth := "anonymous"
		if report.UsedAuth {
			auth = "authenticated"
		}
		fmt.Printf("✓ %s is accessible (%s)\n", repoURL, auth)
		if report.DefaultBranch != "" {
			fmt.Printf("  default branch: %s\n", report.DefaultBranch)
		}
		for _, b := range report.Branches {
			fmt.Printf("  %s  %s\n", b.CommitHash, b.Name)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateOwner, "owner", "", "credential owner to resolve secrets for")
}
