package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/secuflow/secuflow-go/internal/mining"
	"github.com/secuflow/secuflow-go/internal/storage"
)

var (
	runsLimit int
	runsShow  string
)

var runsCmd = &cobra.Command{
	Use:   "runs <project-id>",
	Short: "Show mining and coordination run history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if runsShow != "" {
			return showMiningRun(cmd, store, runsShow)
		}

		mining, err := store.ListMiningRuns(cmd.Context(), projectID, runsLimit)
		if err != nil {
			return err
		}
		fmt.Println("Mining runs:")
		if len(mining) == 0 {
			fmt.Println("  (none)")
		}
		for _, r := range mining {
			line := fmt.Sprintf("  %s  %s  %-9s %-22s %s",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.Status, r.Command, r.Branch)
			if r.Error != "" {
				line += "  error: " + r.Error
			}
			fmt.Println(line)
		}

		coord, err := store.ListCoordinationRuns(cmd.Context(), projectID, runsLimit)
		if err != nil {
			return err
		}
		fmt.Println("Coordination runs:")
		if len(coord) == 0 {
			fmt.Println("  (none)")
		}
		for _, r := range coord {
			fmt.Printf("  %s  %-7s score=%.4f cr=%d gap=%d\n",
				r.CreatedAt.Format(time.RFC3339), r.Algorithm, r.Score, r.CrCount, r.DiffCount)
		}
		return nil
	},
}

// showMiningRun prints one run's status and the content of every artifact it
// produced. Malformed artifacts still render, wrapped as JSON.
func showMiningRun(cmd *cobra.Command, store storage.Store, runID string) error {
	run, err := store.GetMiningRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  status:  %s\n", run.Status)
	fmt.Printf("  command: %s\n", run.Command)
	fmt.Printf("  branch:  %s\n", run.Branch)
	if run.Error != "" {
		fmt.Printf("  error:   %s\n", run.Error)
	}
	if run.OutputDir == "" {
		return nil
	}

	artifacts := mining.Artifacts{Dir: run.OutputDir}
	for _, name := range []string{
		mining.ArtifactIDToUser,
		mining.ArtifactIDToFile,
		mining.ArtifactAssignmentMatrix,
		mining.ArtifactFileDependency,
	} {
		raw, err := artifacts.ReadRaw(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, err)
			continue
		}
		fmt.Printf("--- %s ---\n%s\n", name, raw)
	}
	return nil
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to show per kind")
	runsCmd.Flags().StringVar(&runsShow, "show", "", "show one mining run's status and artifacts by id")
}
