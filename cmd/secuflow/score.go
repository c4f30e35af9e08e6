package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/secuflow/secuflow-go/internal/models"
	"github.com/secuflow/secuflow-go/internal/pipeline"
)

var (
	scoreAlgorithm   string
	scoreBranch      string
	scoreClassConfig string
	scoreDeriveCa    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <project-id>",
	Short: "Compute a congruence score over the stored graphs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		orch, pool := buildOrchestrator(store)
		defer pool.Shutdown()

		run, err := orch.Score(cmd.Context(), pipeline.ScoreRequest{
			ProjectID:       args[0],
			Branch:          scoreBranch,
			Algorithm:       models.Algorithm(scoreAlgorithm),
			ClassConfigPath: scoreClassConfig,
			DeriveCa:        scoreDeriveCa,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s score: %.4f\n", run.Algorithm, run.Score)
		fmt.Printf("  required pairs:  %d\n", run.CrCount)
		fmt.Printf("  unmet pairs:     %d\n", run.DiffCount)
		fmt.Printf("  run id:          %s\n", run.ID)
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreAlgorithm, "algorithm", string(models.AlgoSTC), "STC or MC-STC")
	scoreCmd.Flags().StringVar(&scoreBranch, "branch", "", "branch whose contributor snapshot classifies MC-STC")
	scoreCmd.Flags().StringVar(&scoreClassConfig, "classes", "", "YAML class config for MC-STC")
	scoreCmd.Flags().BoolVar(&scoreDeriveCa, "derive-ca", false, "derive coordination activity from shared file edits")
}
