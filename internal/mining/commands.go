package mining

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Miner command names understood by the external tool.
const (
	CmdAssignmentMatrix     = "AssignmentMatrixMiner"
	CmdFileDependencyMatrix = "FileDependencyMatrixMiner"
	CmdFilesOwnership       = "FilesOwnershipMiner"
)

// Orchestrator composes miner invocations against one prepared repository.
// Every command receives the repository's .git directory and the branch to
// mine; outputs land in a per-run directory.
type Orchestrator struct {
	runner *Runner
}

func NewOrchestrator(runner *Runner) *Orchestrator {
	return &Orchestrator{runner: runner}
}

func repoOption(repoPath string) []string {
	return []string{"--repository", filepath.Join(repoPath, ".git")}
}

// MineAssignmentMatrix produces AssignmentMatrix.json plus the id maps.
func (o *Orchestrator) MineAssignmentMatrix(ctx context.Context, repoPath, branch, outputDir string) (*Result, error) {
	opts := append(repoOption(repoPath), branch)
	return o.runner.Run(ctx, CmdAssignmentMatrix, opts, nil, outputDir)
}

// MineFileDependencyMatrix produces FileDependencyMatrix.json plus the file
// id map.
func (o *Orchestrator) MineFileDependencyMatrix(ctx context.Context, repoPath, branch, outputDir string) (*Result, error) {
	opts := append(repoOption(repoPath), branch)
	return o.runner.Run(ctx, CmdFileDependencyMatrix, opts, nil, outputDir)
}

// MineFilesOwnership runs the ownership miner with explicit output paths.
func (o *Orchestrator) MineFilesOwnership(ctx context.Context, repoPath, branch, outputDir string) (*Result, error) {
	opts := append(repoOption(repoPath),
		"--developer-knowledge", filepath.Join(outputDir, "DeveloperKnowledge.json"),
		"--files-ownership", filepath.Join(outputDir, "FilesOwnership.json"),
		"--potential-ownership", filepath.Join(outputDir, "PotentialAuthorship.json"),
		branch,
	)
	return o.runner.Run(ctx, CmdFilesOwnership, opts, nil, outputDir)
}

// MineCoordinationMinimal runs exactly the two miners congruence scoring
// needs: the assignment matrix and the file dependency matrix.
func (o *Orchestrator) MineCoordinationMinimal(ctx context.Context, repoPath, branch, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if _, err := o.MineAssignmentMatrix(ctx, repoPath, branch, outputDir); err != nil {
		return err
	}
	if _, err := o.MineFileDependencyMatrix(ctx, repoPath, branch, outputDir); err != nil {
		return err
	}
	return nil
}
