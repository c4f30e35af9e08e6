package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/cache"
	"github.com/secuflow/secuflow-go/internal/config"
	"github.com/secuflow/secuflow-go/internal/coordination"
	"github.com/secuflow/secuflow-go/internal/gitaccess"
	"github.com/secuflow/secuflow-go/internal/ingest"
	"github.com/secuflow/secuflow-go/internal/mining"
	"github.com/secuflow/secuflow-go/internal/models"
	"github.com/secuflow/secuflow-go/internal/storage"
	"github.com/secuflow/secuflow-go/internal/workspace"
)

// MiningRequest describes one end-to-end mining pass.
type MiningRequest struct {
	ProjectID string
	Owner     string
	RepoURL   string
	Branch    string
	DataType  models.DataType

	// SafeMode controls whether mining runs against a sanitized workspace
	// (the default) or directly against the checked-out clone. Nil means on.
	SafeMode *bool
}

func (r MiningRequest) safeMode() bool {
	return r.SafeMode == nil || *r.SafeMode
}

// ScoreRequest describes one congruence computation over stored graphs.
type ScoreRequest struct {
	ProjectID       string
	Branch          string
	Algorithm       models.Algorithm
	ClassConfigPath string
	DeriveCa        bool
}

// Orchestrator wires the full pipeline: transport, workspace preparation,
// mining, ingestion, and scoring.
type Orchestrator struct {
	cfg      *config.Config
	git      *gitaccess.Client
	preparer *workspace.Preparer
	miner    *mining.Orchestrator
	ingester *ingest.Ingester
	store    storage.Store
	branches *cache.Branches
	pool     *Pool
	log      *logrus.Logger
}

func NewOrchestrator(cfg *config.Config, git *gitaccess.Client, preparer *workspace.Preparer,
	miner *mining.Orchestrator, ingester *ingest.Ingester, store storage.Store,
	branches *cache.Branches, pool *Pool, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		git:      git,
		preparer: preparer,
		miner:    miner,
		ingester: ingester,
		store:    store,
		branches: branches,
		pool:     pool,
		log:      log,
	}
}

func (o *Orchestrator) repoDir(projectID string) string {
	return filepath.Join(o.cfg.Git.ReposDir, "project_"+projectID)
}

// EnsureClone clones the repository if no local copy exists yet, otherwise
// refreshes its remote refs.
func (o *Orchestrator) EnsureClone(ctx context.Context, owner, repoURL, projectID string) (string, error) {
	dir := o.repoDir(projectID)
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := o.git.FetchAll(ctx, dir); err != nil {
			o.log.WithError(err).Warn("failed to refresh existing clone, using as-is")
		}
		return dir, nil
	}
	if err := o.git.Clone(ctx, owner, repoURL, dir); err != nil {
		return "", err
	}
	o.branches.Invalidate(projectID)
	return dir, nil
}

// ListBranches enumerates repository branches through the TTL cache.
func (o *Orchestrator) ListBranches(ctx context.Context, projectID string) (cache.BranchListing, error) {
	if listing, ok := o.branches.Get(projectID); ok {
		return listing, nil
	}

	dir := o.repoDir(projectID)
	branches, err := o.git.ListBranches(ctx, dir)
	if err != nil {
		return cache.BranchListing{}, err
	}
	current, err := o.git.CurrentBranch(ctx, dir)
	if err != nil {
		return cache.BranchListing{}, err
	}

	listing := cache.BranchListing{Branches: branches, CurrentBranch: current}
	o.branches.Put(projectID, listing)
	return listing, nil
}

// SwitchBranch checks out another branch and drops the stale cache entry.
func (o *Orchestrator) SwitchBranch(ctx context.Context, projectID, branch string) error {
	if err := o.git.Checkout(ctx, o.repoDir(projectID), branch); err != nil {
		return err
	}
	o.branches.Invalidate(projectID)
	return nil
}

// RunMining executes one mining pass: validate, clone, prepare a sanitized
// workspace, run the requested miners, ingest their artifacts. The run
// record tracks every status transition; the workspace is removed on all
// paths.
func (o *Orchestrator) RunMining(ctx context.Context, req MiningRequest) (*models.MiningRun, error) {
	if !req.DataType.Valid() {
		return nil, fmt.Errorf("unknown data type: %s", req.DataType)
	}
	if err := gitaccess.ValidateRepoURL(req.RepoURL); err != nil {
		return nil, err
	}

	run := &models.MiningRun{
		ProjectID: req.ProjectID,
		RepoURL:   req.RepoURL,
		Branch:    req.Branch,
		Command:   string(req.DataType),
		Status:    models.RunQueued,
	}
	if err := o.store.CreateMiningRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record mining run: %w", err)
	}

	err := o.executeMining(ctx, run, req)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
	} else {
		run.Status = models.RunSucceeded
	}
	if updateErr := o.store.UpdateMiningRun(ctx, run); updateErr != nil {
		o.log.WithError(updateErr).Error("failed to persist mining run outcome")
	}
	return run, err
}

func (o *Orchestrator) executeMining(ctx context.Context, run *models.MiningRun, req MiningRequest) error {
	started := time.Now().UTC()
	run.Status = models.RunRunning
	run.StartedAt = &started
	if err := o.store.UpdateMiningRun(ctx, run); err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}

	report, err := o.git.ValidateAccess(ctx, req.Owner, req.RepoURL)
	if err != nil {
		return err
	}
	repoDir, err := o.EnsureClone(ctx, req.Owner, req.RepoURL, req.ProjectID)
	if err != nil {
		return err
	}

	branch := req.Branch
	if branch == "" {
		branch = report.DefaultBranch
		if branch == "" {
			branch, err = o.git.DefaultBranch(ctx, repoDir)
			if err != nil {
				return err
			}
		}
		run.Branch = branch
	}

	minePath := repoDir
	mineBranch := branch
	if req.safeMode() {
		ws, err := o.preparer.Prepare(ctx, repoDir, branch)
		if err != nil {
			return err
		}
		defer ws.Cleanup()
		minePath = ws.Path
		mineBranch = ws.Branch
	} else {
		if err := o.git.Checkout(ctx, repoDir, branch); err != nil {
			return err
		}
		o.log.WithField("branch", branch).Warn("safe mode disabled, mining the raw clone")
	}

	outputDir := filepath.Join(o.cfg.Mining.OutputDir, "run_"+run.ID)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	run.OutputDir = outputDir

	switch req.DataType {
	case models.DataAssignmentMatrix:
		if _, err := o.miner.MineAssignmentMatrix(ctx, minePath, mineBranch, outputDir); err != nil {
			return err
		}
	case models.DataFileDependency:
		if _, err := o.miner.MineFileDependencyMatrix(ctx, minePath, mineBranch, outputDir); err != nil {
			return err
		}
	case models.DataCoordinationMinimal:
		if err := o.miner.MineCoordinationMinimal(ctx, minePath, mineBranch, outputDir); err != nil {
			return err
		}
	}

	if err := o.ingestArtifacts(ctx, req, branch, outputDir); err != nil {
		return err
	}

	o.triggerOwnershipAsync(req.ProjectID, repoDir, branch)
	return nil
}

func (o *Orchestrator) ingestArtifacts(ctx context.Context, req MiningRequest, branch, outputDir string) error {
	artifacts := mining.Artifacts{Dir: outputDir}

	if req.DataType == models.DataAssignmentMatrix || req.DataType == models.DataCoordinationMinimal {
		out, err := artifacts.LoadAssignmentOutput()
		if err != nil {
			return err
		}
		if _, err := o.ingester.IngestAssignment(ctx, req.ProjectID, branch, out); err != nil {
			return err
		}
	}

	if req.DataType == models.DataFileDependency || req.DataType == models.DataCoordinationMinimal {
		matrix, idToFile, err := artifacts.LoadDependencyMatrix()
		if err != nil {
			return err
		}
		if _, err := o.ingester.IngestDependencies(ctx, req.ProjectID, matrix, idToFile); err != nil {
			return err
		}
	}
	return nil
}

// triggerOwnershipAsync schedules the ownership miner in the background.
// Failures are logged and swallowed; the mining run never waits on it.
func (o *Orchestrator) triggerOwnershipAsync(projectID, repoDir, branch string) {
	if o.pool == nil {
		return
	}
	outputDir := filepath.Join(o.cfg.Mining.OutputDir, "project_"+projectID)
	o.pool.Submit(func(ctx context.Context) {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			o.log.WithError(err).Debug("ownership analysis skipped")
			return
		}
		if _, err := o.miner.MineFilesOwnership(ctx, repoDir, branch, outputDir); err != nil {
			o.log.WithError(err).Debug("ownership analysis failed")
		}
	})
}

// Score computes a congruence score from the stored graphs and appends a
// coordination run with its CR edge trail.
func (o *Orchestrator) Score(ctx context.Context, req ScoreRequest) (*models.CoordinationRun, error) {
	if !req.Algorithm.Valid() {
		return nil, fmt.Errorf("unknown algorithm: %s", req.Algorithm)
	}

	taEntries, err := o.store.TaEntries(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task assignments: %w", err)
	}
	tdEdges, err := o.store.TdEdges(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load technical dependencies: %w", err)
	}

	ta := coordination.BuildTa(taEntries)
	td := coordination.BuildTd(tdEdges)

	caSource := "stored"
	var caEdges []models.CaEdge
	if req.DeriveCa {
		caSource = "derived"
		caEdges = coordination.DeriveCa(ta, o.cfg.Coordination.CaMinSharedEdits)
		if err := o.store.ReplaceCaEdges(ctx, req.ProjectID, caEdges); err != nil {
			return nil, fmt.Errorf("failed to persist derived coordination activity: %w", err)
		}
	} else {
		caEdges, err = o.store.CaEdges(ctx, req.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load coordination activity: %w", err)
		}
	}
	ca := coordination.BuildCa(caEdges)

	cr := coordination.BuildCr(ta, td, nil)

	var result coordination.Result
	classConfig := ""
	switch req.Algorithm {
	case models.AlgoSTC:
		result = coordination.ComputeSTC(cr, ca)
	case models.AlgoMCSTC:
		cfg := coordination.DefaultClassConfig()
		if req.ClassConfigPath != "" {
			cfg, err = coordination.LoadClassConfig(req.ClassConfigPath)
			if err != nil {
				return nil, err
			}
			classConfig = req.ClassConfigPath
		}
		contributors, err := o.store.ListProjectContributors(ctx, req.ProjectID, req.Branch)
		if err != nil {
			return nil, fmt.Errorf("failed to load contributors: %w", err)
		}
		result = coordination.ComputeMCSTC(cr, ca, cfg.Classify(contributors))
	}

	run := &models.CoordinationRun{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		Algorithm:   req.Algorithm,
		TdSource:    models.TdLogical,
		CaSource:    caSource,
		ClassConfig: classConfig,
		Score:       result.Score,
		CrCount:     result.CrCount,
		DiffCount:   result.DiffCount,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.store.SaveCoordinationRun(ctx, run, cr.Edges()); err != nil {
		return nil, fmt.Errorf("failed to save coordination run: %w", err)
	}

	o.log.WithFields(logrus.Fields{
		"project":   req.ProjectID,
		"algorithm": req.Algorithm,
		"score":     result.Score,
		"cr_count":  result.CrCount,
		"gap":       result.DiffCount,
	}).Info("coordination run complete")
	return run, nil
}
