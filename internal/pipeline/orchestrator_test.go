package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuflow/secuflow-go/internal/config"
	"github.com/secuflow/secuflow-go/internal/models"
	"github.com/secuflow/secuflow-go/internal/storage"
)

func scoringOrchestrator(t *testing.T) (*Orchestrator, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "pipeline.db"), logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Coordination.CaMinSharedEdits = 1
	o := NewOrchestrator(cfg, nil, nil, nil, nil, store, nil, nil, logrus.New())
	return o, store
}

func seedGraphs(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	// alice works on x.py, bob on y.py; the files co-change, so the pair
	// requires coordination. alice and carol share z.py.
	require.NoError(t, store.ReplaceTaEntries(ctx, "proj-1", []models.TaEntry{
		{Contributor: "alice", File: "x.py", EditCount: 4},
		{Contributor: "alice", File: "z.py", EditCount: 1},
		{Contributor: "bob", File: "y.py", EditCount: 2},
		{Contributor: "carol", File: "z.py", EditCount: 3},
	}))
	require.NoError(t, store.ReplaceTdEdges(ctx, "proj-1", []models.TdEdge{
		{FileA: "x.py", FileB: "y.py", Weight: 3},
	}))
}

func TestScoreSTCWithDerivedCa(t *testing.T) {
	o, store := scoringOrchestrator(t)
	seedGraphs(t, store)
	ctx := context.Background()

	run, err := o.Score(ctx, ScoreRequest{
		ProjectID: "proj-1",
		Algorithm: models.AlgoSTC,
		DeriveCa:  true,
	})
	require.NoError(t, err)

	// One CR pair (alice-bob); derived CA links alice-carol only, so the
	// requirement is unmet.
	assert.Equal(t, 1, run.CrCount)
	assert.Equal(t, 1, run.DiffCount)
	assert.Zero(t, run.Score)
	assert.Equal(t, "derived", run.CaSource)

	edges, err := store.CrEdges(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "alice", edges[0].ContributorI)
	assert.Equal(t, "bob", edges[0].ContributorJ)
	assert.Greater(t, edges[0].Weight, 0.0)

	caEdges, err := store.CaEdges(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, caEdges, 1)
	assert.Equal(t, models.EvidenceCoEdit, caEdges[0].Evidence)
}

func TestScoreSTCWithStoredCa(t *testing.T) {
	o, store := scoringOrchestrator(t)
	seedGraphs(t, store)
	ctx := context.Background()

	require.NoError(t, store.ReplaceCaEdges(ctx, "proj-1", []models.CaEdge{
		{ContributorI: "alice", ContributorJ: "bob", Weight: 2, Evidence: models.EvidenceSameCommit},
	}))

	run, err := o.Score(ctx, ScoreRequest{ProjectID: "proj-1", Algorithm: models.AlgoSTC})
	require.NoError(t, err)
	assert.Equal(t, 1.0, run.Score)
	assert.Zero(t, run.DiffCount)
	assert.Equal(t, "stored", run.CaSource)
}

func TestScoreMCSTCUsesRoleClasses(t *testing.T) {
	o, store := scoringOrchestrator(t)
	seedGraphs(t, store)
	ctx := context.Background()

	now := time.Now().UTC()
	_, _, err := store.SaveContributorSnapshot(ctx, "proj-1", "main", []storage.SnapshotRow{
		{Login: "alice", Stats: models.ProjectContributor{FunctionalRole: models.RoleCoder, FileTypeBreakdown: `{}`, LastAnalysisAt: now}},
		{Login: "bob", Stats: models.ProjectContributor{FunctionalRole: models.RoleReviewer, FileTypeBreakdown: `{}`, LastAnalysisAt: now}},
	})
	require.NoError(t, err)
	require.NoError(t, store.ReplaceCaEdges(ctx, "proj-1", []models.CaEdge{
		{ContributorI: "alice", ContributorJ: "bob", Weight: 1, Evidence: models.EvidenceCoEdit},
	}))

	run, err := o.Score(ctx, ScoreRequest{
		ProjectID: "proj-1",
		Branch:    "main",
		Algorithm: models.AlgoMCSTC,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, run.Score)
	assert.Equal(t, 1, run.CrCount)

	runs, err := store.ListCoordinationRuns(ctx, "proj-1", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestScoreRejectsUnknownAlgorithm(t *testing.T) {
	o, _ := scoringOrchestrator(t)
	_, err := o.Score(context.Background(), ScoreRequest{ProjectID: "p", Algorithm: "PageRank"})
	assert.Error(t, err)
}

func TestMiningRequestSafeModeDefaultsOn(t *testing.T) {
	// Unset means the sanitized workspace path; only an explicit false
	// mines the raw clone.
	assert.True(t, MiningRequest{}.safeMode())

	on := true
	assert.True(t, MiningRequest{SafeMode: &on}.safeMode())

	off := false
	assert.False(t, MiningRequest{SafeMode: &off}.safeMode())
}

func TestRunMiningRejectsBadInput(t *testing.T) {
	o, _ := scoringOrchestrator(t)
	ctx := context.Background()

	_, err := o.RunMining(ctx, MiningRequest{
		ProjectID: "p", RepoURL: "https://github.com/acme/repo.git", DataType: "everything",
	})
	assert.Error(t, err)

	_, err = o.RunMining(ctx, MiningRequest{
		ProjectID: "p", RepoURL: "not a url", DataType: models.DataAssignmentMatrix,
	})
	assert.Error(t, err)
}
