package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuflow/secuflow-go/internal/mining"
	"github.com/secuflow/secuflow-go/internal/models"
	"github.com/secuflow/secuflow-go/internal/storage"
)

func newIngester(t *testing.T) (*Ingester, storage.Store) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ingest.db"), logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewIngester(store, logrus.New()), store
}

func TestIngestAssignment(t *testing.T) {
	ing, store := newIngester(t)
	ctx := context.Background()

	out := &mining.AssignmentOutput{
		IDToUser: map[string]string{
			"0": "alice@example.com",
			"1": "99+bob@users.noreply.github.com",
		},
		IDToFile: map[string]string{"0": "src/main.py", "1": "src/util.py"},
		AssignmentMatrix: map[string]map[string]int{
			"0": {"0": 120, "1": 40},
			"1": {"1": 3},
		},
	}

	summary, err := ing.IngestAssignment(ctx, "proj-1", "main", out)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalContributors)
	assert.Equal(t, 2, summary.ContributorsCreated)
	assert.Equal(t, 3, summary.TaEntries)

	pcs, err := store.ListProjectContributors(ctx, "proj-1", "main")
	require.NoError(t, err)
	require.Len(t, pcs, 2)

	alice := pcs[0]
	assert.Equal(t, "alice", alice.Login)
	assert.Equal(t, 160, alice.TotalModifications)
	assert.Equal(t, models.RoleCoder, alice.FunctionalRole)
	assert.True(t, alice.IsCoreContributor)
	assert.JSONEq(t, `{"py":160}`, alice.FileTypeBreakdown)

	bob := pcs[1]
	assert.Equal(t, "bob", bob.Login)
	assert.Equal(t, models.RoleUnclassified, bob.FunctionalRole)
	assert.False(t, bob.IsCoreContributor)

	entries, err := store.TaEntries(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	files, err := store.ListCodeFiles(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "src/main.py", files[0].Path)
	assert.Equal(t, "py", files[0].Language)
}

func TestIngestKeepsCodeFilesAcrossRuns(t *testing.T) {
	ing, store := newIngester(t)
	ctx := context.Background()

	first := &mining.AssignmentOutput{
		IDToUser:         map[string]string{"0": "alice@example.com"},
		IDToFile:         map[string]string{"0": "old/legacy.py"},
		AssignmentMatrix: map[string]map[string]int{"0": {"0": 3}},
	}
	_, err := ing.IngestAssignment(ctx, "proj-1", "main", first)
	require.NoError(t, err)

	// A later run no longer touches legacy.py; its file row must survive
	// the full replacement of the TA entry set.
	second := &mining.AssignmentOutput{
		IDToUser:         map[string]string{"0": "alice@example.com"},
		IDToFile:         map[string]string{"0": "src/new.py"},
		AssignmentMatrix: map[string]map[string]int{"0": {"0": 5}},
	}
	_, err = ing.IngestAssignment(ctx, "proj-1", "main", second)
	require.NoError(t, err)

	entries, err := store.TaEntries(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "src/new.py", entries[0].File)

	files, err := store.ListCodeFiles(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "old/legacy.py", files[0].Path)
	assert.Equal(t, "src/new.py", files[1].Path)
}

func TestIngestAssignmentEmptyBranchDefaults(t *testing.T) {
	ing, _ := newIngester(t)

	summary, err := ing.IngestAssignment(context.Background(), "proj-1", "", &mining.AssignmentOutput{
		IDToUser:         map[string]string{},
		IDToFile:         map[string]string{},
		AssignmentMatrix: map[string]map[string]int{},
	})
	require.NoError(t, err)
	assert.Equal(t, "unknown", summary.Branch)
}

func TestIngestDependencies(t *testing.T) {
	ing, store := newIngester(t)
	ctx := context.Background()

	// Symmetric matrix with a self loop; only one canonical edge survives.
	matrix := map[string]map[string]int{
		"0": {"1": 4, "0": 9},
		"1": {"0": 4},
	}
	idToFile := map[string]string{"0": "b.py", "1": "a.py"}

	n, err := ing.IngestDependencies(ctx, "proj-1", matrix, idToFile)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	edges, err := store.TdEdges(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a.py", edges[0].FileA)
	assert.Equal(t, "b.py", edges[0].FileB)
	assert.Equal(t, 4, edges[0].Weight)
}
