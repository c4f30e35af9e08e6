package gitaccess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secuflow/secuflow-go/internal/models"
)

func TestParseRemoteHeads(t *testing.T) {
	out := "f00dfeed\trefs/heads/main\n" +
		"cafebabe\trefs/heads/feature/login\n" +
		"deadbeef\trefs/tags/v1.0\n" + // not a head, ignored
		"garbage line without a ref\n"

	branches := parseRemoteHeads(out)
	require.Len(t, branches, 2)

	// Sorted by name.
	assert.Equal(t, "feature/login", branches[0].Name)
	assert.Equal(t, "cafebabe", branches[0].CommitHash)
	assert.Equal(t, BranchID("feature/login", "cafebabe"), branches[0].BranchID)
	assert.Equal(t, "main", branches[1].Name)
	assert.Equal(t, "f00dfeed", branches[1].CommitHash)
}

func TestParseRemoteHeadsEmpty(t *testing.T) {
	assert.Empty(t, parseRemoteHeads(""))
	assert.Empty(t, parseRemoteHeads("\n\n"))
}

func TestPickDefaultBranch(t *testing.T) {
	mk := func(names ...string) []models.Branch {
		out := make([]models.Branch, len(names))
		for i, n := range names {
			out[i] = models.Branch{Name: n}
		}
		return out
	}

	assert.Equal(t, "main", pickDefaultBranch(mk("develop", "main", "master")))
	assert.Equal(t, "master", pickDefaultBranch(mk("develop", "master", "release")))
	assert.Equal(t, "develop", pickDefaultBranch(mk("develop", "release")))
	assert.Equal(t, "", pickDefaultBranch(nil))
}
