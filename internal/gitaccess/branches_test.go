package gitaccess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBranchID(t *testing.T) {
	id := BranchID("main", "abc123")
	assert.Len(t, id, 32)

	// Stable for the same inputs.
	assert.Equal(t, id, BranchID("main", "abc123"))

	// Sensitive to both name and hash.
	assert.NotEqual(t, id, BranchID("main", "def456"))
	assert.NotEqual(t, id, BranchID("master", "abc123"))

	// The separator prevents ambiguous concatenations from colliding.
	assert.NotEqual(t, BranchID("a", "bc"), BranchID("ab", "c"))
}
