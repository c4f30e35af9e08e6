package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pairCr(pairs ...Pair) CrGraph {
	cr := make(CrGraph, len(pairs))
	for _, p := range pairs {
		cr[p] = 1
	}
	return cr
}

func TestComputeSTC(t *testing.T) {
	cr := pairCr(
		Pair{A: "alice", B: "bob"},
		Pair{A: "alice", B: "carol"},
		Pair{A: "bob", B: "carol"},
		Pair{A: "bob", B: "dave"},
	)
	ca := CaGraph{
		Pair{A: "alice", B: "bob"}:   2,
		Pair{A: "bob", B: "carol"}:   1,
		Pair{A: "carol", B: "erin"}:  5, // coordination nobody required
	}

	res := ComputeSTC(cr, ca)
	assert.InDelta(t, 0.5, res.Score, 1e-9)
	assert.Equal(t, 4, res.CrCount)
	assert.Equal(t, 2, res.DiffCount)
}

func TestComputeSTCBounds(t *testing.T) {
	empty := ComputeSTC(CrGraph{}, CaGraph{})
	assert.Zero(t, empty.Score)
	assert.Zero(t, empty.CrCount)

	cr := pairCr(Pair{A: "a", B: "b"})

	perfect := ComputeSTC(cr, CaGraph{Pair{A: "a", B: "b"}: 1})
	assert.Equal(t, 1.0, perfect.Score)
	assert.Zero(t, perfect.DiffCount)

	none := ComputeSTC(cr, CaGraph{})
	assert.Zero(t, none.Score)
	assert.Equal(t, 1, none.DiffCount)
}

func TestComputeSTCDiffNeverExceedsCr(t *testing.T) {
	cr := pairCr(Pair{A: "a", B: "b"}, Pair{A: "a", B: "c"})
	res := ComputeSTC(cr, CaGraph{})
	assert.LessOrEqual(t, res.DiffCount, res.CrCount)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)
}

func TestComputeMCSTC(t *testing.T) {
	classOf := map[string]string{
		"alice": "coder",
		"bob":   "coder",
		"carol": "reviewer",
	}
	cr := pairCr(
		Pair{A: "alice", B: "bob"},   // coder-coder, met
		Pair{A: "alice", B: "carol"}, // coder-reviewer, unmet
		Pair{A: "bob", B: "carol"},   // coder-reviewer, met
		Pair{A: "bob", B: "dave"},    // dave unclassified, excluded
	)
	ca := CaGraph{
		Pair{A: "alice", B: "bob"}: 1,
		Pair{A: "bob", B: "carol"}: 1,
		Pair{A: "bob", B: "dave"}:  1,
	}

	res := ComputeMCSTC(cr, ca, classOf)
	// coder-coder: 1/1; coder-reviewer: 1/2. Weighted by CR counts:
	// (1*1 + 0.5*2) / 3.
	assert.InDelta(t, 2.0/3.0, res.Score, 1e-9)
	assert.Equal(t, 3, res.CrCount)
	assert.Equal(t, 1, res.DiffCount)
}

func TestComputeMCSTCNoClassifiedPairs(t *testing.T) {
	cr := pairCr(Pair{A: "a", B: "b"})
	res := ComputeMCSTC(cr, CaGraph{}, map[string]string{})
	assert.Zero(t, res.Score)
	assert.Zero(t, res.CrCount)
}
