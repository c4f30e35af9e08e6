package coordination

import (
	"sort"

	"github.com/secuflow/secuflow-go/internal/models"
)

// Pair is a canonical undirected pair: A < B always holds.
type Pair struct {
	A, B string
}

// NewPair normalizes two endpoints into canonical orientation.
func NewPair(a, b string) Pair {
	a, b = models.CanonicalPair(a, b)
	return Pair{A: a, B: b}
}

// TaGraph maps contributor to file to edit count.
type TaGraph map[string]map[string]int

// TdGraph maps canonical file pairs to co-change weight.
type TdGraph map[Pair]int

// CaGraph maps canonical contributor pairs to coordination weight.
type CaGraph map[Pair]int

// CrGraph maps canonical contributor pairs to required-coordination weight.
type CrGraph map[Pair]float64

// BuildTa folds stored task-assignment entries into a graph.
func BuildTa(entries []models.TaEntry) TaGraph {
	ta := make(TaGraph)
	for _, e := range entries {
		if e.EditCount <= 0 {
			continue
		}
		row, ok := ta[e.Contributor]
		if !ok {
			row = map[string]int{}
			ta[e.Contributor] = row
		}
		row[e.File] += e.EditCount
	}
	return ta
}

// BuildTd folds stored dependency edges into a graph, normalizing any
// non-canonical input.
func BuildTd(edges []models.TdEdge) TdGraph {
	td := make(TdGraph, len(edges))
	for _, e := range edges {
		if e.Weight <= 0 || e.FileA == e.FileB {
			continue
		}
		td[NewPair(e.FileA, e.FileB)] += e.Weight
	}
	return td
}

// BuildCa folds stored coordination-activity edges into a graph.
func BuildCa(edges []models.CaEdge) CaGraph {
	ca := make(CaGraph, len(edges))
	for _, e := range edges {
		if e.Weight <= 0 || e.ContributorI == e.ContributorJ {
			continue
		}
		ca[NewPair(e.ContributorI, e.ContributorJ)] += e.Weight
	}
	return ca
}

// DeriveCa infers coordination activity from shared file edits: two
// contributors link when both edited at least minSharedEdits times the same
// file; the weight is the number of such shared files.
func DeriveCa(ta TaGraph, minSharedEdits int) []models.CaEdge {
	if minSharedEdits < 1 {
		minSharedEdits = 1
	}

	contributors := make([]string, 0, len(ta))
	for c := range ta {
		contributors = append(contributors, c)
	}
	sort.Strings(contributors)

	var edges []models.CaEdge
	for i := 0; i < len(contributors); i++ {
		for j := i + 1; j < len(contributors); j++ {
			a, b := contributors[i], contributors[j]
			shared := 0
			for file, edits := range ta[a] {
				if edits >= minSharedEdits && ta[b][file] >= minSharedEdits {
					shared++
				}
			}
			if shared > 0 {
				edges = append(edges, models.CaEdge{
					ContributorI: a,
					ContributorJ: b,
					Weight:       shared,
					Evidence:     models.EvidenceCoEdit,
				})
			}
		}
	}
	return edges
}

// WeightPolicy computes the required-coordination weight between two
// contributors from their assignments and the dependency graph. A zero
// result means no requirement.
type WeightPolicy func(taA, taB map[string]int, td TdGraph) float64

// ProductWeight is the default policy: each dependent file pair contributes
// the product of both contributors' relative involvement and the dependency
// weight.
func ProductWeight(taA, taB map[string]int, td TdGraph) float64 {
	totalA, totalB := 0, 0
	for _, n := range taA {
		totalA += n
	}
	for _, n := range taB {
		totalB += n
	}
	if totalA == 0 || totalB == 0 {
		return 0
	}

	var w float64
	for x, editsA := range taA {
		for y, editsB := range taB {
			if x == y {
				continue
			}
			weight, ok := td[NewPair(x, y)]
			if !ok || weight <= 0 {
				continue
			}
			shareA := float64(editsA) / float64(totalA)
			shareB := float64(editsB) / float64(totalB)
			w += shareA * shareB * float64(weight)
		}
	}
	return w
}

// BuildCr derives the coordination-requirement graph: contributor pairs
// whose assigned files depend on each other.
func BuildCr(ta TaGraph, td TdGraph, policy WeightPolicy) CrGraph {
	if policy == nil {
		policy = ProductWeight
	}

	contributors := make([]string, 0, len(ta))
	for c := range ta {
		contributors = append(contributors, c)
	}
	sort.Strings(contributors)

	cr := make(CrGraph)
	for i := 0; i < len(contributors); i++ {
		for j := i + 1; j < len(contributors); j++ {
			a, b := contributors[i], contributors[j]
			if w := policy(ta[a], ta[b], td); w > 0 {
				cr[Pair{A: a, B: b}] = w
			}
		}
	}
	return cr
}

// Edges flattens a CR graph into storable rows in deterministic order.
func (cr CrGraph) Edges() []models.CrEdge {
	pairs := make([]Pair, 0, len(cr))
	for p := range cr {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})

	edges := make([]models.CrEdge, 0, len(pairs))
	for _, p := range pairs {
		edges = append(edges, models.CrEdge{ContributorI: p.A, ContributorJ: p.B, Weight: cr[p]})
	}
	return edges
}
