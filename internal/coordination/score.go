package coordination

// Result is one congruence computation over the CR and CA graphs.
type Result struct {
	// Score is |CR ∩ CA| / |CR|, in [0, 1]. Zero when no coordination is
	// required.
	Score float64

	// CrCount is the number of required-coordination pairs.
	CrCount int

	// DiffCount is the number of required pairs with no observed
	// coordination, the actionable gap.
	DiffCount int
}

// ComputeSTC measures how much of the required coordination actually
// happened.
func ComputeSTC(cr CrGraph, ca CaGraph) Result {
	res := Result{CrCount: len(cr)}
	if len(cr) == 0 {
		return res
	}

	met := 0
	for pair := range cr {
		if ca[pair] > 0 {
			met++
		}
	}
	res.Score = float64(met) / float64(len(cr))
	res.DiffCount = len(cr) - met
	return res
}

// classPair is an unordered pair of functional class names.
type classPair struct {
	A, B string
}

func newClassPair(a, b string) classPair {
	if a > b {
		a, b = b, a
	}
	return classPair{A: a, B: b}
}

// ComputeMCSTC computes multi-class congruence: the CR graph is partitioned
// by the functional classes of each pair's endpoints, congruence is
// computed per class pair, and the overall score is the mean weighted by
// each class pair's CR count. Pairs with an endpoint outside classOf are
// excluded.
func ComputeMCSTC(cr CrGraph, ca CaGraph, classOf map[string]string) Result {
	type bucket struct {
		crCount int
		met     int
	}
	buckets := map[classPair]*bucket{}

	total := 0
	for pair := range cr {
		classA, okA := classOf[pair.A]
		classB, okB := classOf[pair.B]
		if !okA || !okB {
			continue
		}
		key := newClassPair(classA, classB)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.crCount++
		total++
		if ca[pair] > 0 {
			b.met++
		}
	}

	res := Result{CrCount: total}
	if total == 0 {
		return res
	}

	var weighted float64
	met := 0
	for _, b := range buckets {
		congruence := float64(b.met) / float64(b.crCount)
		weighted += congruence * float64(b.crCount)
		met += b.met
	}
	res.Score = weighted / float64(total)
	res.DiffCount = total - met
	return res
}
