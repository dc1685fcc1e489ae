package natureguide

import (
	"cmp"
	"slices"
)

// scoreIndex buckets possible nodes with points by their point value. Each
// bucket keeps node indices sorted so the earliest node wins ties.
type scoreIndex struct {
	buckets map[int][]int
	max     int
}

func (x *scoreIndex) insert(points, node int) {
	if x.buckets == nil {
		x.buckets = make(map[int][]int)
	}
	b := x.buckets[points]
	i, found := slices.BinarySearch(b, node)
	if found {
		return
	}
	x.buckets[points] = slices.Insert(b, i, node)
	if points > x.max {
		x.max = points
	}
}

func (x *scoreIndex) remove(points, node int) {
	b := x.buckets[points]
	i, found := slices.BinarySearch(b, node)
	if !found {
		return
	}
	b = slices.Delete(b, i, i+1)
	if len(b) > 0 {
		x.buckets[points] = b
		return
	}
	delete(x.buckets, points)
	if points == x.max {
		x.max = 0
		for p := range x.buckets {
			x.max = max(x.max, p)
		}
	}
}

// top returns the earliest node among those with the most points.
func (x *scoreIndex) top() (int, bool) {
	b := x.buckets[x.max]
	if len(b) == 0 {
		return 0, false
	}
	return b[0], true
}

// computeResults splits the nodes into possible and impossible results, each
// ordered by descending normalised score and then by declaration order.
func (k *IdentificationKey) computeResults() {
	possible := make([]*Node, 0, len(k.nodes))
	var impossible []*Node
	for _, n := range k.nodes {
		if n.isPossible {
			possible = append(possible, n)
		} else {
			impossible = append(impossible, n)
		}
	}
	byScore := func(a, b *Node) int {
		return cmp.Compare(b.Score(), a.Score())
	}
	slices.SortStableFunc(possible, byScore)
	slices.SortStableFunc(impossible, byScore)
	k.results = possible
	k.impossibleResults = impossible
}
