package natureguide

import (
	"cmp"
	"fmt"
	"slices"
)

// MatrixRestriction is one member of a restriction group in a Matrix.
// Interval is only set for continuous restricting spaces.
type MatrixRestriction struct {
	Space    int
	Interval *[2]float64
}

// Matrix is a plain snapshot of a key's selection state and its space to
// node mapping. Evaluate recomputes every derived view from scratch and
// serves as the reference the incremental engine is checked against.
type Matrix struct {
	// Mapping[space][node] reports whether the space maps to the node. For a
	// selected continuous space the row reflects the applied value.
	Mapping      [][]bool
	Selected     []bool
	Values       []float64
	Weights      []int
	MaxPoints    []int
	SpaceFilter  []int
	Restrictions [][][]MatrixRestriction
}

// MatrixState is the result of Matrix.Evaluate.
type MatrixState struct {
	PossibleNodes  []bool
	PossibleSpaces []bool
	Points         []int
	VisibleFilters []bool
	// Results and ImpossibleResults hold node indices.
	Results           []int
	ImpossibleResults []int
}

// Matrix snapshots the key.
func (k *IdentificationKey) Matrix() Matrix {
	m := Matrix{
		Mapping:      make([][]bool, len(k.spaces)),
		Selected:     make([]bool, len(k.spaces)),
		Values:       make([]float64, len(k.spaces)),
		Weights:      make([]int, len(k.spaces)),
		SpaceFilter:  make([]int, len(k.spaces)),
		MaxPoints:    make([]int, len(k.nodes)),
		Restrictions: make([][][]MatrixRestriction, len(k.filters)),
	}
	for _, n := range k.nodes {
		m.MaxPoints[n.Index] = n.MaxPoints
	}
	for _, s := range k.spaces {
		f := s.filter
		m.Selected[s.Index] = s.isSelected
		m.Values[s.Index] = s.value
		m.Weights[s.Index] = f.Weight
		m.SpaceFilter[s.Index] = f.Index

		row := make([]bool, len(k.nodes))
		for _, n := range k.nodes {
			if f.kind.continuous && s.isSelected {
				row[n.Index] = n.inRange(f, s.value)
			} else {
				row[n.Index] = nodeDeclares(n, f, s)
			}
		}
		m.Mapping[s.Index] = row
	}
	for _, f := range k.filters {
		groups := make([][]MatrixRestriction, 0, len(f.groups))
		for _, g := range f.groups {
			members := make([]MatrixRestriction, 0, len(g.members))
			for _, r := range g.members {
				members = append(members, MatrixRestriction{Space: r.space.Index, Interval: r.interval})
			}
			groups = append(groups, members)
		}
		m.Restrictions[f.Index] = groups
	}
	return m
}

// Evaluate recomputes possibility, points, visibility and result order.
func (m Matrix) Evaluate() MatrixState {
	nodes := len(m.MaxPoints)
	st := MatrixState{
		PossibleNodes:  make([]bool, nodes),
		PossibleSpaces: make([]bool, len(m.Selected)),
		Points:         make([]int, nodes),
		VisibleFilters: make([]bool, len(m.Restrictions)),
	}

	for n := range nodes {
		possible := true
		for s, selected := range m.Selected {
			if !selected {
				continue
			}
			if m.Mapping[s][n] {
				st.Points[n] += m.Weights[s]
			} else {
				possible = false
			}
		}
		st.PossibleNodes[n] = possible
	}

	for s, selected := range m.Selected {
		possible := selected
		for n := 0; n < nodes && !possible; n++ {
			possible = m.Mapping[s][n] && st.PossibleNodes[n]
		}
		st.PossibleSpaces[s] = possible
	}

	for f, groups := range m.Restrictions {
		visible := true
		for _, g := range groups {
			if !slices.ContainsFunc(g, m.satisfied) {
				visible = false
				break
			}
		}
		st.VisibleFilters[f] = visible
	}

	score := func(n int) float64 {
		if m.MaxPoints[n] <= 0 {
			return 0
		}
		return float64(st.Points[n]) / float64(m.MaxPoints[n])
	}
	for n := range nodes {
		if st.PossibleNodes[n] {
			st.Results = append(st.Results, n)
		} else {
			st.ImpossibleResults = append(st.ImpossibleResults, n)
		}
	}
	byScore := func(a, b int) int {
		return cmp.Compare(score(b), score(a))
	}
	slices.SortStableFunc(st.Results, byScore)
	slices.SortStableFunc(st.ImpossibleResults, byScore)
	return st
}

func (m Matrix) satisfied(r MatrixRestriction) bool {
	if !m.Selected[r.Space] {
		return false
	}
	if r.Interval == nil {
		return true
	}
	v := m.Values[r.Space]
	return v >= r.Interval[0] && v <= r.Interval[1]
}

// Verify recomputes the key from scratch and reports the first view in
// which the incremental state disagrees.
func (k *IdentificationKey) Verify() error {
	want := k.Matrix().Evaluate()

	points := make([]int, len(k.nodes))
	for _, n := range k.nodes {
		points[n.Index] = n.points
	}
	if err := compareViews("possible nodes", k.PossibleNodes(), want.PossibleNodes); err != nil {
		return err
	}
	if err := compareViews("possible spaces", k.PossibleSpaces(), want.PossibleSpaces); err != nil {
		return err
	}
	if err := compareViews("points", points, want.Points); err != nil {
		return err
	}
	if err := compareViews("visible filters", k.VisibleFilters(), want.VisibleFilters); err != nil {
		return err
	}
	if err := compareViews("results", nodeIndices(k.results), want.Results); err != nil {
		return err
	}
	if err := compareViews("impossible results", nodeIndices(k.impossibleResults), want.ImpossibleResults); err != nil {
		return err
	}
	return nil
}

func compareViews[T comparable](name string, got, want []T) error {
	if len(got) != len(want) {
		return fmt.Errorf("%s: got %d entries, want %d", name, len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("%s[%d]: got %v, want %v", name, i, got[i], want[i])
		}
	}
	return nil
}

func nodeIndices(nodes []*Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = n.Index
	}
	return out
}
