package natureguide

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Construction(t *testing.T) {
	k := fixtureKey(t)

	assert.Len(t, k.Nodes(), 8)
	assert.Len(t, k.Filters(), 7)
	assert.Len(t, k.Spaces(), 13)
	assert.Equal(t, ModeFluid, k.Mode())

	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 1, 1), k.PossibleNodes())
	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 0), k.VisibleFilters())
	assert.Equal(t, [][][]int{{}, {}, {}, {}, {}, {}, {{spaceOpposite}}}, k.FilterVisibilityRestrictions())

	for _, s := range k.Spaces() {
		assert.True(t, s.IsPossible(), "space %s", s.Identifier)
		assert.False(t, s.IsSelected())
	}
	assert.Equal(t, "f5", k.Space(spaceHeight).Identifier)
	assert.Equal(t, "f6:179", k.Space(spaceBellis).Identifier)
	assert.Nil(t, k.Leader())
	assert.False(t, k.IsDone())
	require.NoError(t, k.Verify())
}

func TestKey_SelectSpace_Fixture(t *testing.T) {
	k := fixtureKey(t)

	require.True(t, k.SelectSpace(spaceOpposite))
	assert.Equal(t, flags(1, 0, 1, 1, 0, 1, 0, 0), k.PossibleNodes())
	assert.Equal(t, []string{"n0", "n5", "n2", "n3"}, uuids(k.Results()))
	assert.Equal(t, []string{"n1", "n4", "n6", "n7"}, uuids(k.ImpossibleResults()))
	assert.True(t, k.IsFilterVisible(k.Filter("f6")))

	require.True(t, k.SelectSpace(spaceRadial))
	assert.Equal(t, flags(0, 0, 0, 0, 0, 1, 0, 0), k.PossibleNodes())
	assert.Equal(t, []string{"n5"}, uuids(k.Results()))
	require.NoError(t, k.Verify())
}

func TestKey_PointsAcrossFilters(t *testing.T) {
	k := fixtureKey(t)
	k.SelectSpace(spaceOpposite)
	k.SelectSpace(spaceMeadow)

	points := k.Points()
	assert.Equal(t, 2, points["n0"])
	assert.Equal(t, 2, points["n2"])
	assert.Equal(t, 0, points["n5"])
	assert.Equal(t, []string{"n0", "n2"}, uuids(k.Results()))
	require.NoError(t, k.Verify())
}

func TestKey_SelectSpace_Idempotent(t *testing.T) {
	var selected int
	k := fixtureKey(t, WithHandler(EventSpaceSelected, func(KeyEvent, *IdentificationKey, any) {
		selected++
	}))

	assert.True(t, k.SelectSpace(spaceOpposite))
	before := k.PossibleNodes()
	assert.False(t, k.SelectSpace(spaceOpposite))

	assert.Equal(t, 1, selected)
	assert.Equal(t, before, k.PossibleNodes())
}

func TestKey_SelectDeselect_RoundTrip(t *testing.T) {
	k := fixtureKey(t)
	k.SelectSpace(spaceYellow)

	for i, s := range k.Spaces() {
		if s.IsSelected() || !s.Filter().IsVisible() || s.Filter().IsContinuous() {
			continue
		}
		nodes, spaces := k.PossibleNodes(), k.PossibleSpaces()

		k.SelectSpace(i)
		k.DeselectSpace(i)

		assert.Equal(t, nodes, k.PossibleNodes(), "nodes after toggling %d", i)
		assert.Equal(t, spaces, k.PossibleSpaces(), "spaces after toggling %d", i)
	}
}

func TestKey_SingleSelectExclusivity(t *testing.T) {
	k := fixtureKey(t)

	k.SelectSpace(spaceOpposite)
	k.SelectSpace(spaceAlternate)
	assert.False(t, k.Space(spaceOpposite).IsSelected())
	assert.True(t, k.Space(spaceAlternate).IsSelected())
	assert.Equal(t, flags(0, 1, 0, 0, 1, 0, 1, 0), k.PossibleNodes())
	require.NoError(t, k.Verify())
}

func TestKey_MultiSelect(t *testing.T) {
	k := fixtureKey(t)

	k.SelectSpace(spaceYellow)
	k.SelectSpace(spaceWhite)
	assert.True(t, k.Space(spaceYellow).IsSelected())
	assert.True(t, k.Space(spaceWhite).IsSelected())
	// only n5 is both yellow and white
	assert.Equal(t, flags(0, 0, 0, 0, 0, 1, 0, 0), k.PossibleNodes())
	assert.Equal(t, 2, k.Points()["n5"])
	require.NoError(t, k.Verify())
}

func TestKey_RestrictionGating(t *testing.T) {
	var events []KeyEvent
	record := func(e KeyEvent, _ *IdentificationKey, _ any) { events = append(events, e) }
	k := fixtureKey(t,
		WithHandler(EventFilterBecameVisible, record),
		WithHandler(EventFilterBecameInvisible, record),
		WithHandler(EventSpaceDeselected, record),
	)
	genus := k.Filter("f6")
	require.False(t, genus.IsVisible())
	assert.Equal(t, []*Space{k.Space(spaceOpposite)}, genus.ActiveRestrictions())

	assert.False(t, k.SelectSpace(spaceBellis), "hidden filter must not accept a selection")

	k.SelectSpace(spaceOpposite)
	require.True(t, genus.IsVisible())
	assert.Empty(t, genus.ActiveRestrictions())
	assert.Equal(t, []KeyEvent{EventFilterBecameVisible}, events)

	require.True(t, k.SelectSpace(spaceBellis))
	events = nil
	k.DeselectSpace(spaceOpposite)

	assert.False(t, genus.IsVisible())
	assert.False(t, k.Space(spaceBellis).IsSelected())
	assert.Equal(t, []KeyEvent{EventSpaceDeselected, EventSpaceDeselected, EventFilterBecameInvisible}, events)
	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 1, 1), k.PossibleNodes())
	require.NoError(t, k.Verify())
}

func TestKey_ExclusivityHidesRestrictedFilter(t *testing.T) {
	k := fixtureKey(t)
	k.SelectSpace(spaceOpposite)
	k.SelectSpace(spaceBellis)

	k.SelectSpace(spaceAlternate)
	assert.False(t, k.Filter("f6").IsVisible())
	assert.False(t, k.Space(spaceBellis).IsSelected())
	require.NoError(t, k.Verify())
}

func TestKey_OutOfRangeAndUnselected(t *testing.T) {
	k := fixtureKey(t)

	assert.False(t, k.SelectSpace(-1))
	assert.False(t, k.SelectSpace(99))
	assert.False(t, k.DeselectSpace(99))
	assert.False(t, k.DeselectSpace(spaceRadial))
	assert.False(t, k.SelectSpaceByID("nope:0"))
	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 1, 1), k.PossibleNodes())
}

func TestKey_ByIdentifier(t *testing.T) {
	k := fixtureKey(t)
	other := fixtureKey(t)

	require.True(t, k.SelectSpaceByID("f0:0"))
	assert.True(t, k.IsSpaceSelected(other.Space(spaceOpposite)))
	assert.False(t, other.IsSpaceSelected(k.Space(spaceOpposite)))
	assert.False(t, k.IsSpacePossible(other.Space(spaceAlternate)))
	assert.True(t, k.IsFilterVisible(other.Filter("f6")))

	// range identifiers resolve with or without their discriminator
	assert.Same(t, k.Space(spaceHeight), k.SpaceByID("f5:0"))
	assert.Same(t, k.Space(spaceHeight), k.SpaceByID("f5"))

	require.True(t, k.DeselectSpaceByID("f0:0"))
	assert.False(t, k.Space(spaceOpposite).IsSelected())
}

func TestKey_Leader(t *testing.T) {
	var leaders []string
	k := fixtureKey(t, WithHandler(EventIdentificationResult, func(_ KeyEvent, _ *IdentificationKey, p any) {
		n := p.(ResultPayload).Node
		if n == nil {
			leaders = append(leaders, "")
			return
		}
		leaders = append(leaders, n.UUID)
	}))

	k.SelectSpace(spaceOpposite)
	require.NotNil(t, k.Leader())
	assert.Equal(t, "n0", k.Leader().UUID, "ties go to the earliest node")

	k.SelectSpace(spaceThreePetal)
	assert.Equal(t, "n3", k.Leader().UUID)
	assert.Equal(t, []string{"n5", "n3"}, uuids(k.Results()))

	k.Reset()
	assert.Nil(t, k.Leader())
	assert.Equal(t, []string{"n0", "n3", ""}, leaders)
}

func TestKey_Reset(t *testing.T) {
	k := fixtureKey(t)
	k.SelectSpace(spaceOpposite)
	k.SelectSpace(spaceBellis)
	k.SelectNumber(spaceHeight, 6)

	k.Reset()
	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 1, 1), k.PossibleNodes())
	assert.Equal(t, make([]bool, 13), k.SelectedSpaces())
	assert.False(t, k.Filter("f6").IsVisible())
	for _, n := range k.Nodes() {
		assert.Zero(t, n.Points())
	}
	require.NoError(t, k.Verify())
}

func TestKey_MatchesRecompute(t *testing.T) {
	k := fixtureKey(t)
	rng := rand.New(rand.NewPCG(7, 11))

	for step := range 600 {
		i := rng.IntN(len(k.Spaces()) + 1)
		switch op := rng.IntN(10); {
		case op < 5:
			if i == spaceHeight {
				k.SelectNumber(i, float64(rng.IntN(28))/2)
			} else {
				k.SelectSpace(i)
			}
		case op < 8:
			k.DeselectSpace(i)
		default:
			k.SelectNumber(spaceHeight, rng.Float64()*14)
		}
		require.NoError(t, k.Verify(), "step %d", step)
	}
}

func TestKey_DoneFiresOnce(t *testing.T) {
	step := `{
	  "uuid": "k", "name": "two",
	  "children": [
	    {"uuid": "node1", "nodeType": "result", "maxPoints": 2, "space": {
	      "f1": [{"spaceIdentifier": "f1:a1"}], "f2": [{"spaceIdentifier": "f2:b1"}]}},
	    {"uuid": "node2", "nodeType": "result", "maxPoints": 2, "space": {
	      "f1": [{"spaceIdentifier": "f1:a2"}], "f2": [{"spaceIdentifier": "f2:b2"}]}}
	  ],
	  "matrixFilters": {
	    "f1": {"uuid": "f1", "type": "TextOnlyFilter", "weight": 1, "space": [
	      {"spaceIdentifier": "f1:a1", "encodedSpace": "a1"},
	      {"spaceIdentifier": "f1:a2", "encodedSpace": "a2"}]},
	    "f2": {"uuid": "f2", "type": "TextOnlyFilter", "weight": 1, "space": [
	      {"spaceIdentifier": "f2:b1", "encodedSpace": "b1"},
	      {"spaceIdentifier": "f2:b2", "encodedSpace": "b2"}]}
	  }
	}`
	var done []DonePayload
	k := keyFromJSON(t, step, WithHandler(EventIdentificationDone, func(_ KeyEvent, _ *IdentificationKey, p any) {
		done = append(done, p.(DonePayload))
	}))

	k.SelectSpace(0)
	assert.Empty(t, done)
	assert.False(t, k.IsDone())

	k.SelectSpace(2)
	require.Len(t, done, 1)
	assert.Equal(t, 1, done[0].ResultCount)
	assert.True(t, k.IsDone())

	// still done: no second event
	k.SelectSpace(2)
	k.SelectSpace(0)
	assert.Len(t, done, 1)
}

func TestKey_ZeroMaxPoints(t *testing.T) {
	step := `{
	  "uuid": "k",
	  "children": [
	    {"uuid": "a", "maxPoints": 0, "space": {"f": [{"spaceIdentifier": "f:x"}]}},
	    {"uuid": "b", "maxPoints": 4, "space": {"f": [{"spaceIdentifier": "f:x"}]}}
	  ],
	  "matrixFilters": {
	    "f": {"uuid": "f", "type": "DescriptiveTextAndImagesFilter", "weight": 1, "space": [
	      {"spaceIdentifier": "f:x", "encodedSpace": "x"}]}
	  }
	}`
	k := keyFromJSON(t, step)
	k.SelectSpace(0)

	assert.Zero(t, k.Nodes()[0].Score())
	assert.Equal(t, 1, k.Nodes()[0].Points())
	assert.Equal(t, []string{"b", "a"}, uuids(k.Results()))
	assert.Equal(t, "a", k.Leader().UUID, "leader ranks by raw points")
}

func TestKey_SpaceInitializedEvents(t *testing.T) {
	var indices []int
	fixtureKey(t, WithHandler(EventSpaceInitialized, func(_ KeyEvent, _ *IdentificationKey, p any) {
		indices = append(indices, p.(SpacePayload).Index)
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, indices)
}

func TestKey_Off(t *testing.T) {
	var n int
	k := fixtureKey(t)
	sub := k.On(EventSpaceSelected, func(KeyEvent, *IdentificationKey, any) { n++ })
	k.SelectSpace(spaceOpposite)
	require.True(t, k.Off(sub))
	k.SelectSpace(spaceRadial)
	assert.Equal(t, 1, n)
}

func TestKey_SetMode(t *testing.T) {
	k := fixtureKey(t, WithMode(ModeStrict))
	assert.Equal(t, ModeStrict, k.Mode())
	k.SetMode(ModeFluid)
	assert.Equal(t, ModeFluid, k.Mode())
}
