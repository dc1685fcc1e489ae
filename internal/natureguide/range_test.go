package natureguide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWiden(t *testing.T) {
	tests := []struct {
		name      string
		iv        [2]float64
		tolerance float64
		lo, hi    float64
	}{
		{"no tolerance", [2]float64{1, 5}, 0, 1, 5},
		{"full tolerance", [2]float64{1, 5}, 100, 0, 10},
		{"half tolerance", [2]float64{2, 8}, 50, 1, 12},
		{"negative bound", [2]float64{-4, 4}, 50, -6, 6},
		{"zero bound", [2]float64{0, 10}, 10, 0, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := widen(tt.iv, tt.tolerance)
			assert.InDelta(t, tt.lo, lo, 1e-9)
			assert.InDelta(t, tt.hi, hi, 1e-9)
		})
	}
}

func TestRange_SelectNumber_Fixture(t *testing.T) {
	var values []float64
	k := fixtureKey(t, WithHandler(EventSpaceSelected, func(_ KeyEvent, _ *IdentificationKey, p any) {
		if v := p.(SpacePayload).Value; v != nil {
			values = append(values, *v)
		}
	}))

	require.True(t, k.SelectNumber(spaceHeight, 5))
	assert.Equal(t, flags(1, 1, 1, 0, 0, 1, 0, 0), k.PossibleNodes(), "boundary is inclusive")
	require.NoError(t, k.Verify())

	require.True(t, k.SelectNumber(spaceHeight, 5.01))
	assert.Equal(t, flags(1, 0, 1, 0, 0, 1, 0, 0), k.PossibleNodes())
	require.NoError(t, k.Verify())

	// a new value re-decides every node, including ones ruled out before
	require.True(t, k.SelectNumber(spaceHeight, 1.5))
	assert.Equal(t, flags(0, 1, 1, 0, 0, 0, 0, 0), k.PossibleNodes())
	assert.Equal(t, 1, k.Points()["n1"])
	assert.Zero(t, k.Points()["n0"])
	require.NoError(t, k.Verify())

	v, ok := k.Filter("f5").Value()
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
	assert.Equal(t, []float64{5, 5.01, 1.5}, values)

	assert.False(t, k.SelectNumber(spaceHeight, 1.5), "same value is a no-op")

	require.True(t, k.DeselectSpace(spaceHeight))
	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 1, 1), k.PossibleNodes())
	_, ok = k.Filter("f5").Value()
	assert.False(t, ok)
	require.NoError(t, k.Verify())
}

func TestRange_SelectSpaceWithoutValue(t *testing.T) {
	k := fixtureKey(t)
	assert.False(t, k.SelectSpace(spaceHeight))
	assert.False(t, k.Space(spaceHeight).IsSelected())
}

func TestRange_ValueOnDiscreteSpaceIgnored(t *testing.T) {
	k := fixtureKey(t)
	require.True(t, k.SelectNumber(spaceOpposite, 7))
	assert.True(t, k.Space(spaceOpposite).IsSelected())
	_, ok := k.Space(spaceOpposite).Value()
	assert.False(t, ok)
}

func TestRange_Tolerance(t *testing.T) {
	step := `{
	  "uuid": "k",
	  "children": [
	    {"uuid": "a", "maxPoints": 1, "space": {"h": [{"spaceIdentifier": "h:0", "encodedSpace": [1, 5]}]}},
	    {"uuid": "b", "maxPoints": 1, "space": {"h": [{"spaceIdentifier": "h:0", "encodedSpace": [20, 30]}]}}
	  ],
	  "matrixFilters": {
	    "h": {"uuid": "h", "type": "RangeFilter", "weight": 1,
	      "definition": {"min": 0, "max": 50, "step": 1, "tolerance": 100},
	      "space": [
	        {"spaceIdentifier": "h:0", "encodedSpace": [0, 50]},
	        {"spaceIdentifier": "h:1", "encodedSpace": [0, 60]}
	      ]}
	  }
	}`
	k := keyFromJSON(t, step)
	require.Len(t, k.Spaces(), 1, "a range filter holds a single space")
	assert.Equal(t, 100.0, k.Filter("h").Tolerance())

	k.SelectNumber(0, 10)
	assert.Equal(t, flags(1, 1), k.PossibleNodes(), "[1,5] widens to [0,10]; [20,30] to [0,60]")

	k.SelectNumber(0, 10.5)
	assert.Equal(t, flags(0, 1), k.PossibleNodes())

	k.SelectNumber(0, 60.5)
	assert.Equal(t, flags(0, 0), k.PossibleNodes())
	assert.True(t, k.Space(0).IsSelected())
	require.NoError(t, k.Verify())
}

func TestRange_MultipleIntervals(t *testing.T) {
	step := `{
	  "uuid": "k",
	  "children": [
	    {"uuid": "a", "maxPoints": 1, "space": {"h": [
	      {"spaceIdentifier": "h:0", "encodedSpace": [1, 2]},
	      {"spaceIdentifier": "h:0", "encodedSpace": [8, 9]}]}}
	  ],
	  "matrixFilters": {
	    "h": {"uuid": "h", "type": "RangeFilter", "weight": 1, "space": [
	      {"spaceIdentifier": "h:0", "encodedSpace": [0, 10]}]}
	  }
	}`
	k := keyFromJSON(t, step)

	k.SelectNumber(0, 8.5)
	assert.True(t, k.Nodes()[0].IsPossible())
	k.SelectNumber(0, 5)
	assert.False(t, k.Nodes()[0].IsPossible())
}

const rangeRestrictedStep = `{
  "uuid": "k",
  "children": [
    {"uuid": "x", "maxPoints": 3, "space": {
      "r": [{"spaceIdentifier": "r:0", "encodedSpace": [0, 10]}],
      "t": [{"spaceIdentifier": "t:0"}],
      "u": [{"spaceIdentifier": "u:0"}]}}
  ],
  "matrixFilters": {
    "r": {"uuid": "r", "type": "RangeFilter", "weight": 1, "space": [
      {"spaceIdentifier": "r:0", "encodedSpace": [0, 10]}]},
    "t": {"uuid": "t", "type": "TextOnlyFilter", "weight": 1, "isRestricted": true,
      "restrictions": {"r": [{"spaceIdentifier": "r:0", "encodedSpace": [2, 4]}]},
      "space": [{"spaceIdentifier": "t:0", "encodedSpace": "t"}]},
    "u": {"uuid": "u", "type": "TextOnlyFilter", "weight": 1, "isRestricted": true,
      "restrictions": {"r": [{"spaceIdentifier": "r:0", "encodedSpace": null}]},
      "space": [{"spaceIdentifier": "u:0", "encodedSpace": "u"}]}
  }
}`

func TestRange_Restriction(t *testing.T) {
	k := keyFromJSON(t, rangeRestrictedStep)
	assert.Equal(t, flags(1, 0, 0), k.VisibleFilters())

	k.SelectNumber(0, 3)
	assert.Equal(t, flags(1, 1, 1), k.VisibleFilters())
	require.NoError(t, k.Verify())

	k.SelectSpace(1)
	require.True(t, k.Space(1).IsSelected())

	// outside [2,4]: t hides and drops its selection, u accepts any value
	k.SelectNumber(0, 5)
	assert.Equal(t, flags(1, 0, 1), k.VisibleFilters())
	assert.False(t, k.Space(1).IsSelected())
	require.NoError(t, k.Verify())

	k.DeselectSpace(0)
	assert.Equal(t, flags(1, 0, 0), k.VisibleFilters())
	require.NoError(t, k.Verify())
}
