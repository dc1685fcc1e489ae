package natureguide

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Fixture(t *testing.T) {
	g := loadFixture(t)

	assert.Equal(t, "g-meadow", g.UUID)
	assert.Equal(t, "Meadow Guide", g.Name)
	assert.Equal(t, "k-root", g.StartNodeUUID)
	assert.Equal(t, []string{"k-root", "n7"}, g.KeyIDs())
	require.NotNil(t, g.Options.ResultAction)
	assert.Equal(t, "TaxonProfiles", g.Options.ResultAction.Feature)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"tree": [1, 2]}`))
	assert.Error(t, err)
}

func TestGetIdentificationKey_NotFound(t *testing.T) {
	_, err := loadFixture(t).GetIdentificationKey("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestGetIdentificationKey_FreshInstances(t *testing.T) {
	g := loadFixture(t)
	a, err := g.GetIdentificationKey(fixtureKeyID)
	require.NoError(t, err)
	b, err := g.GetIdentificationKey(fixtureKeyID)
	require.NoError(t, err)

	a.SelectSpace(spaceOpposite)
	assert.Equal(t, flags(1, 1, 1, 1, 1, 1, 1, 1), b.PossibleNodes())
	assert.False(t, b.Space(spaceOpposite).IsSelected())
}

func TestGetIdentificationKey_UnknownFilterType(t *testing.T) {
	g := guideFromStep(t, "k", `{
	  "uuid": "k",
	  "children": [],
	  "matrixFilters": {"f": {"uuid": "f", "type": "SoundFilter", "space": []}}
	}`)
	_, err := g.GetIdentificationKey("k")
	assert.ErrorIs(t, err, ErrUnknownFilterType)
}

func TestGetIdentificationKey_Invalid(t *testing.T) {
	tests := []struct {
		name string
		step string
	}{
		{"negative weight", `{"uuid": "k", "children": [],
		  "matrixFilters": {"f": {"type": "TextOnlyFilter", "weight": -1, "space": []}}}`},
		{"space without identifier", `{"uuid": "k", "children": [],
		  "matrixFilters": {"f": {"type": "TextOnlyFilter", "space": [{"encodedSpace": "x"}]}}}`},
		{"child without uuid", `{"uuid": "k", "children": [{"name": "nameless"}], "matrixFilters": {}}`},
		{"negative max points", `{"uuid": "k", "children": [{"uuid": "a", "maxPoints": -2}], "matrixFilters": {}}`},
		{"filters not an object", `{"uuid": "k", "children": [], "matrixFilters": [{"uuid": "f"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guideFromStep(t, "k", tt.step).GetIdentificationKey("k")
			assert.ErrorIs(t, err, ErrInvalidStep)
		})
	}
}

func TestGetIdentificationKey_FilterUUIDFromMapKey(t *testing.T) {
	g := guideFromStep(t, "k", `{"uuid": "k", "children": [],
	  "matrixFilters": {"f": {"type": "TextOnlyFilter", "space": [{"spaceIdentifier": "f:0"}]}}}`)
	k, err := g.GetIdentificationKey("k")
	require.NoError(t, err)
	require.NotNil(t, k.Filter("f"))
	assert.Equal(t, 0, k.Filter("f").Index)
}

func TestGetIdentificationKey_UnresolvableRestrictions(t *testing.T) {
	k := keyFromJSON(t, `{
	  "uuid": "k",
	  "children": [{"uuid": "a", "space": {}}],
	  "matrixFilters": {
	    "f": {"uuid": "f", "type": "TextOnlyFilter", "space": [{"spaceIdentifier": "f:0"}]},
	    "g": {"uuid": "g", "type": "TextOnlyFilter", "isRestricted": true,
	      "restrictions": {
	        "zz": [{"spaceIdentifier": "zz:0"}],
	        "f": [{"spaceIdentifier": "f:9"}]
	      },
	      "space": [{"spaceIdentifier": "g:0"}]}
	  }
	}`)
	assert.Equal(t, flags(1, 1), k.VisibleFilters())
	assert.Equal(t, [][][]int{{}, {}}, k.FilterVisibilityRestrictions())
	assert.True(t, k.Filter("g").IsRestricted())
}

func TestGetIdentificationKey_RestrictionGroups(t *testing.T) {
	// h needs (a0 or a1) and b0
	k := keyFromJSON(t, `{
	  "uuid": "k",
	  "children": [{"uuid": "n", "space": {}}],
	  "matrixFilters": {
	    "a": {"uuid": "a", "type": "TextOnlyFilter", "allowMultipleValues": true, "space": [
	      {"spaceIdentifier": "a:0"}, {"spaceIdentifier": "a:1"}]},
	    "b": {"uuid": "b", "type": "TextOnlyFilter", "space": [{"spaceIdentifier": "b:0"}]},
	    "h": {"uuid": "h", "type": "TextOnlyFilter", "isRestricted": true,
	      "restrictions": {
	        "a": [{"spaceIdentifier": "a:0"}, {"spaceIdentifier": "a:1"}],
	        "b": [{"spaceIdentifier": "b:0"}]
	      },
	      "space": [{"spaceIdentifier": "h:0"}]}
	  }
	}`)
	assert.Equal(t, [][]int{{0, 1}, {2}}, k.FilterVisibilityRestrictions()[2])
	h := k.Filter("h")

	k.SelectSpace(1)
	assert.False(t, h.IsVisible())
	k.SelectSpace(2)
	assert.True(t, h.IsVisible())
	k.SelectSpace(0)
	k.DeselectSpace(1)
	assert.True(t, h.IsVisible(), "a0 still lifts the first group")
	k.DeselectSpace(0)
	assert.False(t, h.IsVisible())
	require.NoError(t, k.Verify())
}

func TestStartKeyAndSlug(t *testing.T) {
	g := loadFixture(t)

	start, err := g.StartKey()
	require.NoError(t, err)
	assert.Equal(t, "k-root", start.UUID)

	sub, err := g.KeyBySlug("asteraceae")
	require.NoError(t, err)
	assert.Equal(t, "n7", sub.UUID)

	_, err = g.KeyBySlug("no-such-slug")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestKeyBySlug_FallsBackToStepSlug(t *testing.T) {
	g := guideFromStep(t, "k", `{"uuid": "k", "slug": "only-in-step", "children": [], "matrixFilters": {}}`)
	k, err := g.KeyBySlug("only-in-step")
	require.NoError(t, err)
	assert.Equal(t, "k", k.UUID)
}

func TestDescend(t *testing.T) {
	g := loadFixture(t)
	root := fixtureKey(t)

	sub, err := g.Descend(root.Nodes()[7])
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, sub.Mode())
	assert.Len(t, sub.Nodes(), 2)

	_, err = g.Descend(root.Nodes()[0])
	assert.ErrorIs(t, err, ErrNotAKey)
}

func TestOrderedMap_KeepsDocumentOrder(t *testing.T) {
	var m OrderedMap[int]
	require.NoError(t, json.Unmarshal([]byte(`{"z": 1, "a": 2, "m": 3}`), &m))
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z": 1, "a": 2, "m": 3}`, string(out))
	assert.Equal(t, `{"z":1,"a":2,"m":3}`, string(out))
}

func TestOrderedMap_EmptyForms(t *testing.T) {
	for _, doc := range []string{`[]`, `null`, `{}`} {
		var m OrderedMap[string]
		require.NoError(t, json.Unmarshal([]byte(doc), &m), doc)
		assert.Zero(t, m.Len(), doc)
	}
	var m OrderedMap[string]
	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &m))
}
