package natureguide

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureKeyID = "k-root"

// Flat space indices of the meadow fixture.
const (
	spaceOpposite   = 0
	spaceAlternate  = 1
	spaceRadial     = 2
	spaceBilateral  = 3
	spaceYellow     = 4
	spaceWhite      = 5
	spaceMeadow     = 6
	spaceForest     = 7
	spaceThreePetal = 8
	spaceSixPetal   = 9
	spaceHeight     = 10
	spaceBellis     = 11
	spaceViola      = 12
)

func loadFixture(t *testing.T) *NatureGuide {
	t.Helper()
	data, err := os.ReadFile("testdata/meadow_guide.json")
	require.NoError(t, err)
	g, err := Parse(data)
	require.NoError(t, err)
	return g
}

func fixtureKey(t *testing.T, opts ...Option) *IdentificationKey {
	t.Helper()
	k, err := loadFixture(t).GetIdentificationKey(fixtureKeyID, opts...)
	require.NoError(t, err)
	return k
}

// keyFromJSON builds a key from a single raw step.
func keyFromJSON(t *testing.T, step string, opts ...Option) *IdentificationKey {
	t.Helper()
	var data StepData
	require.NoError(t, json.Unmarshal([]byte(step), &data))
	k, err := NewIdentificationKey(data, opts...)
	require.NoError(t, err)
	return k
}

// guideFromStep wraps one raw step into a guide document.
func guideFromStep(t *testing.T, uuid, step string) *NatureGuide {
	t.Helper()
	g, err := Parse([]byte(`{"uuid":"g","startNodeUuid":"` + uuid + `","tree":{"` + uuid + `":` + step + `}}`))
	require.NoError(t, err)
	return g
}

func uuids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.UUID
	}
	return out
}

func flags(bits ...int) []bool {
	out := make([]bool, len(bits))
	for i, b := range bits {
		out[i] = b == 1
	}
	return out
}
