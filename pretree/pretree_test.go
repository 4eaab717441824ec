package pretree

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateHeightIsPowerOfTwoTimesFour(t *testing.T) {
	h := EstimateHeight(100)
	assert.Equal(t, 0, h%4)
}

func TestNonTerminalAssignsSequentialChildren(t *testing.T) {
	pt := New(EstimateHeight(10))
	lh, rh := pt.NonTerminal(0, 2, 1.5, 0.4, false)

	assert.Equal(t, 1, lh)
	assert.Equal(t, 2, rh)

	root := pt.Node(0)
	assert.Equal(t, lh, root.LHID)
	assert.Equal(t, 2, root.PredIdx)
	assert.InDelta(t, 1.5, root.SplitVal, 1e-9)

	leftChild := pt.Node(lh)
	assert.Equal(t, -1, leftChild.LHID)
}

func TestCheckStorageGrowsPastEstimate(t *testing.T) {
	pt := New(4)
	id := 0
	for i := 0; i < 10; i++ {
		lh, _ := pt.NonTerminal(id, 0, float64(i), 0.1, false)
		id = lh
	}
	require.Greater(t, pt.Height(), 4)
}

func TestRefineHeightDoublesUntilExceeding(t *testing.T) {
	pt := New(4)
	pt.RefineHeight(10)
	assert.Greater(t, pt.HeightEst(), 10)
}

func TestFacBitsRoundTrip(t *testing.T) {
	pt := New(EstimateHeight(10))
	bits := bitset.New(4)
	bits.Set(1)
	pt.SetFacBits(0, bits)

	got := pt.FacBits(0)
	require.NotNil(t, got)
	assert.True(t, got.Test(1))
	assert.False(t, got.Test(2))
}
