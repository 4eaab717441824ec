package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/arborist/samplepred"
)

func regCells(vals, ys []float64) []samplepred.Cell {
	cells := make([]samplepred.Cell, len(vals))
	for i := range vals {
		cells[i] = samplepred.Cell{Rank: i, SIdx: i, PredVal: vals[i], YVal: ys[i], SCount: 1}
	}
	return cells
}

func totalVarStats(ys []float64) (sum, sumSq float64, n int) {
	for _, y := range ys {
		sum += y
		sumSq += y * y
	}
	return sum, sumSq, len(ys)
}

func TestSearchNumericFindsCleanBoundary(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6}
	ys := []float64{0, 0, 0, 10, 10, 10}
	cells := regCells(vals, ys)
	sum, sumSq, n := totalVarStats(ys)

	res := SearchNumeric(cells, 0, func() Accumulator { return NewVarAccumulator(sum, sumSq, n) }, 1, MonoNone)

	require.Greater(t, res.Info, 0.0)
	assert.Equal(t, 3, res.LHIdxCount)
	assert.InDelta(t, 3.5, res.SplitVal, 1e-9)
}

func TestSearchNumericRespectsMinNode(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	ys := []float64{0, 0, 10, 10}
	cells := regCells(vals, ys)
	sum, sumSq, n := totalVarStats(ys)

	res := SearchNumeric(cells, 0, func() Accumulator { return NewVarAccumulator(sum, sumSq, n) }, 3, MonoNone)
	assert.Equal(t, -1, res.SetIdx)
	assert.True(t, res.Info < 0 || res.LHIdxCount == 0)
}

func TestSearchNumericMonotoneIncreasingRejectsBadSplit(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	ys := []float64{10, 0, 10, 0} // non-monotone response
	cells := regCells(vals, ys)
	sum, sumSq, n := totalVarStats(ys)

	unconstrained := SearchNumeric(cells, 0, func() Accumulator { return NewVarAccumulator(sum, sumSq, n) }, 1, MonoNone)
	constrained := SearchNumeric(cells, 0, func() Accumulator { return NewVarAccumulator(sum, sumSq, n) }, 1, MonoInc)

	assert.True(t, constrained.Info <= unconstrained.Info)
}

func TestSearchCategoricalPacksByMean(t *testing.T) {
	cells := []samplepred.Cell{
		{PredVal: 0, YVal: 0, SCount: 1},
		{PredVal: 0, YVal: 0, SCount: 1},
		{PredVal: 1, YVal: 5, SCount: 1},
		{PredVal: 1, YVal: 5, SCount: 1},
		{PredVal: 2, YVal: 10, SCount: 1},
		{PredVal: 2, YVal: 10, SCount: 1},
	}
	totalCounts := []int{2, 2, 2}
	res := SearchCategorical(cells, 0, func() Accumulator { return NewVarAccumulator(30, 250, 6) }, 1, 10)
	_ = totalCounts

	// with 3 well-separated levels a boundary should be found between the
	// lowest level and the rest, or between the top two.
	assert.Contains(t, []int{1, 2}, res.SetIdx)
}

func TestArgMaxRejectsBelowThreshold(t *testing.T) {
	candidates := []SSNode{
		{PredIdx: 0, Info: 0.1},
		{PredIdx: 1, Info: 0.05},
	}
	_, ok := ArgMax(candidates, 0.2)
	assert.False(t, ok)

	best, ok := ArgMax(candidates, 0.05)
	require.True(t, ok)
	assert.Equal(t, 0, best.PredIdx)
}
