package level

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/arborist/frame"
	"github.com/wlattner/arborist/sample"
	"github.com/wlattner/arborist/samplepred"
	"github.com/wlattner/arborist/split"
)

type allPreds struct{}

func (allPreds) Sample(nPred int) []int {
	out := make([]int, nPred)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestSearchNodeFindsSplit(t *testing.T) {
	num := [][]float64{{1, 2, 3, 4}}
	f := frame.New(num, nil, nil)
	resp := sample.NewRegressionResponse([]float64{0, 0, 10, 10})
	bag := []sample.BagRow{{Row: 0, SCount: 1}, {Row: 1, SCount: 1}, {Row: 2, SCount: 1}, {Row: 3, SCount: 1}}
	sp := samplepred.New(f, bag, resp)

	b := &Bottom{
		cfg:  Config{MinNode: 1, MinRatio: 0, Concurrency: 2},
		sp:   sp,
		pred: allPreds{},
		fac:  map[int]bool{},
	}

	n := Node{
		ID:       0,
		Start:    0,
		End:      4,
		NewAccum: func() split.Accumulator { return split.NewVarAccumulator(20, 200, 4) },
	}

	res := b.searchNode(n, []int{0})
	require.True(t, res.Found)
	assert.Equal(t, 2, res.Best.LHIdxCount)
}

func TestInLeftNumeric(t *testing.T) {
	cells := []samplepred.Cell{
		{SIdx: 0, PredVal: 1},
		{SIdx: 1, PredVal: 2},
		{SIdx: 2, PredVal: 3},
	}
	winner := split.SSNode{SplitVal: 1.5}
	inLeft := InLeft(cells, winner, false)

	assert.True(t, inLeft[0])
	assert.False(t, inLeft[1])
	assert.False(t, inLeft[2])
}

func TestSearchNodeRejectsSplitBelowMinRatio(t *testing.T) {
	num := [][]float64{{1, 2, 3, 4}}
	f := frame.New(num, nil, nil)
	resp := sample.NewRegressionResponse([]float64{0, 0, 10, 10})
	bag := []sample.BagRow{{Row: 0, SCount: 1}, {Row: 1, SCount: 1}, {Row: 2, SCount: 1}, {Row: 3, SCount: 1}}
	sp := samplepred.New(f, bag, resp)

	newAccum := func() split.Accumulator { return split.NewVarAccumulator(20, 200, 4) }
	parentInfo := newAccum().NodeImpurity()
	require.Greater(t, parentInfo, 0.0)

	permissive := &Bottom{
		cfg:  Config{MinNode: 1, MinRatio: 0, Concurrency: 2},
		sp:   sp,
		pred: allPreds{},
		fac:  map[int]bool{},
	}
	n := Node{ID: 0, Start: 0, End: 4, ParentInfo: parentInfo, NewAccum: newAccum}
	res := permissive.searchNode(n, []int{0})
	require.True(t, res.Found)

	strict := &Bottom{
		cfg:  Config{MinNode: 1, MinRatio: 10, Concurrency: 2},
		sp:   sp,
		pred: allPreds{},
		fac:  map[int]bool{},
	}
	res = strict.searchNode(n, []int{0})
	assert.False(t, res.Found)
}

func TestSearchLevelRespectsTotLevels(t *testing.T) {
	b := &Bottom{cfg: Config{TotLevels: 2}, pred: allPreds{}, fac: map[int]bool{}}
	nodes := []Node{{ID: 0, Depth: 2}}
	res, err := b.SearchLevel(context.Background(), nodes, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.False(t, res[0].Found)
}
