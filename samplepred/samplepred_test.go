package samplepred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/arborist/frame"
	"github.com/wlattner/arborist/sample"
)

func TestNewStagesInBagRowsInRankOrder(t *testing.T) {
	num := [][]float64{{5, 3, 1, 4, 2}}
	f := frame.New(num, nil, nil)
	resp := sample.NewRegressionResponse([]float64{50, 30, 10, 40, 20})

	bag := []sample.BagRow{{Row: 0, SCount: 1}, {Row: 2, SCount: 2}, {Row: 4, SCount: 1}}
	sp := New(f, bag, resp)

	cells := sp.NodeSlice(0, 0, len(sp.cur[0].Cells))
	require.Len(t, cells, 3)

	var ranks []int
	for _, c := range cells {
		ranks = append(ranks, c.Rank)
	}
	assert.IsIncreasing(t, ranks)
}

func TestRestagePartitionsLeftRight(t *testing.T) {
	num := [][]float64{{1, 2, 3, 4, 5}}
	f := frame.New(num, nil, nil)
	resp := sample.NewRegressionResponse([]float64{1, 2, 3, 4, 5})
	bag := []sample.BagRow{{Row: 0}, {Row: 1}, {Row: 2}, {Row: 3}, {Row: 4}}
	for i := range bag {
		bag[i].SCount = 1
	}
	sp := New(f, bag, resp)

	inLeft := map[int]bool{0: true, 1: true}
	ws, mid, we := sp.Restage(0, 0, 5, inLeft)
	assert.Equal(t, 0, ws)
	assert.Equal(t, 2, mid)
	assert.Equal(t, 5, we)

	sp.SwapLevel()
	left := sp.NodeSlice(0, ws, mid)
	right := sp.NodeSlice(0, mid, we)
	assert.Len(t, left, 2)
	assert.Len(t, right, 3)
}

func TestReplayAssignsNodeIDs(t *testing.T) {
	num := [][]float64{{1, 2, 3}}
	f := frame.New(num, nil, nil)
	resp := sample.NewRegressionResponse([]float64{1, 2, 3})
	bag := []sample.BagRow{{Row: 0, SCount: 1}, {Row: 1, SCount: 1}, {Row: 2, SCount: 1}}
	sp := New(f, bag, resp)

	assigned := make(map[int]int)
	sp.Replay(0, 0, 3, 7, func(sIdx, nodeID int) { assigned[sIdx] = nodeID })

	assert.Len(t, assigned, 3)
	for _, id := range assigned {
		assert.Equal(t, 7, id)
	}
}
