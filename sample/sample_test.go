package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/arborist/internal/rng"
)

func TestSampleWithReplacementCoversRows(t *testing.T) {
	s := New(10, 10, true, nil, rng.New(1))
	rows, inBag := s.Sample()

	require.NotEmpty(t, rows)
	total := 0
	for _, r := range rows {
		require.GreaterOrEqual(t, r.SCount, 1)
		total += r.SCount
	}
	assert.Equal(t, 10, total)

	for _, r := range rows {
		assert.True(t, inBag.Test(uint(r.Row)))
	}
}

func TestSampleWithoutReplacementNoDuplicates(t *testing.T) {
	s := New(20, 8, false, nil, rng.New(2))
	rows, _ := s.Sample()

	require.Len(t, rows, 8)
	for _, r := range rows {
		assert.Equal(t, 1, r.SCount)
	}
}

func TestSampleWeightedFavorsHeavyRows(t *testing.T) {
	weights := make([]float64, 10)
	for i := range weights {
		weights[i] = 1
	}
	weights[0] = 1000

	s := New(10, 200, true, weights, rng.New(3))
	rows, _ := s.Sample()

	var heavy int
	for _, r := range rows {
		if r.Row == 0 {
			heavy = r.SCount
		}
	}
	assert.Greater(t, heavy, 100)
}

func TestNewClassificationResponse(t *testing.T) {
	resp := NewClassificationResponse([]int{0, 1, 0}, 2, nil)
	require.NotNil(t, resp.Ctg)
	assert.Nil(t, resp.Reg)
	assert.Equal(t, 2, resp.Ctg.CtgWidth)
}
