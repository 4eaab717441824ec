// Package sample implements the bootstrap Sampler (spec.md component B): it
// draws the in-bag row multiset for one tree and packages the per-row
// response values the rest of the pipeline consumes as opaque data.
//
// The uniform draw-with-replacement loop is wlattner-rf's bootstrapInx
// (forest/forest.go), generalized to optional weighting and to draws without
// replacement; the RNG is threaded in via internal/rng.Source rather than
// called directly against math/rand, since spec.md treats the generator as
// an external collaborator.
package sample

import (
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/wlattner/arborist/internal/rng"
)

// BagRow records that row was drawn sCount times into the current tree's
// bootstrap sample. sCount >= 1; rows never drawn do not appear.
type BagRow struct {
	Row    int
	SCount int
}

// Response is the tagged response variant fed to the split search and to
// leaf-score assignment. Exactly one of Reg or Ctg is non-nil.
type Response struct {
	Reg *RegressionResponse
	Ctg *ClassificationResponse
}

// RegressionResponse holds a real-valued target per row.
type RegressionResponse struct {
	Y []float64
}

// ClassificationResponse holds a categorical target per row, encoded as
// [0, CtgWidth), plus the proxy score (spec.md §4.D numeric-split-on-category
// note) used to run-order factor levels during categorical split search.
type ClassificationResponse struct {
	YCtg     []int
	CtgWidth int
	YProxy   []float64
}

// NewRegressionResponse wraps a real-valued target vector.
func NewRegressionResponse(y []float64) Response {
	return Response{Reg: &RegressionResponse{Y: y}}
}

// NewClassificationResponse wraps a categorical target vector. yProxy is a
// per-row real-valued proxy (e.g. class mean of a held-out numeric predictor)
// used to impose an ordering on factor levels during categorical splitting;
// callers that have no such proxy may pass nil, in which case run-packing
// falls back to a stable identity ordering.
func NewClassificationResponse(yCtg []int, ctgWidth int, yProxy []float64) Response {
	return Response{Ctg: &ClassificationResponse{YCtg: yCtg, CtgWidth: ctgWidth, YProxy: yProxy}}
}

// Sampler draws the bootstrap sample for each tree in the forest.
type Sampler struct {
	nRow            int
	nSamp           int
	withReplacement bool
	weights         []float64 // cumulative sum, len == nRow, nil for uniform
	rng             rng.Source
}

// New builds a Sampler over nRow observations. nSamp is the number of draws
// per tree (spec.md §6 cfg.nSamp); weights, if non-nil, must have length
// nRow and need not be normalized.
func New(nRow, nSamp int, withReplacement bool, weights []float64, source rng.Source) *Sampler {
	s := &Sampler{
		nRow:            nRow,
		nSamp:           nSamp,
		withReplacement: withReplacement,
		rng:             source,
	}
	if weights != nil {
		s.weights = cumulative(weights)
	}
	return s
}

func cumulative(w []float64) []float64 {
	out := make([]float64, len(w))
	var sum float64
	for i, v := range w {
		sum += v
		out[i] = sum
	}
	return out
}

// draw returns one row index per the sampler's weighting scheme.
func (s *Sampler) draw() int {
	if s.weights == nil {
		return s.rng.Intn(s.nRow)
	}
	total := s.weights[len(s.weights)-1]
	target := s.rng.Uniform(1)[0] * total
	// smallest i such that weights[i] >= target
	lo, hi := 0, len(s.weights)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if s.weights[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Sample draws one tree's bootstrap multiset, returning the packed BagRow
// list (row-ascending, spec.md §3) and the in-bag membership bitset over
// [0, nRow).
func (s *Sampler) Sample() ([]BagRow, *bitset.BitSet) {
	counts := make(map[int]int, s.nSamp)
	inBag := bitset.New(uint(s.nRow))

	if s.withReplacement {
		for i := 0; i < s.nSamp; i++ {
			row := s.draw()
			counts[row]++
			inBag.Set(uint(row))
		}
	} else {
		seen := make(map[int]bool, s.nSamp)
		drawn := 0
		for drawn < s.nSamp && drawn < s.nRow {
			row := s.draw()
			if seen[row] {
				continue
			}
			seen[row] = true
			counts[row] = 1
			inBag.Set(uint(row))
			drawn++
		}
	}

	rows := make([]BagRow, 0, len(counts))
	for row, c := range counts {
		rows = append(rows, BagRow{Row: row, SCount: c})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Row < rows[j].Row })

	return rows, inBag
}
