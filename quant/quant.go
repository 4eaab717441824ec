// Package quant implements Quant (spec.md component I, optional): quantile
// regression prediction from a forest whose leaves recorded the full set of
// bagged response ranks that landed there, rather than just their mean.
//
// Grounded on original_source/ArboristCore's pretree.cc QuantileFields /
// dectree.cc's Quant prediction path, which captures each leaf's rank
// multiset at PreTree-consume time. Build here instead reconstructs the same
// multiset after training completes, by replaying every tree's in-bag rows
// through the already-consumed Bundle (see Build's doc comment for why).
// A quantile is then read off by walking the combined multiset across every
// tree a row falls into, the out-of-bag-free analogue of averaging leaf
// means for point prediction.
package quant

import (
	"math"
	"sort"

	"github.com/wlattner/arborist/forest"
	"github.com/wlattner/arborist/frame"
)

// LeafRanks holds, per (tree, leaf) node, the response values of every
// bagged row that landed there — this is the quantile-prediction analogue
// of Bundle.Score's single mean value.
type LeafRanks struct {
	// values[globalNodeIdx] is the sorted list of response values bagged
	// into that leaf.
	values map[int][]float64
}

// NewLeafRanks builds an empty rank table; Build fills it after training by
// replaying in-bag rows through the trained Bundle.
func NewLeafRanks() *LeafRanks {
	return &LeafRanks{values: make(map[int][]float64)}
}

// Record appends one row's response value to leaf idx's multiset.
func (r *LeafRanks) Record(idx int, y float64) {
	r.values[idx] = append(r.values[idx], y)
}

// Finalize sorts every leaf's recorded values in place.
func (r *LeafRanks) Finalize() {
	for _, vs := range r.values {
		sort.Float64s(vs)
	}
}

// Build recomputes every leaf's bagged response multiset by replaying each
// tree's in-bag rows through the already-trained Bundle. This trades a
// second O(nTree*nRow) walk for not having to thread a rank-collection hook
// through the training loop's hot path — the training loop only ever needs
// to write the single leaf score forest.Bundle.Score already carries.
func Build(f *frame.Frame, b *forest.Bundle, y []float64) *LeafRanks {
	ranks := NewLeafRanks()
	for t := 0; t < b.NTree; t++ {
		for row := 0; row < f.NRow(); row++ {
			if !b.IsInBag(t, row) {
				continue
			}
			leaf := b.WalkLeaf(f, row, t)
			ranks.Record(leaf, y[row])
		}
	}
	ranks.Finalize()
	return ranks
}

// Predictor predicts a quantile of the response distribution for a row by
// pooling every tree's leaf rank multiset the row falls into.
type Predictor struct {
	b     *forest.Bundle
	ranks *LeafRanks
}

// NewPredictor pairs a trained Bundle with its leaf rank table.
func NewPredictor(b *forest.Bundle, ranks *LeafRanks) *Predictor {
	return &Predictor{b: b, ranks: ranks}
}

// PredictQuantile returns the q-th quantile (q in [0, 1]) of the pooled
// response distribution across every tree's leaf for row.
func (p *Predictor) PredictQuantile(f *frame.Frame, row int, q float64) float64 {
	var pooled []float64
	for t := 0; t < p.b.NTree; t++ {
		leaf := p.b.WalkLeaf(f, row, t)
		pooled = append(pooled, p.ranks.values[leaf]...)
	}
	if len(pooled) == 0 {
		return math.NaN()
	}
	sort.Float64s(pooled)

	pos := q * float64(len(pooled)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return pooled[lo]
	}
	frac := pos - float64(lo)
	return pooled[lo]*(1-frac) + pooled[hi]*frac
}
