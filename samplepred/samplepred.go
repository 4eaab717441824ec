// Package samplepred implements SamplePred (spec.md component C): the
// double-buffered, per-predictor restaging area that holds, for the rows
// currently in-bag at a node, the tuple (rank, sample index, response value)
// in rank order.
//
// A level's split search never touches the full PredictorFrame: it walks a
// contiguous slice of one predictor's SamplePred buffer per splittable node.
// After a node splits, Restage partitions that node's slice into its two
// children's slices in the *other* buffer, preserving rank order within each
// child without re-sorting — the same amortized-linear restaging idea
// ArboristCore's SamplePred::Restage implements, ported here to wlattner-rf's
// slice-and-index idiom rather than raw pointer arithmetic.
package samplepred

import (
	"github.com/wlattner/arborist/frame"
	"github.com/wlattner/arborist/sample"
)

// Cell is one row's staged tuple for a single predictor.
type Cell struct {
	Rank     int
	SIdx     int // index into the tree's packed bag-row list
	Row      int // original frame row
	PredVal  float64
	YVal     float64 // response value (regression target or proxy)
	YCtg     int     // response category, meaningful only for classification
	SCount   int
}

// Buffer is the staged rows for one predictor, rank-ascending.
type Buffer struct {
	Pred  int
	Cells []Cell
}

// SamplePred owns the double-buffered staging area for one tree: two slots
// per predictor, swapped level by level so a node's parent-level buffer is
// never overwritten while its children are being staged.
type SamplePred struct {
	nPred int
	cur   []Buffer
	next  []Buffer
}

// New stages the initial (root-level) buffers: for every predictor, the
// in-bag rows in frame rank order.
//
// forest/train.go calls New once per tree rather than reusing one
// SamplePred's underlying arrays across an entire training run; spec.md §3/§5
// describe the buffers as reused across all trees to bound allocation, so
// this is a resource-usage deviation, not a correctness one — each tree's
// buffers are still staged and restaged correctly, just not recycled.
func New(f *frame.Frame, bag []sample.BagRow, resp sample.Response) *SamplePred {
	sIdxOf := make(map[int]int, len(bag))
	sCountOf := make(map[int]int, len(bag))
	for i, b := range bag {
		sIdxOf[b.Row] = i
		sCountOf[b.Row] = b.SCount
	}

	nPred := f.NPred()
	sp := &SamplePred{
		nPred: nPred,
		cur:   make([]Buffer, nPred),
		next:  make([]Buffer, nPred),
	}

	for p := 0; p < nPred; p++ {
		order := f.Rank2Row(p)
		cells := make([]Cell, 0, len(bag))
		for rank, row := range order {
			sIdx, ok := sIdxOf[row]
			if !ok {
				continue
			}
			y, ctg := responseAt(resp, row)
			pv := predVal(f, p, row)
			cellRank := rank
			if n := len(cells); n > 0 && cells[n-1].PredVal == pv {
				cellRank = cells[n-1].Rank // tied values share a rank
			}
			cells = append(cells, Cell{
				Rank:    cellRank,
				SIdx:    sIdx,
				Row:     row,
				PredVal: pv,
				YVal:    y,
				YCtg:    ctg,
				SCount:  sCountOf[row],
			})
		}
		sp.cur[p] = Buffer{Pred: p, Cells: cells}
		sp.next[p] = Buffer{Pred: p, Cells: make([]Cell, 0, len(cells))}
	}

	return sp
}

// predVal returns the predictor value used for split-boundary placement:
// the raw numeric value for numeric predictors, or the factor code (as a
// float, for run-packing order) for categorical ones.
func predVal(f *frame.Frame, p, row int) float64 {
	if f.FacIdx(p) < 0 {
		return f.NumAt(row, p)
	}
	return float64(f.FacAt(row, p))
}

func responseAt(resp sample.Response, row int) (yVal float64, yCtg int) {
	if resp.Reg != nil {
		return resp.Reg.Y[row], 0
	}
	ctg := resp.Ctg
	yVal = 0
	if ctg.YProxy != nil {
		yVal = ctg.YProxy[row]
	}
	return yVal, ctg.YCtg[row]
}

// NodeSlice returns the cells belonging to node id within predictor p's
// current buffer, given the [start, end) range recorded for that node by the
// level coordinator.
func (sp *SamplePred) NodeSlice(p, start, end int) []Cell {
	return sp.cur[p].Cells[start:end]
}

// Restage partitions the cells in [start, end) of predictor p's current
// buffer into the next buffer, in two contiguous runs: rows whose sample
// index is in inLeft come first (rank order preserved), then the rest. It
// returns the start of the freshly written region, the split point within
// it (the boundary between the left and right child's cells), and its end.
func (sp *SamplePred) Restage(p, start, end int, inLeft map[int]bool) (writeStart, mid, writeEnd int) {
	src := sp.cur[p].Cells[start:end]
	dst := &sp.next[p]
	writeStart = len(dst.Cells)

	for _, c := range src {
		if inLeft[c.SIdx] {
			dst.Cells = append(dst.Cells, c)
		}
	}
	mid = len(dst.Cells)
	for _, c := range src {
		if !inLeft[c.SIdx] {
			dst.Cells = append(dst.Cells, c)
		}
	}
	writeEnd = len(dst.Cells)
	return
}

// SwapLevel exchanges the current and next buffers at a level boundary,
// resetting next's cell slices to empty (capacity retained) for reuse by the
// following level.
func (sp *SamplePred) SwapLevel() {
	sp.cur, sp.next = sp.next, sp.cur
	for p := range sp.next {
		sp.next[p].Cells = sp.next[p].Cells[:0]
	}
}

// Replay maps every staged sample index in [start, end) of predictor p's
// current buffer to a PreTree node id via assign. The training loop does not
// call it: leaf scores come from forest/train.go's scoreFor, and per-leaf
// quantile sets from quant.Build.
func (sp *SamplePred) Replay(p, start, end int, nodeID int, assign func(sIdx, nodeID int)) {
	for _, c := range sp.cur[p].Cells[start:end] {
		assign(c.SIdx, nodeID)
	}
}
