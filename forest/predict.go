// Predict walks the packed Bundle for one or many rows, following
// original_source/ArboristCore's dectree.cc traversal exactly: numeric
// splits compare with <=, categorical splits test the row's factor level
// against the split's bitmap, and a zero LHBump marks a leaf.
package forest

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/wlattner/arborist/frame"
)

// WalkLeaf returns the leaf node index reached by row in tree, exported for
// the quant package's pooled-rank prediction, which needs the leaf index
// itself rather than Score's precomputed mean/vote.
func (b *Bundle) WalkLeaf(f *frame.Frame, row, tree int) int {
	return b.walk(f, row, tree)
}

// walk returns the leaf node index reached by row in tree.
func (b *Bundle) walk(f *frame.Frame, row, tree int) int {
	idx := b.Origin[tree]
	for b.LHBump[idx] != 0 {
		p := int(b.PredIdx[idx])
		bump := int(b.LHBump[idx])

		if !b.IsFac[idx] {
			if f.NumAt(row, p) <= b.SplitVal[idx] {
				idx += bump
			} else {
				idx += bump + 1
			}
			continue
		}

		level := f.FacAt(row, p)
		bits := b.FacSplitBits[b.FacBitIdx[idx]]
		if bits != nil && bits.Test(uint(level)) {
			idx += bump
		} else {
			idx += bump + 1
		}
	}
	return idx
}

// PredictRegressionRow returns the mean leaf score across every tree for
// row, or math.NaN() if useOOB is true and row was in-bag for every tree
// (spec.md §7's OOB-insufficient-bagging sentinel).
func (b *Bundle) PredictRegressionRow(f *frame.Frame, row int, useOOB bool) float64 {
	var sum float64
	treesSeen := 0

	for t := 0; t < b.NTree; t++ {
		if useOOB && b.IsInBag(t, row) {
			continue
		}
		leaf := b.walk(f, row, t)
		sum += b.Score[leaf]
		treesSeen++
	}

	if treesSeen == 0 {
		return math.NaN()
	}
	return sum / float64(treesSeen)
}

// PredictRegression predicts every row in f concurrently, bounded by
// concurrency in-flight goroutines (spec.md §5's row-parallel prediction).
func (b *Bundle) PredictRegression(ctx context.Context, f *frame.Frame, useOOB bool, concurrency int) ([]float64, error) {
	out := make([]float64, f.NRow())
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for row := 0; row < f.NRow(); row++ {
		row := row
		g.Go(func() error {
			out[row] = b.PredictRegressionRow(f, row, useOOB)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PredictClassificationRow returns the argmax vote across every tree for
// row, or -1 if useOOB is true and row was in-bag for every tree.
func (b *Bundle) PredictClassificationRow(f *frame.Frame, row int, useOOB bool) int {
	votes := make([]float64, b.CtgWidth)
	treesSeen := 0

	for t := 0; t < b.NTree; t++ {
		if useOOB && b.IsInBag(t, row) {
			continue
		}
		leaf := b.walk(f, row, t)
		ctg := int(b.Score[leaf])
		if ctg >= 0 && ctg < b.CtgWidth {
			votes[ctg]++
		}
		treesSeen++
	}

	if treesSeen == 0 {
		return -1
	}
	return argmax(votes)
}

func argmax(votes []float64) int {
	best := 0
	for i := 1; i < len(votes); i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	return best
}

// PredictClassification predicts every row in f concurrently, bounded by
// concurrency in-flight goroutines; it returns only the per-row predicted
// categories (see ConfusionMatrix for a confusion matrix).
func (b *Bundle) PredictClassification(ctx context.Context, f *frame.Frame, useOOB bool, concurrency int) ([]int, error) {
	out := make([]int, f.NRow())
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for row := 0; row < f.NRow(); row++ {
		row := row
		g.Go(func() error {
			out[row] = b.PredictClassificationRow(f, row, useOOB)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfusionMatrix builds an nClass x nClass matrix (rows == actual, cols ==
// predicted) from OOB predictions, matching wlattner-rf's oobCtr, but
// computed from the packed Bundle's walker rather than live tree.Classifier
// state.
func (b *Bundle) ConfusionMatrix(f *frame.Frame, actual []int) [][]int {
	m := make([][]int, b.CtgWidth)
	for i := range m {
		m[i] = make([]int, b.CtgWidth)
	}
	for row, a := range actual {
		p := b.PredictClassificationRow(f, row, true)
		if p < 0 {
			continue
		}
		m[a][p]++
	}
	return m
}

// Accuracy reports the fraction of correctly predicted OOB rows in m.
func Accuracy(m [][]int) float64 {
	var correct, total float64
	for i := range m {
		for j := range m[i] {
			total += float64(m[i][j])
			if i == j {
				correct += float64(m[i][j])
			}
		}
	}
	if total == 0 {
		return 0
	}
	return correct / total
}
