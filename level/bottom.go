// Package level implements Bottom, the level-synchronous coordinator
// (spec.md component E) used by one tree's growth: at each level it
// dispatches split search across every (splittable node, predictor) pair,
// picks the winner per node, and reports no split for any node once the
// level cap is reached. Restaging SamplePred for the children and looping
// until no node remains splittable are done by forest/train.go's growTree.
//
// wlattner-rf drives tree growth with a LIFO stack (tree/build.go's
// buildStack) that processes one node at a time; spec.md's level-synchronous
// design instead processes every splittable node at a given depth together,
// which is the natural fit for the bounded fan-out golang.org/x/sync/errgroup
// gives (hupe1980-vecgo uses the same package for its own fan-out stages).
package level

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wlattner/arborist/metrics"
	"github.com/wlattner/arborist/samplepred"
	"github.com/wlattner/arborist/split"
)

// PredictorSet chooses, per node, the subset of predictors considered for
// splitting (spec.md §6 cfg.predFixed / predProb): mtry-style feature
// subsampling.
type PredictorSet interface {
	Sample(nPred int) []int
}

// Node is one splittable node's bookkeeping: the [start, end) range of
// staged cells for every predictor, plus enough response summary to build
// an Accumulator.
type Node struct {
	ID         int
	Depth      int
	Start, End int // range within the *shared* per-predictor SamplePred buffer at this level
	// ParentInfo is the node's own impurity before any split, i.e. the
	// parentInfo term the admissibility rule gain > parentInfo*minRatio
	// scales (spec.md §4.D, ArboristCore's SSNode::minRatio).
	ParentInfo float64
	NewAccum   func() split.Accumulator
	MonoByPred map[int]split.MonoDir
}

// Result is the winning split for one node after searching all its sampled
// predictors, or Found == false if nothing cleared the info bar.
type Result struct {
	NodeID int
	Best   split.SSNode
	Found  bool
}

// Config bounds one level's search.
type Config struct {
	MinNode int
	// MinRatio is spec.md §6 cfg.minRatio: a split is admissible only if
	// gain > parentInfo*MinRatio (spec.md §4.D).
	MinRatio    float64
	MaxRunWidth int
	TotLevels   int // 0 == unbounded
	Concurrency int64
}

// Bottom coordinates one tree's level-by-level growth.
type Bottom struct {
	cfg  Config
	sp   *samplepred.SamplePred
	pred PredictorSet
	fac  map[int]bool // predictor index -> is categorical
	coll *metrics.Collector
}

// New builds a Bottom over a freshly staged SamplePred buffer. coll may be
// nil, in which case no metrics are reported.
func New(cfg Config, sp *samplepred.SamplePred, pred PredictorSet, facPredicates map[int]bool, coll *metrics.Collector) *Bottom {
	return &Bottom{cfg: cfg, sp: sp, pred: pred, fac: facPredicates, coll: coll}
}

// SearchLevel dispatches split search across every (node, sampled predictor)
// pair concurrently, bounded by cfg.Concurrency in-flight searches, and
// returns one Result per node.
//
// Predictor masks are drawn from b.pred sequentially, in node order, before
// any search goroutine starts: b.pred.Sample draws from the shared rng.Source
// (mutex-safe but not order-safe), so drawing it from inside the concurrent
// fan-out would make each node's mask depend on Go-scheduler timing rather
// than on the seed alone, breaking spec.md §8 property 6's determinism
// guarantee. Only the disjoint-write split search itself runs concurrently,
// matching spec.md §5's intent.
func (b *Bottom) SearchLevel(ctx context.Context, nodes []Node, nPred int) ([]Result, error) {
	if b.cfg.TotLevels > 0 && len(nodes) > 0 && nodes[0].Depth >= b.cfg.TotLevels {
		results := make([]Result, len(nodes))
		for i, n := range nodes {
			results[i] = Result{NodeID: n.ID}
		}
		return results, nil
	}

	masks := make([][]int, len(nodes))
	for i := range nodes {
		masks[i] = b.pred.Sample(nPred)
	}

	results := make([]Result, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(concurrency(b.cfg.Concurrency))

	for i, n := range nodes {
		i, n := i, n
		preds := masks[i]
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			results[i] = b.searchNode(n, preds)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func concurrency(n int64) int64 {
	if n <= 0 {
		return 1
	}
	return n
}

// searchNode searches the given, already-drawn predictor mask for node n;
// preds must come from a sequential call to b.pred.Sample (see SearchLevel).
func (b *Bottom) searchNode(n Node, preds []int) Result {
	candidates := make([]split.SSNode, 0, len(preds))

	for _, p := range preds {
		if b.coll != nil {
			b.coll.SplitSearches.Inc()
		}
		cells := b.sp.NodeSlice(p, n.Start, n.End)
		var res split.SSNode
		if b.fac[p] {
			res = split.SearchCategorical(cells, p, n.NewAccum, b.cfg.MinNode, b.cfg.MaxRunWidth)
		} else {
			mono := split.MonoNone
			if n.MonoByPred != nil {
				mono = n.MonoByPred[p]
			}
			res = split.SearchNumeric(cells, p, n.NewAccum, b.cfg.MinNode, mono)
		}
		candidates = append(candidates, res)
	}

	// Admissibility (spec.md §4.D, §8 property 3): gain must strictly exceed
	// parentInfo*MinRatio; a zero threshold still requires a strictly
	// positive gain, since a zero-gain split is never worth taking.
	minInfo := n.ParentInfo * b.cfg.MinRatio
	if minInfo <= 0 {
		minInfo = math.SmallestNonzeroFloat64
	}
	best, ok := split.ArgMax(candidates, minInfo)
	return Result{NodeID: n.ID, Best: best, Found: ok}
}

// InLeft classifies every staged sample index of the winning predictor's
// slice into the left child, needed by samplepred.Restage. Numeric splits
// send cells with PredVal <= SplitVal left; categorical splits send cells
// whose factor level is in winner.LeftLevels left.
func InLeft(cells []samplepred.Cell, winner split.SSNode, isCategorical bool) map[int]bool {
	inLeft := make(map[int]bool, len(cells))
	if isCategorical {
		for _, c := range cells {
			if winner.LeftLevels[int(c.PredVal)] {
				inLeft[c.SIdx] = true
			}
		}
		return inLeft
	}
	for _, c := range cells {
		if c.PredVal <= winner.SplitVal {
			inLeft[c.SIdx] = true
		}
	}
	return inLeft
}
