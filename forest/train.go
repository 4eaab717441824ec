// train.go implements the Trainer shell (spec.md component J): it drives
// Sampler, SamplePred, Bottom and PreTree for every tree and consumes each
// finished PreTree into the shared Bundle arrays, following
// original_source/ArboristCore's train.h Block/BlockTree orchestration and
// wlattner-rf's channel-based worker pool (forest/forest.go's Fit) for the
// concurrent-tree-growth part of it. Tree indices are handed one at a time
// to cfg.NumWorkers workers; cfg.TrainBlock is validated but does not group
// trees into batches.
package forest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/wlattner/arborist/frame"
	"github.com/wlattner/arborist/internal/rng"
	"github.com/wlattner/arborist/level"
	"github.com/wlattner/arborist/metrics"
	"github.com/wlattner/arborist/pretree"
	"github.com/wlattner/arborist/rfconfig"
	"github.com/wlattner/arborist/sample"
	"github.com/wlattner/arborist/samplepred"
	"github.com/wlattner/arborist/split"
)

// mtrySet is spec.md §6's predFixed / predProb feature-subsampling scheme,
// implementing level.PredictorSet.
type mtrySet struct {
	predFixed int
	predProb  []float64
	rng       rng.Source
}

func (m *mtrySet) Sample(nPred int) []int {
	if m.predFixed <= 0 || m.predFixed >= nPred {
		out := make([]int, nPred)
		for i := range out {
			out[i] = i
		}
		return out
	}

	weights := m.predProb
	if weights == nil {
		weights = make([]float64, nPred)
		for i := range weights {
			weights[i] = 1
		}
	}

	type wp struct {
		idx int
		key float64
	}
	draws := m.rng.Uniform(nPred)
	items := make([]wp, nPred)
	for i := range items {
		w := weights[i]
		if w <= 0 {
			w = 1e-12
		}
		items[i] = wp{idx: i, key: math.Pow(draws[i], 1/w)}
	}
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].key > items[j-1].key; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}

	out := make([]int, m.predFixed)
	for i := 0; i < m.predFixed; i++ {
		out[i] = items[i].idx
	}
	return out
}

// TrainRegression grows an ensemble against a real-valued target y, per
// spec.md §6.
func TrainRegression(ctx context.Context, f *frame.Frame, y []float64, cfg *rfconfig.Config, coll *metrics.Collector) (*Bundle, error) {
	if err := cfg.Validate(f.NRow(), f.NPred()); err != nil {
		return nil, err
	}

	newAccum, err := regressionAccumFactory(y)
	if err != nil {
		return nil, err
	}

	scoreFor := func(cells []samplepred.Cell) float64 {
		var sum float64
		var n int
		for _, c := range cells {
			sum += float64(c.SCount) * c.YVal
			n += c.SCount
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}

	b, err := trainCommon(ctx, f, sample.NewRegressionResponse(y), cfg, coll, newAccum, scoreFor)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func regressionAccumFactory(y []float64) (func([]samplepred.Cell) split.Accumulator, error) {
	if len(y) == 0 {
		return nil, fmt.Errorf("forest: empty response")
	}
	return func(cells []samplepred.Cell) split.Accumulator {
		var sum, sumSq float64
		var n int
		for _, c := range cells {
			w := float64(c.SCount)
			sum += w * c.YVal
			sumSq += w * c.YVal * c.YVal
			n += c.SCount
		}
		return split.NewVarAccumulator(sum, sumSq, n)
	}, nil
}

// TrainClassification grows an ensemble against a categorical target yCtg
// with ctgWidth distinct levels, per spec.md §6.
func TrainClassification(ctx context.Context, f *frame.Frame, yCtg []int, ctgWidth int, classMap []string, cfg *rfconfig.Config, coll *metrics.Collector) (*Bundle, error) {
	if err := cfg.Validate(f.NRow(), f.NPred()); err != nil {
		return nil, err
	}

	yProxy := make([]float64, len(yCtg))
	for i, c := range yCtg {
		yProxy[i] = float64(c)
	}
	resp := sample.NewClassificationResponse(yCtg, ctgWidth, yProxy)

	newAccum := func(cells []samplepred.Cell) split.Accumulator {
		counts := make([]int, ctgWidth)
		var n int
		for _, c := range cells {
			counts[c.YCtg] += c.SCount
			n += c.SCount
		}
		return split.NewGiniAccumulator(counts, n)
	}

	scoreFor := func(cells []samplepred.Cell) float64 {
		counts := make([]int, ctgWidth)
		for _, c := range cells {
			counts[c.YCtg] += c.SCount
		}
		best, bestN := 0, -1
		for ctg, n := range counts {
			if n > bestN {
				best, bestN = ctg, n
			}
		}
		return float64(best)
	}

	b, err := trainCommon(ctx, f, resp, cfg, coll, newAccum, scoreFor)
	if err != nil {
		return nil, err
	}
	b.CtgWidth = ctgWidth
	b.ClassMap = classMap
	return b, nil
}

// trainCommon is shared by TrainRegression/TrainClassification: it differs
// only in how a node's Accumulator and leaf score are derived from the
// response.
func trainCommon(
	ctx context.Context,
	f *frame.Frame,
	resp sample.Response,
	cfg *rfconfig.Config,
	coll *metrics.Collector,
	newAccumFor func([]samplepred.Cell) split.Accumulator,
	scoreFor func([]samplepred.Cell) float64,
) (*Bundle, error) {
	start := time.Now()
	if coll != nil {
		defer func() { coll.TrainDuration.Observe(time.Since(start).Seconds()) }()
	}

	nRow, nPred := f.NRow(), f.NPred()

	facPredicates := make(map[int]bool, f.NPredFac())
	facCard := make([]uint32, nPred)
	for p := f.NPredNum(); p < nPred; p++ {
		facPredicates[p] = true
		facCard[p] = f.FacCard(f.FacIdx(p))
	}

	source := rng.New(cfg.Seed)
	sampler := sample.New(nRow, cfg.EffectiveNSamp(nRow), cfg.WithReplacement, cfg.SampleWeight, source)

	b := &Bundle{
		NTree:    cfg.NTree,
		NRow:     nRow,
		NPred:    nPred,
		Origin:   make([]int, cfg.NTree),
		InBag:    bitset.New(uint(cfg.NTree * nRow)),
		PredInfo: make([]float64, nPred),
		FacCard:  facCard,
	}

	var mu sync.Mutex
	// heightEst is shared and refined after every tree (pretree.cc:
	// PreTree::RefineHeight), so later trees in the same run start their
	// node vector close to the size the run has actually needed so far,
	// spec.md §4.F's carry-over requirement.
	heightEst := pretree.EstimateHeight(cfg.EffectiveNSamp(nRow))

	type treeResult struct {
		idx int
		pt  *pretree.PreTree
		bag []sample.BagRow
	}

	results := make([]treeResult, cfg.NTree)
	in := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for t := range in {
			bag, inBag := sampler.Sample()

			mu.Lock()
			for i := uint(0); i < inBag.Len(); i++ {
				if inBag.Test(i) {
					b.SetInBag(t, int(i))
				}
			}
			curHeightEst := heightEst
			mu.Unlock()

			pt := growTree(ctx, f, bag, resp, cfg, source, facPredicates, newAccumFor, scoreFor, curHeightEst, coll)
			results[t] = treeResult{idx: t, pt: pt, bag: bag}

			mu.Lock()
			if pt.HeightEst() > heightEst {
				heightEst = pt.HeightEst()
			}
			mu.Unlock()

			if coll != nil {
				coll.TreesFitted.Inc()
			}
		}
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker()
	}
	for t := 0; t < cfg.NTree; t++ {
		in <- t
	}
	close(in)
	wg.Wait()

	for _, r := range results {
		consumeTree(b, r.idx, r.pt)
	}

	if coll != nil {
		if oobErr, err := oobError(ctx, b, f, resp); err == nil {
			coll.OOBError.Set(oobErr)
		}
	}

	return b, nil
}

// oobError computes the out-of-bag error for a just-trained Bundle: mean
// squared error for regression, misclassification rate for classification.
// Rows never left out of any tree's bag (spec.md §7's prediction anomaly)
// are skipped rather than counted as wrong.
func oobError(ctx context.Context, b *Bundle, f *frame.Frame, resp sample.Response) (float64, error) {
	if resp.Reg != nil {
		preds, err := b.PredictRegression(ctx, f, true, 1)
		if err != nil {
			return 0, err
		}
		var sumSq float64
		var n int
		for i, p := range preds {
			if math.IsNaN(p) {
				continue
			}
			d := p - resp.Reg.Y[i]
			sumSq += d * d
			n++
		}
		if n == 0 {
			return 0, nil
		}
		return sumSq / float64(n), nil
	}

	preds, err := b.PredictClassification(ctx, f, true, 1)
	if err != nil {
		return 0, err
	}
	var wrong, n int
	for i, p := range preds {
		if p < 0 {
			continue
		}
		if p != resp.Ctg.YCtg[i] {
			wrong++
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return float64(wrong) / float64(n), nil
}

// growTree runs one tree's level-by-level growth to completion, returning
// the finished PreTree.
func growTree(
	ctx context.Context,
	f *frame.Frame,
	bag []sample.BagRow,
	resp sample.Response,
	cfg *rfconfig.Config,
	source rng.Source,
	facPredicates map[int]bool,
	newAccumFor func([]samplepred.Cell) split.Accumulator,
	scoreFor func([]samplepred.Cell) float64,
	heightEst int,
	coll *metrics.Collector,
) *pretree.PreTree {
	sp := samplepred.New(f, bag, resp)
	pt := pretree.New(heightEst)

	pred := &mtrySet{predFixed: cfg.PredFixed, predProb: cfg.PredProb, rng: source}
	bot := level.New(level.Config{
		MinNode:     cfg.MinNode,
		MinRatio:    cfg.MinRatio,
		MaxRunWidth: cfg.MaxRunWidth,
		TotLevels:   cfg.TotLevels,
		Concurrency: 4,
	}, sp, pred, facPredicates, coll)

	monoByPred := monoMap(cfg.RegMono)

	type frontierNode struct {
		ptID       int
		depth      int
		start, end int
	}
	frontier := []frontierNode{{ptID: 0, depth: 0, start: 0, end: len(bag)}}

	for len(frontier) > 0 {
		nodes := make([]level.Node, len(frontier))
		for i, fn := range frontier {
			parentInfo := newAccumFor(sp.NodeSlice(0, fn.start, fn.end)).NodeImpurity()
			nodes[i] = level.Node{
				ID:         fn.ptID,
				Depth:      fn.depth,
				Start:      fn.start,
				End:        fn.end,
				ParentInfo: parentInfo,
				NewAccum:   accumForNode(newAccumFor, sp, fn),
				MonoByPred: monoByPred,
			}
		}

		results, err := bot.SearchLevel(ctx, nodes, f.NPred())
		if err != nil {
			break
		}

		var next []frontierNode
		for i, res := range results {
			fn := frontier[i]
			if !res.Found {
				pt.SetScore(fn.ptID, scoreFor(sp.NodeSlice(bestNonFacPred(facPredicates, f.NPred()), fn.start, fn.end)))
				continue
			}

			isFac := facPredicates[res.Best.PredIdx]
			lh, rh := pt.NonTerminal(fn.ptID, res.Best.PredIdx, res.Best.SplitVal, res.Best.Info, isFac)

			cells := sp.NodeSlice(res.Best.PredIdx, fn.start, fn.end)
			var inLeft map[int]bool
			if isFac {
				inLeft = level.InLeft(cells, res.Best, true)
				bits := bitset.New(uint(maxFacCard(f)))
				for lvl := range res.Best.LeftLevels {
					bits.Set(uint(lvl))
				}
				pt.SetFacBits(fn.ptID, bits)
			} else {
				inLeft = level.InLeft(cells, res.Best, false)
			}

			// Restage's writeStart/writeEnd are positions in the *next*
			// buffer, which is shared and compacted across every frontier
			// node processed at this level — they only equal fn.start/
			// fn.end when every earlier sibling also split. Terminal
			// siblings write nothing, so the next buffer's occupied range
			// is shorter than the current one; the child ranges must come
			// from Restage's own return values, not from fn.start/fn.end.
			var leftStart, leftEnd, rightStart, rightEnd int
			for p := 0; p < f.NPred(); p++ {
				ws, mid, we := sp.Restage(p, fn.start, fn.end, inLeft)
				if p == 0 {
					leftStart, leftEnd, rightStart, rightEnd = ws, mid, mid, we
				}
			}

			next = append(next,
				frontierNode{ptID: lh, depth: fn.depth + 1, start: leftStart, end: leftEnd},
				frontierNode{ptID: rh, depth: fn.depth + 1, start: rightStart, end: rightEnd},
			)
		}

		if len(next) > 0 {
			sp.SwapLevel()
		}
		frontier = next
	}

	pt.RefineHeight(pt.Height())
	return pt
}

func accumForNode(newAccumFor func([]samplepred.Cell) split.Accumulator, sp *samplepred.SamplePred, fn struct {
	ptID       int
	depth      int
	start, end int
}) func() split.Accumulator {
	return func() split.Accumulator {
		cells := sp.NodeSlice(0, fn.start, fn.end)
		return newAccumFor(cells)
	}
}

func bestNonFacPred(facPredicates map[int]bool, nPred int) int {
	for p := 0; p < nPred; p++ {
		if !facPredicates[p] {
			return p
		}
	}
	return 0
}

func maxFacCard(f *frame.Frame) uint32 {
	m := f.MaxCard()
	if m == 0 {
		return 1
	}
	return m
}

func monoMap(regMono []int) map[int]split.MonoDir {
	if regMono == nil {
		return nil
	}
	m := make(map[int]split.MonoDir, len(regMono))
	for p, v := range regMono {
		m[p] = split.MonoDir(v)
	}
	return m
}

// consumeTree flattens one finished PreTree into the shared Bundle arrays,
// following pretree.cc's ConsumeNodes / dectree.cc's ConsumeTrees.
func consumeTree(b *Bundle, t int, pt *pretree.PreTree) {
	origin := len(b.PredIdx)
	b.Origin[t] = origin

	pt.Walk(func(n pretree.Node) {
		bump := int32(0)
		if n.LHID != -1 {
			bump = int32(n.LHID - n.ID)
		}

		b.PredIdx = append(b.PredIdx, int32(n.PredIdx))
		b.SplitVal = append(b.SplitVal, n.SplitVal)
		b.LHBump = append(b.LHBump, bump)
		b.Score = append(b.Score, n.Score)
		b.IsFac = append(b.IsFac, n.IsFac)

		facBitIdx := int32(-1)
		if n.IsFac && n.LHID != -1 {
			bits := pt.FacBits(n.ID)
			if bits != nil {
				facBitIdx = int32(len(b.FacSplitBits))
				b.FacSplitBits = append(b.FacSplitBits, bits)
			}
		}
		b.FacBitIdx = append(b.FacBitIdx, facBitIdx)

		if n.LHID != -1 {
			b.PredInfo[n.PredIdx] += n.Info
		}
	})
}
