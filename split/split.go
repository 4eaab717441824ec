// Package split implements the SplitSig / Run engine (spec.md component D):
// for one (node, predictor) pair it scans the staged SamplePred cells and
// returns the best split found, if any clears the minimum-info-gain bar.
//
// The running-sum accumulators are wlattner-rf's tree/valuer.go varValuer
// (regression, sum/sum-of-squares) and giniValuer (classification, running
// per-category counts), generalized from a single global buildStack driver
// to the level-synchronous, per-(node,predictor) call the level package
// makes here.
package split

import (
	"math"
	"sort"

	"github.com/wlattner/arborist/samplepred"
)

// MonoDir is a monotone-constraint direction for a numeric predictor.
type MonoDir int

const (
	MonoNone MonoDir = 0
	MonoInc  MonoDir = 1
	MonoDec  MonoDir = -1
)

// SSNode is the outcome of searching one (node, predictor) pair: the best
// rank boundary found, or Info == math.Inf(-1) if none cleared the bar.
type SSNode struct {
	PredIdx    int
	SetIdx     int // number of run-packed levels sent left, -1 for numeric or "no split"
	SCount     int
	LHIdxCount int // number of staged cells assigned left
	SplitVal   float64
	Info       float64
	// LeftLevels holds the factor levels assigned to the left child for a
	// categorical split. Recording levels rather than a position in the
	// run-packed scan order lets callers classify staged cells directly by
	// PredVal without having to reproduce SearchCategorical's internal
	// mean-response ordering.
	LeftLevels map[int]bool
}

func newSSNode(predIdx int) SSNode {
	return SSNode{PredIdx: predIdx, SetIdx: -1, Info: math.Inf(-1)}
}

// Accumulator is the running left/right sufficient statistic used to score a
// candidate split. Regression and classification each provide one.
type Accumulator interface {
	// Add folds cell index i (SCount-weighted) into the left side.
	Add(sCount int, yVal float64, ctg int)
	// Info returns the current impurity-reduction score for the left/right
	// split implied by everything added so far.
	Info() float64
	// Mean returns the running left-side mean response, used by monotone
	// constraint checks; classification accumulators may return 0.
	Mean() float64
	// NodeImpurity returns the impurity of the whole node these totals were
	// built from, before any left/right split is considered. This is the
	// parentInfo term ArgMax scales by cfg.minRatio (spec.md §4.D).
	NodeImpurity() float64
}

// varAccum is wlattner-rf's varValuer, adapted to incremental left/right
// running sums instead of a single forward scan with a fixed total.
type varAccum struct {
	totalSum, totalSumSq float64
	totalN                int
	leftSum, leftSumSq    float64
	leftN                 int
}

func NewVarAccumulator(totalSum, totalSumSq float64, totalN int) Accumulator {
	return &varAccum{totalSum: totalSum, totalSumSq: totalSumSq, totalN: totalN}
}

func (v *varAccum) Add(sCount int, yVal float64, _ int) {
	w := float64(sCount)
	v.leftSum += w * yVal
	v.leftSumSq += w * yVal * yVal
	v.leftN += sCount
}

func (v *varAccum) Info() float64 {
	if v.leftN == 0 || v.leftN == v.totalN {
		return math.Inf(-1)
	}
	rightN := v.totalN - v.leftN
	rightSum := v.totalSum - v.leftSum
	rightSumSq := v.totalSumSq - v.leftSumSq

	leftVar := meanVar(v.leftSum, v.leftSumSq, v.leftN)
	rightVar := meanVar(rightSum, rightSumSq, rightN)
	totalVar := meanVar(v.totalSum, v.totalSumSq, v.totalN)

	return totalVar - (float64(v.leftN)/float64(v.totalN))*leftVar - (float64(rightN)/float64(v.totalN))*rightVar
}

func (v *varAccum) Mean() float64 {
	if v.leftN == 0 {
		return 0
	}
	return v.leftSum / float64(v.leftN)
}

func (v *varAccum) NodeImpurity() float64 {
	return meanVar(v.totalSum, v.totalSumSq, v.totalN)
}

func meanVar(sum, sumSq float64, n int) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// giniAccum is wlattner-rf's giniValuer, adapted the same way.
type giniAccum struct {
	totalCounts []int
	totalN      int
	leftCounts  []int
	leftN       int
}

func NewGiniAccumulator(totalCounts []int, totalN int) Accumulator {
	return &giniAccum{
		totalCounts: totalCounts,
		totalN:      totalN,
		leftCounts:  make([]int, len(totalCounts)),
	}
}

func (g *giniAccum) Add(sCount int, _ float64, ctg int) {
	g.leftCounts[ctg] += sCount
	g.leftN += sCount
}

func (g *giniAccum) Info() float64 {
	if g.leftN == 0 || g.leftN == g.totalN {
		return math.Inf(-1)
	}
	rightN := g.totalN - g.leftN
	rightCounts := make([]int, len(g.totalCounts))
	for i, c := range g.totalCounts {
		rightCounts[i] = c - g.leftCounts[i]
	}

	giniTotal := gini(g.totalCounts, g.totalN)
	giniLeft := gini(g.leftCounts, g.leftN)
	giniRight := gini(rightCounts, rightN)

	return giniTotal - (float64(g.leftN)/float64(g.totalN))*giniLeft - (float64(rightN)/float64(g.totalN))*giniRight
}

func (g *giniAccum) Mean() float64 { return 0 }

func (g *giniAccum) NodeImpurity() float64 {
	return gini(g.totalCounts, g.totalN)
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	var sumSq float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		sumSq += p * p
	}
	return 1 - sumSq
}

// SearchNumeric scans a rank-ordered predictor slice looking for the best
// left/right boundary. minNode is the minimum sCount weight required on
// either side (spec.md §6 cfg.minNode); mono constrains the direction of the
// child-mean relationship the split must satisfy, or MonoNone to skip the
// check.
func SearchNumeric(cells []samplepred.Cell, predIdx int, newAccum func() Accumulator, minNode int, mono MonoDir) SSNode {
	best := newSSNode(predIdx)
	if len(cells) < 2 {
		return best
	}

	acc := newAccum()
	leftWeight := 0
	totalWeight := 0
	for _, c := range cells {
		totalWeight += c.SCount
	}

	for i := 0; i < len(cells)-1; i++ {
		c := cells[i]
		acc.Add(c.SCount, c.YVal, c.YCtg)
		leftWeight += c.SCount

		if cells[i+1].Rank == c.Rank {
			continue // tie: cannot split between equal ranks
		}
		if leftWeight < minNode || totalWeight-leftWeight < minNode {
			continue
		}

		info := acc.Info()
		if info <= best.Info {
			continue
		}
		if mono != MonoNone && !monoSatisfied(acc, cells, i, mono) {
			continue
		}

		best.Info = info
		best.SCount = totalWeight
		best.LHIdxCount = leftWeight
		best.SplitVal = midpoint(c, cells[i+1])
	}

	return best
}

func midpoint(a, b samplepred.Cell) float64 {
	return (a.PredVal + b.PredVal) / 2
}

func monoSatisfied(acc Accumulator, cells []samplepred.Cell, i int, mono MonoDir) bool {
	leftMean := acc.Mean()
	var rightSum float64
	var rightN int
	for j := i + 1; j < len(cells); j++ {
		rightSum += float64(cells[j].SCount) * cells[j].YVal
		rightN += cells[j].SCount
	}
	if rightN == 0 {
		return true
	}
	rightMean := rightSum / float64(rightN)

	switch mono {
	case MonoInc:
		return rightMean >= leftMean
	case MonoDec:
		return rightMean <= leftMean
	default:
		return true
	}
}

// run is one contiguous group of staged cells sharing a factor level,
// ordered by the level's mean response (spec.md §4.D categorical ordering:
// levels are packed by response so the binary-partition search below can
// still scan left-to-right instead of enumerating all 2^k subsets).
type run struct {
	level    int
	cells    []samplepred.Cell
	weight   int
	respMean float64
}

// SearchCategorical run-packs the cells of a categorical predictor by mean
// response and then reuses the same left-to-right boundary scan as numeric
// splits, capped at maxRunWidth distinct levels (Open Question (iii)): with
// more levels than the cap, only the maxRunWidth levels with the most
// support are packed and the remainder is folded into the run with the
// closest mean, keeping the search bounded instead of enumerating subsets.
func SearchCategorical(cells []samplepred.Cell, predIdx int, newAccum func() Accumulator, minNode, maxRunWidth int) SSNode {
	best := newSSNode(predIdx)
	if len(cells) < 2 {
		return best
	}

	byLevel := map[int]*run{}
	for _, c := range cells {
		level := int(c.PredVal)
		r, ok := byLevel[level]
		if !ok {
			r = &run{level: level}
			byLevel[level] = r
		}
		r.cells = append(r.cells, c)
		r.weight += c.SCount
		r.respMean += float64(c.SCount) * c.YVal
	}

	runs := make([]*run, 0, len(byLevel))
	for _, r := range byLevel {
		if r.weight > 0 {
			r.respMean /= float64(r.weight)
		}
		runs = append(runs, r)
	}
	// Start from level order so runs with equal means keep a fixed order.
	sort.Slice(runs, func(i, j int) bool { return runs[i].level < runs[j].level })
	sortRuns(runs)
	runs = capRuns(runs, maxRunWidth)

	ordered := make([]samplepred.Cell, 0, len(cells))
	for _, r := range runs {
		ordered = append(ordered, r.cells...)
	}

	acc := newAccum()
	leftWeight := 0
	totalWeight := 0
	for _, c := range ordered {
		totalWeight += c.SCount
	}

	leftLevels := map[int]bool{}
	for _, r := range runs[:len(runs)-1] {
		for _, c := range r.cells {
			acc.Add(c.SCount, c.YVal, c.YCtg)
			leftWeight += c.SCount
			leftLevels[int(c.PredVal)] = true // includes levels capRuns merged in
		}
		leftLevels[r.level] = true

		if leftWeight < minNode || totalWeight-leftWeight < minNode {
			continue
		}

		info := acc.Info()
		if info <= best.Info {
			continue
		}
		best.Info = info
		best.SCount = totalWeight
		best.LHIdxCount = leftWeight
		best.SetIdx = len(leftLevels)
		best.LeftLevels = copyLevelSet(leftLevels)
	}

	return best
}

func copyLevelSet(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortRuns(runs []*run) {
	for i := 1; i < len(runs); i++ {
		for j := i; j > 0 && runs[j].respMean < runs[j-1].respMean; j-- {
			runs[j], runs[j-1] = runs[j-1], runs[j]
		}
	}
}

// capRuns keeps the maxRunWidth heaviest runs (by weight) in mean-response
// order and merges the rest into the nearest surviving run.
//
// closest.respMean is not recomputed after a merge, so a run that absorbs
// several dropped runs can drift from its true mean before later
// comparisons in the same loop; the resulting order is close but not exact
// past the cap.
func capRuns(runs []*run, maxRunWidth int) []*run {
	if maxRunWidth <= 0 || len(runs) <= maxRunWidth {
		return runs
	}

	byWeight := append([]*run(nil), runs...)
	for i := 1; i < len(byWeight); i++ {
		for j := i; j > 0 && byWeight[j].weight > byWeight[j-1].weight; j-- {
			byWeight[j], byWeight[j-1] = byWeight[j-1], byWeight[j]
		}
	}
	keep := make(map[*run]bool, maxRunWidth)
	for _, r := range byWeight[:maxRunWidth] {
		keep[r] = true
	}

	kept := make([]*run, 0, maxRunWidth)
	for _, r := range runs {
		if keep[r] {
			kept = append(kept, r)
		}
	}

	for _, r := range runs {
		if keep[r] {
			continue
		}
		var closest *run
		for _, k := range kept {
			if closest == nil || math.Abs(k.respMean-r.respMean) < math.Abs(closest.respMean-r.respMean) {
				closest = k
			}
		}
		closest.cells = append(closest.cells, r.cells...)
		closest.weight += r.weight
	}

	return kept
}

// ArgMax picks the highest-Info SSNode across a set of per-predictor search
// results for one node, returning ok == false if no candidate is strictly
// above the info threshold (spec.md §4.D's minInfo gate).
func ArgMax(candidates []SSNode, minInfo float64) (SSNode, bool) {
	best := SSNode{Info: math.Inf(-1)}
	found := false
	for _, c := range candidates {
		if c.Info > best.Info {
			best = c
			found = true
		}
	}
	if !found || best.Info <= minInfo {
		return SSNode{}, false
	}
	return best, true
}
