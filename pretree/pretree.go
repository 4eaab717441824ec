// Package pretree implements PreTree (spec.md component F): a dense,
// growable in-memory tree built up level by level from Bottom's split
// results, later consumed into the packed Forest representation.
//
// Node storage, height re-estimation, and the lhBump encoding follow
// original_source/ArboristCore's pretree.cc: PreTree keeps nodes in a flat
// slice sized to a height estimate (smallest power of two enclosing a
// balanced tree of the sample count), doubling the slice if growth exceeds
// the estimate, and encodes a nonterminal's left child offset as
// lhId - id rather than storing a pointer — this is what lets the forest
// package flatten many trees into one shared []float64/[]int32 pair without
// per-tree pointer relocation.
package pretree

import "github.com/bits-and-blooms/bitset"

// Node is one PreTree slot. LHID == -1 marks a terminal (leaf) node.
type Node struct {
	ID       int
	LHID     int
	PredIdx  int
	SplitVal float64
	Info     float64
	Score    float64 // leaf mean (regression) or vote/weight index (classification), meaningful only when LHID == -1
	IsFac    bool
}

// PreTree is one tree's growable node vector plus its factor-split bitmap
// pool (one bitmap per categorical nonterminal, sized to that predictor's
// cardinality).
type PreTree struct {
	nodes     []Node
	facBitmap map[int]*bitset.BitSet // node id -> membership bitmap for factor splits
	heightEst int
}

// minHeight is ArboristCore's minimum per-level branching assumption used
// to seed the height estimate before any tree has been grown.
const minHeight = 2

// EstimateHeight finds the smallest power of two twoL with
// twoL*minHeight >= nSamp and returns four times it (itself a power of two),
// matching pretree.cc's Immutables height-estimation loop.
func EstimateHeight(nSamp int) int {
	twoL := 1
	for twoL*minHeight < nSamp {
		twoL <<= 1
	}
	return twoL << 2
}

// New creates a PreTree sized to heightEst (from EstimateHeight, or a prior
// tree's RefineHeight result — spec.md §4.F requires this carry-over).
func New(heightEst int) *PreTree {
	pt := &PreTree{
		nodes:     make([]Node, 1, heightEst),
		facBitmap: make(map[int]*bitset.BitSet),
		heightEst: heightEst,
	}
	pt.nodes[0] = Node{ID: 0, LHID: -1}
	return pt
}

// RefineHeight doubles heightEst until it exceeds the observed height of a
// just-consumed tree, so the next tree's initial allocation is unlikely to
// need CheckStorage doubling at all (pretree.cc: PreTree::RefineHeight).
func (pt *PreTree) RefineHeight(observedHeight int) {
	for pt.heightEst <= observedHeight {
		pt.heightEst <<= 1
	}
}

// HeightEst returns the current height estimate, to seed the next tree.
func (pt *PreTree) HeightEst() int { return pt.heightEst }

// checkStorage doubles the node slice's capacity if id would overflow it.
func (pt *PreTree) checkStorage(id int) {
	for id >= cap(pt.nodes) {
		grown := make([]Node, len(pt.nodes), cap(pt.nodes)*2)
		copy(grown, pt.nodes)
		pt.nodes = grown
	}
}

// NonTerminal splits node id into two fresh leaves, returning their ids.
// The left child is always allocated immediately after the last-allocated
// node, matching pretree.cc's NonTerminal: LHID stores lhId, and LHID - id
// is the packed forest's bump encoding.
func (pt *PreTree) NonTerminal(id, predIdx int, splitVal, info float64, isFac bool) (lhID, rhID int) {
	lhID = len(pt.nodes)
	rhID = lhID + 1
	pt.checkStorage(rhID)

	for len(pt.nodes) <= rhID {
		pt.nodes = append(pt.nodes, Node{LHID: -1})
	}
	pt.nodes[lhID] = Node{ID: lhID, LHID: -1}
	pt.nodes[rhID] = Node{ID: rhID, LHID: -1}

	n := &pt.nodes[id]
	n.LHID = lhID
	n.PredIdx = predIdx
	n.SplitVal = splitVal
	n.Info = info
	n.IsFac = isFac

	return lhID, rhID
}

// SetFacBits records the membership bitmap for a categorical nonterminal:
// bit k set means factor level k routes left.
func (pt *PreTree) SetFacBits(id int, bits *bitset.BitSet) {
	pt.facBitmap[id] = bits
}

// FacBits returns the membership bitmap for a categorical nonterminal, or
// nil if id is not a categorical split.
func (pt *PreTree) FacBits(id int) *bitset.BitSet { return pt.facBitmap[id] }

// SetScore assigns a leaf's terminal value; only meaningful for nodes with
// LHID == -1.
func (pt *PreTree) SetScore(id int, score float64) {
	pt.nodes[id].Score = score
}

// Node returns node id's current state.
func (pt *PreTree) Node(id int) Node { return pt.nodes[id] }

// Height returns the number of allocated nodes.
func (pt *PreTree) Height() int { return len(pt.nodes) }

// Walk visits every node in id order, root first, matching the traversal
// order pretree.cc's ConsumeNodes uses to flatten into the packed forest.
func (pt *PreTree) Walk(visit func(Node)) {
	for _, n := range pt.nodes {
		visit(n)
	}
}
