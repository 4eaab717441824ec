// Package forest implements the packed Forest / DecTree representation
// (spec.md component G), the row-prediction walker (component H), and the
// Trainer shell (component J) that drives Sampler, SamplePred, Bottom and
// PreTree through a full ensemble.
//
// Bundle's columnar layout and gob persistence follow wlattner-rf's
// Classifier/Regressor Save/Load (model.go), generalized from a per-tree
// slice of *tree.Classifier to the single flattened predIdx/splitVal/lhBump
// arrays original_source/ArboristCore's dectree.cc concatenates via
// ConsumeTrees, so that one Bundle, not N tree objects, is what gets
// persisted and walked at predict time.
package forest

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/bits-and-blooms/bitset"
)

// Bundle is a trained, persisted forest: every tree's nodes flattened into
// shared columnar arrays, indexed by Origin.
type Bundle struct {
	NTree int
	NRow  int
	NPred int

	// Origin[t] is the index into PredIdx/SplitVal/LHBump/Score where tree
	// t's root lives; a node id within tree t is Origin[t]+localID.
	Origin []int

	PredIdx  []int32
	SplitVal []float64
	LHBump   []int32 // 0 marks a terminal node
	Score    []float64
	IsFac    []bool

	// FacBitIdx[idx] is the index into FacSplitBits for global node idx, or
	// -1 if idx is not a categorical nonterminal. FacCard is the per-
	// predictor factor cardinality (0 for numeric predictors); each bitmap
	// is sized to the frame's largest cardinality, not to FacCard.
	FacBitIdx    []int32
	FacSplitBits []*bitset.BitSet
	FacCard      []uint32

	// InBag is addressed treeNum + NTree*row (tree-index-fastest), matching
	// dectree.cc's BagCoord.
	InBag *bitset.BitSet

	// PredInfo[p] is the summed information gain attributed to predictor p
	// across every tree, matching wlattner-rf's variable-importance
	// accumulation; ScaleInfo divides by NTree at read time.
	PredInfo []float64

	// Classification-only fields.
	CtgWidth int
	ClassMap []string
}

// inBagIndex reproduces dectree.cc's BagCoord: tree index varies fastest.
func inBagIndex(nTree, tree, row int) uint {
	return uint(tree + nTree*row)
}

// SetInBag records that row was in-bag for tree during training.
func (b *Bundle) SetInBag(tree, row int) {
	b.InBag.Set(inBagIndex(b.NTree, tree, row))
}

// IsInBag reports whether row was in-bag for tree.
func (b *Bundle) IsInBag(tree, row int) bool {
	return b.InBag.Test(inBagIndex(b.NTree, tree, row))
}

// ScaleInfo returns predInfo[p] / nTree, matching dectree.cc's ScaleInfo.
func (b *Bundle) ScaleInfo() []float64 {
	out := make([]float64, len(b.PredInfo))
	for i, v := range b.PredInfo {
		if b.NTree > 0 {
			out[i] = v / float64(b.NTree)
		}
	}
	return out
}

// Save gob-encodes the Bundle to path, following wlattner-rf's
// Classifier.Save.
func (b *Bundle) Save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return fmt.Errorf("forest: encoding bundle: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("forest: writing bundle: %w", err)
	}
	return nil
}

// Load reads a gob-encoded Bundle from path, following wlattner-rf's
// Classifier.Load.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("forest: reading bundle: %w", err)
	}
	var b Bundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("forest: decoding bundle: %w", err)
	}
	return &b, nil
}
