package forest

import (
	"bytes"
	"context"
	"encoding/gob"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/arborist/frame"
	"github.com/wlattner/arborist/metrics"
	"github.com/wlattner/arborist/rfconfig"
)

// syntheticClasses builds a small, cleanly separable two-class dataset in
// the spirit of wlattner-rf's embedded iris fixture (forest/iris_test.go):
// one informative numeric predictor and a class label split around its
// midpoint.
func syntheticClasses(n int) (*frame.Frame, []int, []string) {
	x := make([]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		if i < n/2 {
			y[i] = 0
		} else {
			y[i] = 1
		}
	}
	f := frame.New([][]float64{x}, nil, nil)
	return f, y, []string{"low", "high"}
}

func TestTrainClassificationFitsSeparableData(t *testing.T) {
	f, y, classMap := syntheticClasses(120)
	cfg := rfconfig.New(rfconfig.NTree(25), rfconfig.MinNode(2), rfconfig.Seed(11))
	coll := metrics.NewCollector(prometheus.NewRegistry())

	bundle, err := TrainClassification(context.Background(), f, y, len(classMap), classMap, cfg, coll)
	require.NoError(t, err)
	require.Equal(t, len(classMap), bundle.CtgWidth)

	preds, err := bundle.PredictClassification(context.Background(), f, false, 4)
	require.NoError(t, err)

	correct := 0
	for i, p := range preds {
		if p == y[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(y))
	assert.Greater(t, accuracy, 0.8)
}

func TestTrainRegressionFitsLinearTrend(t *testing.T) {
	n := 150
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		y[i] = 3*float64(i) + 1
	}
	f := frame.New([][]float64{x}, nil, nil)

	cfg := rfconfig.New(rfconfig.NTree(30), rfconfig.MinNode(2), rfconfig.Seed(3))
	coll := metrics.NewCollector(prometheus.NewRegistry())

	bundle, err := TrainRegression(context.Background(), f, y, cfg, coll)
	require.NoError(t, err)

	preds, err := bundle.PredictRegression(context.Background(), f, false, 4)
	require.NoError(t, err)

	var sumAbsErr float64
	for i, p := range preds {
		diff := p - y[i]
		if diff < 0 {
			diff = -diff
		}
		sumAbsErr += diff
	}
	meanAbsErr := sumAbsErr / float64(n)
	assert.Less(t, meanAbsErr, 20.0)
}

// TestTrainRegressionHandlesAsymmetricTerminalSiblings builds a tree where
// one first-level child is pure (terminal immediately) while its sibling
// keeps splitting for several more levels — the shape that exposed a bug
// where a terminal sibling processed earlier in the frontier left the next
// sibling's restaged [start, end) range computed against the wrong buffer
// positions.
func TestTrainRegressionHandlesAsymmetricTerminalSiblings(t *testing.T) {
	n := 80
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i)
		if i < 4 {
			y[i] = 5 // pure: forces an immediate terminal on this side
		} else {
			y[i] = float64(i) // keeps splitting on the other side
		}
	}
	f := frame.New([][]float64{x}, nil, nil)

	cfg := rfconfig.New(rfconfig.NTree(15), rfconfig.MinNode(2), rfconfig.Seed(7))
	coll := metrics.NewCollector(prometheus.NewRegistry())

	bundle, err := TrainRegression(context.Background(), f, y, cfg, coll)
	require.NoError(t, err)

	preds, err := bundle.PredictRegression(context.Background(), f, false, 4)
	require.NoError(t, err)
	require.Len(t, preds, n)

	var sumAbsErr float64
	for i, p := range preds {
		diff := p - y[i]
		if diff < 0 {
			diff = -diff
		}
		sumAbsErr += diff
	}
	assert.Less(t, sumAbsErr/float64(n), 15.0)
}

// TestTrainClassificationDeterministicWithMtrySubsampling is the dropped
// Iris/mtry scenario: with nPred > 1 and PredFixed strictly between 0 and
// nPred, every node's predictor mask is a genuine subsample draw from the
// shared rng.Source, the case that stayed hidden in every other test here
// because they all use a single predictor (Sample degenerates to "return
// everything" when nPred == 1, so nothing is actually drawn). Two runs with
// an identical seed must produce byte-identical forests.
func TestTrainClassificationDeterministicWithMtrySubsampling(t *testing.T) {
	n := 120
	x0 := make([]float64, n)
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	x3 := make([]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		x0[i] = float64(i)
		x1[i] = float64(n - i)
		x2[i] = float64(i % 7)
		x3[i] = float64(i % 5)
		if i < n/2 {
			y[i] = 0
		} else {
			y[i] = 1
		}
	}
	f := frame.New([][]float64{x0, x1, x2, x3}, nil, nil)
	classMap := []string{"low", "high"}

	cfg := rfconfig.New(
		rfconfig.NTree(20),
		rfconfig.MinNode(2),
		rfconfig.Seed(42),
		rfconfig.PredFixed(2),
	)

	run := func() *bytes.Buffer {
		coll := metrics.NewCollector(prometheus.NewRegistry())
		bundle, err := TrainClassification(context.Background(), f, y, len(classMap), classMap, cfg, coll)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, gob.NewEncoder(&buf).Encode(bundle))
		return &buf
	}

	first := run()
	second := run()

	assert.Equal(t, first.Bytes(), second.Bytes(), "identical seed and config must produce byte-identical forests")
}

func TestBundleGobRoundTrip(t *testing.T) {
	f, y, classMap := syntheticClasses(60)
	cfg := rfconfig.New(rfconfig.NTree(10), rfconfig.MinNode(2), rfconfig.Seed(1))
	coll := metrics.NewCollector(prometheus.NewRegistry())

	bundle, err := TrainClassification(context.Background(), f, y, len(classMap), classMap, cfg, coll)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(bundle))

	var decoded Bundle
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.Equal(t, bundle.NTree, decoded.NTree)
	assert.Equal(t, bundle.CtgWidth, decoded.CtgWidth)
	assert.Equal(t, bundle.ClassMap, decoded.ClassMap)
}

func TestScaleInfoDividesByNTree(t *testing.T) {
	b := &Bundle{NTree: 4, PredInfo: []float64{8, 0}}
	scaled := b.ScaleInfo()
	assert.InDelta(t, 2.0, scaled[0], 1e-9)
	assert.InDelta(t, 0.0, scaled[1], 1e-9)
}

func TestAccuracyFromConfusionMatrix(t *testing.T) {
	m := [][]int{
		{8, 2},
		{1, 9},
	}
	acc := Accuracy(m)
	assert.InDelta(t, 0.85, acc, 1e-9)
}
