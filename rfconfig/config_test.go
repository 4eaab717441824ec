package rfconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidForATypicalShape(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate(150, 4))
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := New(NTree(100), MinNode(5), PredFixed(2))
	assert.Equal(t, 100, cfg.NTree)
	assert.Equal(t, 5, cfg.MinNode)
	assert.Equal(t, 2, cfg.PredFixed)
}

func TestValidateRejectsBadRegMono(t *testing.T) {
	cfg := New(RegMono([]int{0, 2, -1}))
	err := cfg.Validate(10, 3)
	assert.Error(t, err)
}

func TestValidateRejectsMismatchedSampleWeight(t *testing.T) {
	cfg := New(SampleWeight([]float64{1, 2}))
	err := cfg.Validate(10, 3)
	assert.Error(t, err)
}

func TestEffectiveNSampDefaultsToNRow(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 42, cfg.EffectiveNSamp(42))
}

func TestLoadFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.yaml")
	content := "n_tree: 250\nmin_node: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.NTree)
	assert.Equal(t, 3, cfg.MinNode)
}
