// Package rfconfig holds the training configuration (spec.md §6 cfg),
// built with the functional-options pattern wlattner-rf uses throughout
// tree.Classifier and forest.Classifier (MinSplit(n), MaxFeatures(n), ...),
// generalized to spec.md's richer field set and to YAML-file loading via
// gopkg.in/yaml.v2, the library pbanos-botanic uses for its own
// tree-training configuration.
package rfconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the full set of knobs a training run accepts.
type Config struct {
	NTree           int       `yaml:"n_tree"`
	NSamp           int       `yaml:"n_samp"`
	WithReplacement bool      `yaml:"with_replacement"`
	TrainBlock      int       `yaml:"train_block"`
	MinNode         int       `yaml:"min_node"`
	MinRatio        float64   `yaml:"min_ratio"`
	TotLevels       int       `yaml:"tot_levels"`
	PredFixed       int       `yaml:"pred_fixed"`
	PredProb        []float64 `yaml:"pred_prob"`
	RegMono         []int     `yaml:"reg_mono"`
	SampleWeight    []float64 `yaml:"sample_weight"`
	MaxRunWidth     int       `yaml:"max_run_width"`
	Seed            int64     `yaml:"seed"`
	NumWorkers      int       `yaml:"num_workers"`
}

// Option configures a Config in place, wlattner-rf's functional-options
// pattern (forest.NumTrees, forest.MinSplit, ...).
type Option func(*Config)

// Default returns the baseline configuration used when no options are
// supplied: 500 trees, bootstrap sampling equal to the training set size,
// a single-tree train block, and unbounded depth.
func Default() *Config {
	return &Config{
		NTree:           500,
		WithReplacement: true,
		TrainBlock:      1,
		MinNode:         1,
		MinRatio:        0,
		TotLevels:       0,
		MaxRunWidth:     10,
		Seed:            1,
		NumWorkers:      1,
	}
}

// New builds a Config from Default() with opts applied in order.
func New(opts ...Option) *Config {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func NTree(n int) Option           { return func(c *Config) { c.NTree = n } }
func NSamp(n int) Option           { return func(c *Config) { c.NSamp = n } }
func WithReplacement(b bool) Option { return func(c *Config) { c.WithReplacement = b } }
func TrainBlock(n int) Option      { return func(c *Config) { c.TrainBlock = n } }
func MinNode(n int) Option         { return func(c *Config) { c.MinNode = n } }
func MinRatio(r float64) Option    { return func(c *Config) { c.MinRatio = r } }
func TotLevels(n int) Option       { return func(c *Config) { c.TotLevels = n } }
func PredFixed(n int) Option       { return func(c *Config) { c.PredFixed = n } }
func PredProb(p []float64) Option  { return func(c *Config) { c.PredProb = p } }
func RegMono(m []int) Option       { return func(c *Config) { c.RegMono = m } }
func SampleWeight(w []float64) Option { return func(c *Config) { c.SampleWeight = w } }
func MaxRunWidth(n int) Option     { return func(c *Config) { c.MaxRunWidth = n } }
func Seed(s int64) Option          { return func(c *Config) { c.Seed = s } }
func NumWorkers(n int) Option      { return func(c *Config) { c.NumWorkers = n } }

// Validate implements spec.md §7's "configuration" error kind: bad fields
// are rejected before any tree is grown, never mid-training.
func (c *Config) Validate(nRow, nPred int) error {
	if c.NTree <= 0 {
		return fmt.Errorf("rfconfig: n_tree must be positive, got %d", c.NTree)
	}
	if c.NSamp < 0 {
		return fmt.Errorf("rfconfig: n_samp must be non-negative, got %d", c.NSamp)
	}
	if c.NSamp > nRow && !c.WithReplacement {
		return fmt.Errorf("rfconfig: n_samp %d exceeds nRow %d without replacement", c.NSamp, nRow)
	}
	if c.TrainBlock <= 0 {
		return fmt.Errorf("rfconfig: train_block must be positive, got %d", c.TrainBlock)
	}
	if c.MinNode <= 0 {
		return fmt.Errorf("rfconfig: min_node must be positive, got %d", c.MinNode)
	}
	if c.MinRatio < 0 {
		return fmt.Errorf("rfconfig: min_ratio must be non-negative, got %g", c.MinRatio)
	}
	if c.PredFixed < 0 || c.PredFixed > nPred {
		return fmt.Errorf("rfconfig: pred_fixed %d out of range [0, %d]", c.PredFixed, nPred)
	}
	if c.PredProb != nil && len(c.PredProb) != nPred {
		return fmt.Errorf("rfconfig: pred_prob length %d does not match nPred %d", len(c.PredProb), nPred)
	}
	for _, p := range c.PredProb {
		if p < 0 || p > 1 {
			return fmt.Errorf("rfconfig: pred_prob entries must be in [0, 1], got %g", p)
		}
	}
	if c.RegMono != nil && len(c.RegMono) != nPred {
		return fmt.Errorf("rfconfig: reg_mono length %d does not match nPred %d", len(c.RegMono), nPred)
	}
	for _, m := range c.RegMono {
		if m < -1 || m > 1 {
			return fmt.Errorf("rfconfig: reg_mono entries must be in {-1, 0, 1}, got %d", m)
		}
	}
	if c.SampleWeight != nil && len(c.SampleWeight) != nRow {
		return fmt.Errorf("rfconfig: sample_weight length %d does not match nRow %d", len(c.SampleWeight), nRow)
	}
	if c.MaxRunWidth <= 0 {
		return fmt.Errorf("rfconfig: max_run_width must be positive, got %d", c.MaxRunWidth)
	}
	return nil
}

// EffectiveNSamp resolves NSamp == 0 to nRow, matching the common default
// of bootstrapping a set the same size as the training data.
func (c *Config) EffectiveNSamp(nRow int) int {
	if c.NSamp == 0 {
		return nRow
	}
	return c.NSamp
}

// LoadFile reads a YAML training-run description into a Config, starting
// from Default() so an omitted field keeps its default rather than zeroing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rfconfig: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("rfconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}
