package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wlattner/arborist/forest"
	"github.com/wlattner/arborist/metrics"
	"github.com/wlattner/arborist/rfconfig"
)

type trainCmdConfig struct {
	*rootConfig
	input      string
	output     string
	configPath string
	nTree      int
}

func trainCmd(root *rootConfig) *cobra.Command {
	cfg := &trainCmdConfig{rootConfig: root}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a random forest from a CSV file",
		Long:  "Train a random forest from a CSV file where the first column is the response and the remaining columns are numeric predictors.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.run()
		},
	}
	cmd.Flags().StringVarP(&cfg.input, "input", "i", "", "path to training CSV (required)")
	cmd.Flags().StringVarP(&cfg.output, "output", "o", "forest.gob", "path to write the trained forest bundle")
	cmd.Flags().StringVarP(&cfg.configPath, "config", "c", "", "path to a YAML training configuration file")
	cmd.Flags().IntVarP(&cfg.nTree, "n-tree", "n", 0, "number of trees to grow (overrides config if set)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func (c *trainCmdConfig) run() error {
	f, err := os.Open(c.input)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := parseCSV(f)
	if err != nil {
		return err
	}

	cfg := rfconfig.Default()
	if c.configPath != "" {
		cfg, err = rfconfig.LoadFile(c.configPath)
		if err != nil {
			return err
		}
	}
	if c.nTree > 0 {
		cfg.NTree = c.nTree
	}

	coll := metrics.NewCollector(prometheus.NewRegistry())
	frm := parsed.frame()
	ctx := context.Background()

	if parsed.isClass {
		c.Logf("training classification forest: %d rows, %d predictors, %d classes", frm.NRow(), frm.NPred(), len(parsed.classMap))
		bundle, err := forest.TrainClassification(ctx, frm, parsed.yCtg(), len(parsed.classMap), parsed.classMap, cfg, coll)
		if err != nil {
			return err
		}
		printVarImp(parsed.header, bundle.ScaleInfo())
		return bundle.Save(c.output)
	}

	c.Logf("training regression forest: %d rows, %d predictors", frm.NRow(), frm.NPred())
	bundle, err := forest.TrainRegression(ctx, frm, parsed.yFloat, cfg, coll)
	if err != nil {
		return err
	}
	printVarImp(parsed.header, bundle.ScaleInfo())
	return bundle.Save(c.output)
}

// printVarImp prints predictors sorted by importance, descending, matching
// wlattner-rf's ReportVarImp.
func printVarImp(header []string, info []float64) {
	type entry struct {
		name string
		val  float64
	}
	entries := make([]entry, len(info))
	for i, v := range info {
		name := fmt.Sprintf("x%d", i)
		if header != nil && i+1 < len(header) {
			name = header[i+1]
		}
		entries[i] = entry{name: name, val: v}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].val > entries[j].val })

	fmt.Println("variable importance:")
	for _, e := range entries {
		fmt.Printf("  %-20s %.4f\n", e.name, e.val)
	}
}
