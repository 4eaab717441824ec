package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wlattner/arborist/forest"
)

type predictCmdConfig struct {
	*rootConfig
	input     string
	modelPath string
	oob       bool
}

func predictCmd(root *rootConfig) *cobra.Command {
	cfg := &predictCmdConfig{rootConfig: root}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict rows from a CSV file against a trained forest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.run()
		},
	}
	cmd.Flags().StringVarP(&cfg.input, "input", "i", "", "path to CSV file of rows to predict (required)")
	cmd.Flags().StringVarP(&cfg.modelPath, "model", "m", "", "path to a trained forest bundle (required)")
	cmd.Flags().BoolVar(&cfg.oob, "oob", false, "restrict prediction to trees where the row was out-of-bag")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("model")
	return cmd
}

func (c *predictCmdConfig) run() error {
	bundle, err := forest.Load(c.modelPath)
	if err != nil {
		return err
	}

	f, err := os.Open(c.input)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := parseCSV(f)
	if err != nil {
		return err
	}
	frm := parsed.frame()
	ctx := context.Background()

	if bundle.CtgWidth > 0 {
		preds, err := bundle.PredictClassification(ctx, frm, c.oob, 4)
		if err != nil {
			return err
		}
		for _, p := range preds {
			label := fmt.Sprintf("%d", p)
			if p >= 0 && p < len(bundle.ClassMap) {
				label = bundle.ClassMap[p]
			}
			fmt.Println(label)
		}
		return nil
	}

	preds, err := bundle.PredictRegression(ctx, frm, c.oob, 4)
	if err != nil {
		return err
	}
	for _, p := range preds {
		fmt.Printf("%f\n", p)
	}
	return nil
}
