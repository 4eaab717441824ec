package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wlattner/arborist/forest"
	"github.com/wlattner/arborist/quant"
)

type quantileCmdConfig struct {
	*rootConfig
	input      string
	modelPath  string
	trainInput string
	q          float64
}

func quantileCmd(root *rootConfig) *cobra.Command {
	cfg := &quantileCmdConfig{rootConfig: root}
	cmd := &cobra.Command{
		Use:   "quantile",
		Short: "Predict a response quantile against a trained regression forest",
		Long:  "Predict a response quantile per row by pooling every tree's leaf response multiset (spec.md's optional Quant component).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cfg.run()
		},
	}
	cmd.Flags().StringVarP(&cfg.input, "input", "i", "", "path to CSV file of rows to predict (required)")
	cmd.Flags().StringVarP(&cfg.modelPath, "model", "m", "", "path to a trained regression forest bundle (required)")
	cmd.Flags().StringVarP(&cfg.trainInput, "train-input", "t", "", "path to the original training CSV, needed to rebuild leaf rank data (required)")
	cmd.Flags().Float64VarP(&cfg.q, "quantile", "q", 0.5, "quantile to predict, in (0, 1)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("train-input")
	return cmd
}

func (c *quantileCmdConfig) run() error {
	bundle, err := forest.Load(c.modelPath)
	if err != nil {
		return err
	}
	if bundle.CtgWidth > 0 {
		return fmt.Errorf("quantile prediction requires a regression forest")
	}

	trainFile, err := os.Open(c.trainInput)
	if err != nil {
		return err
	}
	defer trainFile.Close()
	trainParsed, err := parseCSV(trainFile)
	if err != nil {
		return err
	}
	trainFrame := trainParsed.frame()
	ranks := quant.Build(trainFrame, bundle, trainParsed.yFloat)
	predictor := quant.NewPredictor(bundle, ranks)

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

	for row := 0; row < frm.NRow(); row++ {
		fmt.Printf("%f\n", predictor.PredictQuantile(frm, row, c.q))
	}
	return nil
}
