package main

import (
	"github.com/spf13/cobra"

	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/grouping"
)

var (
	inputPath string
	indexPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare an upload's columns with the item index",
	RunE:  runValidate,
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Suggest grouping columns for an upload",
	RunE:  runColumns,
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, columnsCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "Survey export (.xlsx or .csv)")
		_ = c.MarkFlagRequired("input")
	}
	validateCmd.Flags().StringVar(&indexPath, "index", "", "Item index workbook (default: configured index_path)")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, log, _, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	reader := dataset.NewReader(log)
	table, err := reader.LoadTable(inputPath)
	if err != nil {
		return err
	}
	if indexPath == "" {
		indexPath = cfg.IndexPath
	}
	index, err := reader.LoadIndex(indexPath)
	if err != nil {
		return err
	}
	opts := cfg.ReportOptions()
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"organization": dataset.DetectOrganization(table),
		"validation":   dataset.Validate(table, index),
		"summary":      dataset.Summarize(table, index, opts.Scoring.Normalizer, opts.Scoring.ObjectiveRatio),
	})
}

func runColumns(cmd *cobra.Command, _ []string) error {
	_, log, _, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	table, err := dataset.NewReader(log).LoadTable(inputPath)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), grouping.CandidateColumns(table))
}
