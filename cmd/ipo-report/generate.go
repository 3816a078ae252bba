package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ipo-report-go/internal/app"
	"ipo-report-go/internal/dataset"
	"ipo-report-go/internal/pdf"
	"ipo-report-go/internal/processor"
)

var genFlags struct {
	input        string
	index        string
	group        string
	out          string
	includeWhole bool
	interpret    bool
	force        bool
	pdf          bool
	emailTo      []string
	noStore      bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build reports for an upload and write them to disk",
	Example: `  ipo-report generate -i survey.xlsx --group 팀 --pdf -o out/
  ipo-report generate -i survey.csv --index items.xlsx --interpret --email hr@example.com`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genFlags.input, "input", "i", "", "Survey export (.xlsx or .csv)")
	f.StringVar(&genFlags.index, "index", "", "Item index workbook (default: configured index_path)")
	f.StringVarP(&genFlags.group, "group", "g", "", "Column that partitions respondents into units")
	f.StringVarP(&genFlags.out, "out", "o", "", "Output directory (default: configured output_dir)")
	f.BoolVar(&genFlags.includeWhole, "whole", false, "Also build the whole-organization report")
	f.BoolVar(&genFlags.interpret, "interpret", false, "Add AI interpretation")
	f.BoolVar(&genFlags.force, "force", false, "Ignore cached interpretations")
	f.BoolVar(&genFlags.pdf, "pdf", false, "Print PDFs through Chrome")
	f.StringSliceVar(&genFlags.emailTo, "email", nil, "Mail the result to these addresses")
	f.BoolVar(&genFlags.noStore, "no-store", false, "Do not record the run in the database")
	_ = generateCmd.MarkFlagRequired("input")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, log, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	if genFlags.pdf {
		cfg.PDF.Enabled = true
	}

	reader := dataset.NewReader(log)
	table, err := reader.LoadTable(genFlags.input)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, log, app.Options{SkipStore: genFlags.noStore})
	if err != nil {
		return err
	}
	defer a.Close()

	index := a.Index
	if genFlags.index != "" {
		if index, err = reader.LoadIndex(genFlags.index); err != nil {
			return err
		}
	}
	if len(index) == 0 {
		return errors.New("no item index: pass --index or configure index_path")
	}

	res, err := a.Processor.Run(ctx, processor.Request{
		Table:          table,
		Index:          index,
		GroupColumn:    genFlags.group,
		IncludeWhole:   genFlags.includeWhole,
		Interpret:      genFlags.interpret,
		ForceInterpret: genFlags.force,
		PDF:            genFlags.pdf,
		EmailTo:        genFlags.emailTo,
	})
	if err != nil {
		return err
	}

	out := genFlags.out
	if out == "" {
		out = cfg.Storage.OutputDir
	}
	written, err := writeResult(out, res)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintln(cmd.ErrOrStderr(), "degraded:", d)
	}
	for _, p := range written {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

// writeResult stores every unit's HTML and PDF plus the zip bundle under dir.
func writeResult(dir string, res *processor.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var written []string
	put := func(name string, data []byte) error {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, p)
		return nil
	}
	for _, u := range res.Units {
		if err := put(strings.TrimSuffix(pdf.FileName(u.Record.UnitName), ".pdf")+".html", []byte(u.HTML)); err != nil {
			return written, err
		}
		if len(u.PDF) > 0 {
			if err := put(u.PDFName, u.PDF); err != nil {
				return written, err
			}
		}
	}
	if len(res.Bundle) > 0 {
		if err := put(res.BundleName(), res.Bundle); err != nil {
			return written, err
		}
	}
	return written, nil
}
