package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ipo-report-go/internal/store"
)

var (
	cleanupDays int
	exportPath  string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stored reports and logs older than the retention window",
	RunE:  runCleanup,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export organizations, reports and delivery logs to a workbook",
	RunE:  runExport,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "Age in days (default: configured retention_days)")
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "ipo-report-admin.xlsx", "Workbook path")
}

func openStore(cmd *cobra.Command) (*store.Store, int, func(), error) {
	cfg, log, ctx, cancel, err := setup(cmd)
	if err != nil {
		return nil, 0, nil, err
	}
	st, err := store.Open(ctx, cfg.Storage.DatabasePath, log)
	if err != nil {
		cancel()
		return nil, 0, nil, err
	}
	return st, cfg.Storage.RetentionDays, func() { st.Close(); cancel() }, nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	st, retention, done, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer done()
	days := cleanupDays
	if days == 0 {
		days = retention
	}
	if days <= 0 {
		return errors.New("retention is disabled; pass --days")
	}
	n, err := st.CleanOldData(cmd.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows older than %d days\n", n, days)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	st, _, done, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer done()
	f, err := os.Create(exportPath)
	if err != nil {
		return err
	}
	if err := st.ExportWorkbook(cmd.Context(), f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), exportPath)
	return nil
}
