// Command ipo-report builds organizational effectiveness reports from survey
// exports without running the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ipo-report-go/internal/config"
	"ipo-report-go/internal/logger"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "ipo-report",
	Short:         "Generate IPO organizational effectiveness reports",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (or set CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(generateCmd, validateCmd, columnsCmd, cleanupCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config and a stderr logger so stdout stays machine readable.
func setup(cmd *cobra.Command) (config.Config, *logger.Logger, context.Context, context.CancelFunc, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	cfg, err := config.Load(configPath)
	log := logger.NewWithOptions(logger.Options{Level: level, Output: cmd.ErrOrStderr()})
	if err != nil {
		return cfg, log, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return cfg, log, ctx, cancel, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
