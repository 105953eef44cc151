package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "uitestgen",
	Short: "Generate pytest UI tests from component schemas",
	Long: `uitestgen reads UI schema files, finds similar stored test patterns and writes
pytest suites: adapted patterns when a close match exists, model-written or template
tests otherwise, plus edge-case and integration tests.

Commands:
  ingest   - store the built-in and extra patterns
  generate - write test suites for schema files
  browse   - search stored patterns interactively
  status   - show backend health`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default ./uitestgen.yaml or ~/.config/uitestgen/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(ingestCmd, generateCmd, browseCmd, statusCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
