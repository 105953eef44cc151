package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uitestgen/internal/domain"
	"uitestgen/internal/pattern"
)

var (
	ingestReset    bool
	ingestExternal bool
	ingestTrending string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [patterns.json...]",
	Short: "Store the built-in test patterns plus patterns from JSON files",
	Long: `Embed and store the built-in pattern library. Extra patterns are read from JSON
files holding an array of {id, component_type, description, template, tags, complexity}.

With --external, published patterns for every supported component type are pulled from
the external search API and stored as well. --trending adds the API's trending patterns
for a period (day, week or month, default week).`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "Clear the store before ingesting")
	ingestCmd.Flags().BoolVar(&ingestExternal, "external", false, "Also ingest patterns from the external search API")
	ingestCmd.Flags().StringVar(&ingestTrending, "trending", "", "Also ingest trending external patterns of a period: day, week, month")
	ingestCmd.Flags().Lookup("trending").NoOptDefVal = "week"
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var extra []domain.Pattern
	for _, path := range args {
		ps, err := pattern.LoadFile(path)
		if err != nil {
			return err
		}
		extra = append(extra, ps...)
	}

	if ingestReset {
		if err := a.svc.Reset(ctx); err != nil {
			return err
		}
	}
	n, err := a.svc.IngestPatterns(ctx, extra)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d patterns (%d from files)\n", n, len(extra))

	if ingestExternal {
		m, err := a.svc.IngestExternal(ctx)
		if err != nil {
			return fmt.Errorf("external ingest failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d external patterns\n", m)
	}
	if ingestTrending != "" {
		switch ingestTrending {
		case "day", "week", "month":
		default:
			return fmt.Errorf("trending period %q: want day, week or month", ingestTrending)
		}
		m, err := a.svc.IngestTrending(ctx, ingestTrending)
		if err != nil {
			return fmt.Errorf("trending ingest failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d trending patterns (%s)\n", m, ingestTrending)
	}
	return nil
}
