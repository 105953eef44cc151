package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/output"
	"uitestgen/internal/schema"
)

var (
	generateOut    string
	generateWatch  bool
	generateReport string
	generatePretty bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <schema.json...>",
	Short: "Write pytest suites for UI schema files",
	Long: `Generate a pytest suite for every schema file. Arguments may be globs; only .json
files are read. A screen whose schema is invalid is reported and skipped.

With --watch, the schema files are regenerated whenever they change.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Output directory (default from config)")
	generateCmd.Flags().BoolVarP(&generateWatch, "watch", "w", false, "Regenerate when schema files change")
	generateCmd.Flags().StringVar(&generateReport, "report", "", "Also write a report: "+strings.Join(output.Formats(), ", "))
	generateCmd.Flags().BoolVar(&generatePretty, "pretty", false, "Print a rendered markdown summary")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if generateReport != "" && !validFormat(generateReport) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, generateReport)
	}
	paths, err := schema.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return domain.ErrNoSchemas
	}
	out := generateOut
	if out == "" {
		out = a.cfg.Pipeline.OutputDir
	}
	r := &runner{
		app:    a,
		writer: output.NewWriter(out, a.cfg.Pipeline.BaseURL, a.logger.Named("output")),
		outDir: out,
		report: generateReport,
		pretty: generatePretty,
		stdout: cmd.OutOrStdout(),
	}

	err = r.run(ctx, paths)
	if !generateWatch {
		return err
	}
	if err != nil {
		a.logger.Warn("initial generation had failures", zap.Error(err))
	}
	fmt.Fprintf(r.stdout, "Watching %d schema files, Ctrl-C to stop\n", len(paths))
	return watchSchemas(ctx, paths, defaultDebounce, a.logger.Named("watch"), func(path string) {
		if err := r.run(ctx, []string{path}); err != nil {
			a.logger.Error("regeneration failed", zap.String("path", path), zap.Error(err))
		}
	})
}

// runner generates, writes and reports suites for schema paths.
type runner struct {
	app    *app
	writer *output.Writer
	outDir string
	report string
	pretty bool
	stdout io.Writer
}

// run processes every path. A failing screen does not stop the others; the joined
// errors are returned at the end.
func (r *runner) run(ctx context.Context, paths []string) error {
	var runs []output.Run
	var errs []error
	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		screen, err := schema.Load(path)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(r.stdout, "FAIL %s: %v\n", path, err)
			continue
		}
		suite, err := r.app.svc.Generate(ctx, screen)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
			fmt.Fprintf(r.stdout, "FAIL %s: %v\n", path, err)
			continue
		}
		file, err := r.writer.Write(suite.Suite)
		if err != nil {
			return err
		}
		run := output.Run{Suite: suite.Suite, Review: &suite.Report}
		runs = append(runs, run)
		r.summarize(file, run)
	}
	if len(runs) > 0 {
		if err := r.writeReport(runs); err != nil {
			return err
		}
		printUsage(r.stdout, r.app.svc.Usage(), 5)
	}
	return errors.Join(errs...)
}

func (r *runner) summarize(file string, run output.Run) {
	s := run.Suite
	st := s.Stats
	fmt.Fprintf(r.stdout, "OK   %s: %d tests (%d adapted, %d ai, %d template, %d edge case, %d integration)",
		file, st.Total, st.Adapted, st.AIGenerated, st.Fallback, st.EdgeCase, st.Integration)
	if cov, err := output.ComputeCoverage(s.Screen, s.Tests); err == nil {
		fmt.Fprintf(r.stdout, ", coverage %.0f%%", cov.Percent)
	}
	if n := len(s.Issues); n > 0 {
		fmt.Fprintf(r.stdout, ", %d issues", n)
	}
	if rv := run.Review; rv != nil && rv.Summary.Components > 0 {
		sum := rv.Summary
		fmt.Fprintf(r.stdout, ", review %d/%d valid", sum.Valid, sum.Components)
		if sum.SecurityNotes > 0 {
			fmt.Fprintf(r.stdout, ", %d security notes", sum.SecurityNotes)
		}
		if sum.ExternalSuggestion > 0 {
			fmt.Fprintf(r.stdout, ", %d external suggestions", sum.ExternalSuggestion)
		}
	}
	fmt.Fprintln(r.stdout)
}

// printUsage lists the n stored patterns discovered most often in this process.
func printUsage(w io.Writer, usage map[string]int, n int) {
	if len(usage) == 0 {
		return
	}
	ids := make([]string, 0, len(usage))
	for id := range usage {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if usage[ids[i]] != usage[ids[j]] {
			return usage[ids[i]] > usage[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s (%d)", id, usage[id])
	}
	fmt.Fprintf(w, "Most discovered patterns: %s\n", strings.Join(parts, ", "))
}

func (r *runner) writeReport(runs []output.Run) error {
	if r.report != "" {
		path := filepath.Join(r.outDir, "report."+reportExt(r.report))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := output.Export(f, runs, r.report); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(r.stdout, "Report written to %s\n", path)
	}
	if r.pretty {
		rendered, err := output.Pretty(output.RenderMarkdown(runs), 100)
		if err != nil {
			return err
		}
		fmt.Fprint(r.stdout, rendered)
	}
	return nil
}

func validFormat(format string) bool {
	f := strings.ToLower(format)
	return f == "md" || slices.Contains(output.Formats(), f)
}

func reportExt(format string) string {
	switch strings.ToLower(format) {
	case "junit":
		return "xml"
	case "markdown", "md":
		return "md"
	default:
		return strings.ToLower(format)
	}
}
