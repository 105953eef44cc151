package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"uitestgen/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Search stored test patterns interactively",
	RunE:  runBrowse,
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.svc.IngestPatterns(ctx, nil); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	st := a.svc.Status(ctx)
	summary := fmt.Sprintf("%s embeddings, %d patterns, generator %s", st.Embedder, st.Patterns, st.Generator)

	p := tea.NewProgram(tui.New(a.svc, summary), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
