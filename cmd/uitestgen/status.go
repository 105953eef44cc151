package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"uitestgen/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show embedder, store and external search health",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.svc.Status(ctx)
	printStatus(cmd.OutOrStdout(), a.cfgPath, st)
	if a.cached != nil {
		hits, misses := a.cached.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "Embedding cache: %d hits, %d misses\n", hits, misses)
	}
	if !st.StoreHealthy {
		return fmt.Errorf("vector store unhealthy: %s", st.StoreError)
	}
	return nil
}

func printStatus(w io.Writer, cfgPath string, st service.Status) {
	fmt.Fprintf(w, "Config:    %s\n", cfgPath)
	fmt.Fprintf(w, "Embedder:  %s (dimension %d)\n", st.Embedder, st.Dimension)
	fmt.Fprintf(w, "Generator: %s\n", st.Generator)
	if st.StoreHealthy {
		fmt.Fprintf(w, "Store:     ok, %d patterns\n", st.Patterns)
	} else {
		fmt.Fprintf(w, "Store:     unavailable (%s)\n", st.StoreError)
	}
	if st.Search == nil {
		fmt.Fprintln(w, "Search:    disabled")
		return
	}
	h := st.Search
	fmt.Fprintf(w, "Search:    %s key=%t reachable=%t cache=%s healthy=%t\n",
		h.BaseURL, h.APIAvailable, h.APIReachable, h.CacheBackend, h.CacheHealthy)
}
