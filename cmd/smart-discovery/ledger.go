// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smart-discovery/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Search and trace evidence recorded across runs",
	Long: `Ledger queries the local SQLite evidence ledger written by run when
ledger.dir is configured. Search is full-text over evidence quotes and
section names; trace shows every run and bullet that used an evidence id.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("ledger-dir"); dir != "" {
			settings.Ledger.Dir = dir
		}
		return nil
	},
}

var ledgerSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over recorded evidence",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := ledger.Open(settings.Ledger)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		hits, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return encodeJSON(out, hits)
		}
		if len(hits) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}

		fmt.Fprintf(out, "%-4s  %-13s  %-50s  %-20s  %s\n", "Rank", "ID", "Quote", "Section", "Customer")
		fmt.Fprintln(out, strings.Repeat("-", 110))
		for i, h := range hits {
			fmt.Fprintf(out, "%-4d  %-13s  %-50s  %-20s  %s\n",
				i+1, h.ID, truncate(h.Quote, 50), truncate(h.Section, 20), h.Customer)
		}
		fmt.Fprintf(out, "\n%d results\n", len(hits))
		return nil
	},
}

var ledgerTraceCmd = &cobra.Command{
	Use:   "trace <evidence-id>",
	Short: "Show where an evidence id came from and which bullets cited it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := ledger.Open(settings.Ledger)
		if err != nil {
			return err
		}
		defer store.Close()

		trace, err := store.Trace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !trace.Found() {
			return fmt.Errorf("evidence %s not found in ledger", args[0])
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return encodeJSON(out, trace)
		}
		fmt.Fprintf(out, "%s\n", trace.ID)
		if len(trace.Items) > 0 {
			first := trace.Items[0]
			fmt.Fprintf(out, "  quote:   %q\n", first.Quote)
			fmt.Fprintf(out, "  source:  %s\n", first.SourcePath())
			if first.Source.URL != "" {
				fmt.Fprintf(out, "  url:     %s\n", first.Source.URL)
			}
		}
		fmt.Fprintf(out, "\nextracted in %d run(s):\n", len(trace.Items))
		for _, it := range trace.Items {
			fmt.Fprintf(out, "  %s  %s\n", it.RunID, it.Customer)
		}
		fmt.Fprintf(out, "\ncited by %d bullet(s):\n", len(trace.Citations))
		for _, c := range trace.Citations {
			fmt.Fprintf(out, "  %s  %s > %s\n", c.RunID, c.Section, c.Bullet)
		}
		return nil
	},
}

var ledgerRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := ledger.Open(settings.Ledger)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return encodeJSON(out, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %s  %-20s  %d sections, %d bullets, %d evidence\n",
				r.ID, r.GeneratedAt.Format("2006-01-02 15:04"), truncate(r.Customer, 20),
				r.Sections, r.Bullets, r.Evidence)
		}
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	ledgerCmd.PersistentFlags().String("ledger-dir", "", "ledger directory (default from settings)")
	ledgerCmd.PersistentFlags().Bool("json", false, "output as JSON")
	ledgerSearchCmd.Flags().Int("limit", 20, "maximum results")

	ledgerCmd.AddCommand(ledgerSearchCmd)
	ledgerCmd.AddCommand(ledgerTraceCmd)
	ledgerCmd.AddCommand(ledgerRunsCmd)
	rootCmd.AddCommand(ledgerCmd)
}
