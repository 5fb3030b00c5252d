// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smart-discovery/internal/evidence"
	"github.com/pdiddy/smart-discovery/internal/pipeline"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <sources...>",
	Short: "Extract evidence items from sources without drafting a report",
	Long: `Extract reads the sources and prints every evidence item with its stable
id, section, block type and source path. Use it to inspect what a report
can cite before running the full pipeline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minLength, _ := cmd.Flags().GetInt("min-length")
		format, _ := cmd.Flags().GetString("format")

		reader := pipeline.NewReader(settings, os.Stdin)
		var docs []types.Document
		for _, ref := range args {
			doc, err := reader.Read(cmd.Context(), ref)
			if err != nil {
				return fmt.Errorf("read %s: %w", ref, err)
			}
			fmt.Fprintf(os.Stderr, "read    %s (%d blocks)\n", ref, len(doc.Blocks))
			docs = append(docs, doc)
		}
		items := evidence.ExtractDocuments(docs, minLength).Items()

		out := cmd.OutOrStdout()
		switch format {
		case "yaml", "":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(items)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		case "text":
			for _, it := range items {
				fmt.Fprintln(out, evidence.FormatCitation(it))
			}
			fmt.Fprintf(out, "\n%d evidence items\n", len(items))
			return nil
		default:
			return fmt.Errorf("unsupported format %q: use yaml, json or text", format)
		}
	},
}

func init() {
	extractCmd.Flags().String("format", "yaml", "output format: yaml, json or text")
	extractCmd.Flags().Int("min-length", evidence.DefaultMinLength, "minimum evidence text length in characters")

	rootCmd.AddCommand(extractCmd)
}
