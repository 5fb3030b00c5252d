// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smart-discovery/internal/ledger"
	"github.com/pdiddy/smart-discovery/internal/pipeline"
	"github.com/pdiddy/smart-discovery/internal/publish"
	"github.com/pdiddy/smart-discovery/internal/source"
	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [sources...]",
	Short: "Build a discovery report from one or more sources",
	Long: `Run executes the full pipeline. Sources are Notion page URLs or ids, web
page URLs, Markdown or text files, PDF or Office files (converted with the
markitdown image under docker or podman), or "-" for stdin. With no sources
the customer config's input pages are used.

Rendered files are written to the output directory. When a ledger dir is
configured the run is recorded; when a publish endpoint is configured the
files are uploaded.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := customerConfig(cmd)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		settings.Output.Dir = dir
	}
	if formats, _ := cmd.Flags().GetStringSlice("format"); len(formats) > 0 {
		settings.Output.Formats = settings.Output.Formats[:0]
		for _, f := range formats {
			settings.Output.Formats = append(settings.Output.Formats, types.OutputFormat(strings.TrimSpace(f)))
		}
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		settings.AI.Model = model
	}

	opts := pipeline.Options{
		Settings: settings,
		Progress: cmd.OutOrStdout(),
	}

	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); !noLedger {
		store, err := openLedger()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			opts.Ledger = store
		}
	}
	if noPublish, _ := cmd.Flags().GetBool("no-publish"); !noPublish {
		pub, err := publish.New(cmd.Context(), settings.Publish)
		switch {
		case errors.Is(err, publish.ErrDisabled):
		case err != nil:
			return err
		default:
			opts.Publisher = pub
		}
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Input{Config: cfg, Refs: args}, opts)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report)
	}
	fmt.Fprintf(out, "\nrun %s: %d sections, %d slides, %d/%d bullets grounded, %d evidence items\n",
		res.RunID, len(res.Report.Sections), res.Plan.Total,
		res.Validation.GroundedBullets, res.Validation.TotalBullets, res.Report.Evidence.Len())
	return nil
}

// customerConfig loads --customer-config when given, otherwise builds a
// config from --customer alone.
func customerConfig(cmd *cobra.Command) (types.CustomerConfig, []string, error) {
	path, _ := cmd.Flags().GetString("customer-config")
	name, _ := cmd.Flags().GetString("customer")

	if path == "" {
		return types.CustomerConfig{Name: name}, nil, nil
	}
	fallback := name
	if fallback == "" {
		fallback = "Customer"
	}
	cfg, warnings, err := loadCustomerConfig(cmd.Context(), path, fallback)
	if err != nil {
		return cfg, warnings, err
	}
	if name != "" {
		cfg.Name = name
	}
	return cfg, warnings, nil
}

// loadCustomerConfig reads a config file, or a Notion config page when ref
// is a Notion URL or id rather than a local file. The named config page is
// read outside the safe-mode allowlist; blocked patterns still apply.
func loadCustomerConfig(ctx context.Context, ref, fallbackName string) (types.CustomerConfig, []string, error) {
	if _, err := os.Stat(ref); err == nil || !source.IsNotionRef(ref) {
		return template.LoadConfig(ref)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	reader := source.NewNotionReader(settings.Notion)
	reader.Policy.SafeMode = false
	return template.LoadConfigPage(ctx, reader, ref, fallbackName)
}

// openLedger returns nil without error when no ledger dir is configured.
func openLedger() (*ledger.Store, error) {
	store, err := ledger.Open(settings.Ledger)
	if errors.Is(err, ledger.ErrDisabled) {
		return nil, nil
	}
	return store, err
}

func init() {
	runCmd.Flags().StringP("customer-config", "c", "", "customer config: YAML or Markdown file, or a Notion config page URL or id")
	runCmd.Flags().String("customer", "", "customer name (overrides the config's name)")
	runCmd.Flags().StringP("output-dir", "o", "", "directory for rendered files (default from settings)")
	runCmd.Flags().StringSlice("format", nil, "output formats: markdown, slides, xlsx")
	runCmd.Flags().String("model", "", "Claude model for drafting (default: extractive drafting)")
	runCmd.Flags().Bool("no-ledger", false, "do not record the run in the evidence ledger")
	runCmd.Flags().Bool("no-publish", false, "do not upload rendered files")
	runCmd.Flags().Bool("json", false, "print the final report as JSON")

	rootCmd.AddCommand(runCmd)
}
