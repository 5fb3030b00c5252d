// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smart-discovery/internal/budget"
	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// setDefaults registers every settings key so environment variables such
// as SMART_DISCOVERY_NOTION_TOKEN reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.timeout", 30*time.Second)
	v.SetDefault("notion.user_agent", "smart-discovery/"+version)
	v.SetDefault("notion.max_depth", 3)
	v.SetDefault("notion.safe_mode", true)
	v.SetDefault("notion.allowed_pages", []string{})
	v.SetDefault("notion.allowed_workspaces", []string{})
	v.SetDefault("notion.blocked_patterns", []string{})

	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.timeout", 120*time.Second)
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("ai.max_evidence", 120)

	v.SetDefault("convert.runtime", "auto")
	v.SetDefault("convert.image", "markitdown:latest")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.formats", []string{string(types.OutputMarkdown), string(types.OutputSlides)})

	v.SetDefault("ledger.dir", "")

	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.bucket", "discovery-reports")
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("publish.prefix", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.request_timeout", 5*time.Minute)
}

// loadSettings unmarshals the merged file, env and default values.
func loadSettings() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading settings: %w", err)
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect customer configs and pipeline settings",
}

var configCheckCmd = &cobra.Command{
	Use:   "check <customer-config>",
	Short: "Parse and validate a customer config",
	Long: `Check loads a customer config (YAML, or a Markdown config page with
Required Sections, Terminology, Slide Budget and Template Slots headings,
either as a file or a Notion page),
applies defaults, validates it, and prints the resulting template.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, warnings, err := loadCustomerConfig(cmd.Context(), args[0], "Customer")
		if err != nil {
			return err
		}
		warnings = append(warnings, template.ApplyDefaults(&cfg)...)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if err := template.Validate(cfg); err != nil {
			return err
		}

		tpl := template.BuildTemplate(cfg)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "customer: %s\n", cfg.Name)
		fmt.Fprintf(out, "slide budget: min %d, max %d, %d per section, %d bullets per slide\n",
			cfg.SlideBudget.Min, cfg.SlideBudget.Max, cfg.SlideBudget.PerSectionMax, cfg.SlideBudget.BulletsPerSlide)
		fmt.Fprintf(out, "terminology: %d rules\n", len(cfg.Terminology))
		fmt.Fprintln(out, "slots:")
		for _, slot := range tpl.Slots {
			fmt.Fprintf(out, "  %-30s target %d slides, keywords %v\n", slot.Name, slot.SlideTarget, slot.Keywords)
		}

		// Smallest deck the config can produce: every slot as a divider only.
		empty := make([]types.Section, len(tpl.Slots))
		fmt.Fprintf(out, "minimum deck: %d slides\n", budget.Total(empty, cfg.SlideBudget.BulletsPerSlide))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective pipeline settings with credentials masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		masked := settings
		mask(&masked.Notion.Token)
		mask(&masked.AI.APIKey)
		mask(&masked.Publish.AccessKey)
		mask(&masked.Publish.SecretKey)

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(masked)
	},
}

func mask(s *string) {
	if *s != "" {
		*s = "****"
	}
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
