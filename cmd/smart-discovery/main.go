// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the smart-discovery CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/smart-discovery/internal/logging"
	"github.com/pdiddy/smart-discovery/internal/secrets"
	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/internal/validate"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit codes returned by main.
const (
	exitError      = 1
	exitConfig     = 2
	exitUngrounded = 3
)

// settings is the effective pipeline configuration, loaded before every
// subcommand runs.
var settings types.PipelineConfig

// envKeyReplacer maps nested keys to env names: notion.token becomes
// SMART_DISCOVERY_NOTION_TOKEN.
var envKeyReplacer = strings.NewReplacer(".", "_")

// logCloser closes the log file opened in PersistentPreRunE.
var logCloser io.Closer

// rootCmd is the base command for the smart-discovery CLI.
var rootCmd = &cobra.Command{
	Use:   "smart-discovery",
	Short: "Evidence-grounded discovery reports from Notion pages and notes",
	Long: `smart-discovery turns discovery notes (Notion pages, web pages, Markdown
files, or pasted text) into a customer report in which every bullet cites
the evidence it came from.

The pipeline reads sources, extracts evidence items with stable ids, routes
them into the sections a customer config requires, drafts cited bullets,
strips anything ungrounded, fits the result into a slide budget, and renders
Markdown, a Marp slide deck, and an evidence register.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}

		settings, err = loadSettings()
		if err != nil {
			return err
		}
		applied := secrets.Apply(s, &settings)

		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			settings.Log.Level = "debug"
		}
		_, closer, err := logging.Setup(settings.Log, os.Stderr)
		if err != nil {
			return err
		}
		logCloser = closer

		if len(applied) > 0 {
			sort.Strings(applied)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", applied)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./smart-discovery.yaml or ~/.config/smart-discovery/smart-discovery.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of secret files (notion-token, anthropic-api-key, minio-access-key, minio-secret-key)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("smart-discovery")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "smart-discovery"))
		}
	}

	viper.SetEnvPrefix("SMART_DISCOVERY")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, template.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, validate.ErrUngrounded):
		return exitUngrounded
	default:
		return exitError
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
