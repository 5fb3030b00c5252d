// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/internal/validate"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitConfig, exitCode(fmt.Errorf("config: %w", template.ErrInvalidConfig)))
	assert.Equal(t, exitUngrounded, exitCode(fmt.Errorf("validate: %w", validate.ErrUngrounded)))
	assert.Equal(t, exitError, exitCode(fmt.Errorf("read x: boom")))
}

func TestLoadSettingsDefaultsAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("SMART_DISCOVERY_NOTION_TOKEN", "secret_env")
	t.Setenv("SMART_DISCOVERY_LEDGER_DIR", "/tmp/ledger")

	viper.SetEnvPrefix("SMART_DISCOVERY")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	cfg, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "secret_env", cfg.Notion.Token)
	assert.Equal(t, "/tmp/ledger", cfg.Ledger.Dir)
	assert.Equal(t, 30*time.Second, cfg.Notion.Timeout)
	assert.True(t, cfg.Notion.SafeMode, "pages outside the allowlist are denied by default")
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, []types.OutputFormat{types.OutputMarkdown, types.OutputSlides}, cfg.Output.Formats)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "markitdown:latest", cfg.Convert.Image)
	assert.Equal(t, "auto", cfg.Convert.Runtime)
}

func TestLoadSettingsFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "smart-discovery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
notion:
  max_depth: 2
  safe_mode: false
  allowed_pages: [abc]
ai:
  model: claude-sonnet-4-20250514
output:
  dir: reports
  formats: [markdown, xlsx]
`), 0o644))
	viper.SetConfigFile(path)
	setDefaults(viper.GetViper())
	require.NoError(t, viper.ReadInConfig())

	cfg, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Notion.MaxDepth)
	assert.False(t, cfg.Notion.SafeMode, "safe mode can be turned off")
	assert.Equal(t, []string{"abc"}, cfg.Notion.AllowedPages)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.AI.Model)
	assert.Equal(t, "reports", cfg.Output.Dir)
	assert.Equal(t, []types.OutputFormat{types.OutputMarkdown, types.OutputXLSX}, cfg.Output.Formats)
}

func TestCustomerConfig(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("customer-config", "", "")
		cmd.Flags().String("customer", "", "")
		return cmd
	}

	t.Run("name only", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("customer", "Acme"))
		cfg, warnings, err := customerConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, "Acme", cfg.Name)
		assert.Empty(t, warnings)
	})

	t.Run("file with name override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "acme.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: Acme Corp\nmust_include: [Key Findings]\n"), 0o644))

		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("customer-config", path))
		require.NoError(t, cmd.Flags().Set("customer", "Acme"))
		cfg, _, err := customerConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, "Acme", cfg.Name)
		assert.Equal(t, []string{"Key Findings"}, cfg.MustInclude)
	})

	t.Run("missing file", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("customer-config", filepath.Join(t.TempDir(), "nope.yaml")))
		_, _, err := customerConfig(cmd)
		assert.Error(t, err)
	})

	t.Run("notion config page", func(t *testing.T) {
		old := settings
		t.Cleanup(func() { settings = old })
		const pageID = "0123456789abcdef0123456789abcdef"
		settings.Notion = types.NotionConfig{Token: "test-token", SafeMode: true, BlockedPatterns: []string{"private"}}

		cmd := newCmd()
		require.NoError(t, cmd.Flags().Set("customer-config", "https://www.notion.so/acme/Private-Config-"+pageID))
		_, _, err := customerConfig(cmd)
		require.Error(t, err)
		assert.ErrorIs(t, err, template.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "blocked", "the config page skips the allowlist but not blocked patterns")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Revenue...", truncate("Revenue grew 20% YoY", 10))
}

func TestMask(t *testing.T) {
	s, empty := "sk-ant-123", ""
	mask(&s)
	mask(&empty)
	assert.Equal(t, "****", s)
	assert.Empty(t, empty)
}
