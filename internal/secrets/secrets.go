// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognised key files are listed in the Key constants; other files are
// loaded too and simply ignored by the CLI.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// Key file names read by the CLI.
const (
	KeyNotionToken     = "notion-token"
	KeyAnthropicAPIKey = "anthropic-api-key"
	KeyMinioAccessKey  = "minio-access-key"
	KeyMinioSecretKey  = "minio-secret-key"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills credentials in cfg that are still empty after config and
// environment loading. Values already set always win.
func Apply(secrets map[string]string, cfg *types.PipelineConfig) []string {
	var applied []string
	set := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := secrets[key]; ok {
			*dst = v
			applied = append(applied, key)
		}
	}
	set(&cfg.Notion.Token, KeyNotionToken)
	set(&cfg.AI.APIKey, KeyAnthropicAPIKey)
	set(&cfg.Publish.AccessKey, KeyMinioAccessKey)
	set(&cfg.Publish.SecretKey, KeyMinioSecretKey)
	return applied
}
