// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package template loads customer configuration and turns it into the
// ordered list of report slots the analyzer fills.
package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/smart-discovery/internal/source"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// ErrInvalidConfig is returned when a customer config is missing or
// internally inconsistent. The pipeline halts before reading any source.
var ErrInvalidConfig = errors.New("invalid customer config")

// LoadConfig reads a customer config file. Files ending in .md or
// .markdown use the config-page format; anything else is YAML. Defaults are
// applied and reported as warnings. The result is not validated.
func LoadConfig(path string) (types.CustomerConfig, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CustomerConfig{}, nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		base := filepath.Base(path)
		cfg, warnings := ParseConfigMarkdown(string(data), strings.TrimSuffix(base, filepath.Ext(base)))
		return cfg, warnings, nil
	default:
		cfg, err := ParseConfigYAML(data)
		if err != nil {
			return types.CustomerConfig{}, nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, ApplyDefaults(&cfg), nil
	}
}

// LoadConfigPage reads a config page through r, typically a Notion page,
// and parses it in the config-page format. The customer name comes from an
// H1 on the page, then the page title, then fallbackName. A page that
// cannot be read is a config error.
func LoadConfigPage(ctx context.Context, r source.Reader, ref, fallbackName string) (types.CustomerConfig, []string, error) {
	doc, err := r.Read(ctx, ref)
	if err != nil {
		return types.CustomerConfig{}, nil, fmt.Errorf("%w: reading config page %s: %w", ErrInvalidConfig, ref, err)
	}

	// Readers that emit the page title as a leading H1 would shadow a
	// name heading written on the page itself.
	blocks := doc.Blocks
	if len(blocks) > 1 && isHeading1(blocks[0]) && blocks[0].Text == doc.Source.Title {
		for _, b := range blocks[1:] {
			if isHeading1(b) {
				blocks = blocks[1:]
				break
			}
		}
	}

	cfg, warnings := ParseConfigMarkdown(source.MarkdownText(blocks), fallbackName)
	return cfg, warnings, nil
}

func isHeading1(b types.Block) bool {
	return b.Type == types.BlockHeading && b.Level == 1
}

// ParseConfigYAML decodes a YAML customer config. Unknown keys are errors.
func ParseConfigYAML(data []byte) (types.CustomerConfig, error) {
	var cfg types.CustomerConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return types.CustomerConfig{}, fmt.Errorf("%w: parsing yaml: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields of cfg and returns a warning for each
// default that changes what the report will contain.
func ApplyDefaults(cfg *types.CustomerConfig) []string {
	var warnings []string
	if len(cfg.MustInclude) == 0 {
		cfg.MustInclude = append([]string(nil), types.DefaultMustInclude...)
		warnings = append(warnings, fmt.Sprintf(
			"no required sections configured, using defaults: %s",
			strings.Join(types.DefaultMustInclude, ", ")))
	}

	def := types.DefaultSlideBudget()
	if cfg.SlideBudget.Min == 0 {
		cfg.SlideBudget.Min = def.Min
	}
	if cfg.SlideBudget.Max == 0 {
		cfg.SlideBudget.Max = def.Max
	}
	if cfg.SlideBudget.PerSectionMax == 0 {
		cfg.SlideBudget.PerSectionMax = def.PerSectionMax
	}
	if cfg.SlideBudget.BulletsPerSlide == 0 {
		cfg.SlideBudget.BulletsPerSlide = def.BulletsPerSlide
	}
	return warnings
}

// Validate checks cfg for problems that would make a run meaningless.
// All problems are reported together, wrapped in ErrInvalidConfig.
func Validate(cfg types.CustomerConfig) error {
	var merr *multierror.Error

	if strings.TrimSpace(cfg.Name) == "" {
		merr = multierror.Append(merr, errors.New("customer name is empty"))
	}
	if len(cfg.MustInclude) == 0 {
		merr = multierror.Append(merr, errors.New("no required sections"))
	}

	seen := make(map[string]bool)
	for _, name := range cfg.MustInclude {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			merr = multierror.Append(merr, errors.New("required section name is empty"))
			continue
		}
		if seen[key] {
			merr = multierror.Append(merr, fmt.Errorf("required section %q listed twice", name))
		}
		seen[key] = true
	}

	b := cfg.SlideBudget
	if b.Min < 0 {
		merr = multierror.Append(merr, fmt.Errorf("slide budget min %d is negative", b.Min))
	}
	if b.Max <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("slide budget max %d must be positive", b.Max))
	}
	if b.Min > b.Max {
		merr = multierror.Append(merr, fmt.Errorf("slide budget min %d exceeds max %d", b.Min, b.Max))
	}
	if b.PerSectionMax <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("per-section max %d must be positive", b.PerSectionMax))
	}
	if b.BulletsPerSlide <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("bullets per slide %d must be positive", b.BulletsPerSlide))
	}

	for i, tp := range cfg.Terminology {
		if strings.TrimSpace(tp.From) == "" {
			merr = multierror.Append(merr, fmt.Errorf("terminology entry %d has an empty source term", i+1))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
