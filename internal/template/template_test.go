// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const sampleConfigPage = `# Customer Config: Hannecard

## Required Sections
- Executive Summary
- Key Findings
1. Recommendations

## Terminology
- Customer → Client
- CRM -> Customer Data Platform
- nonsense line

## Slide Budget
- Min slides: 6
- Max slides: 25
- Max per section: 3
- Bullets per slide: 5

## Template Slots

### Executive Summary
High-level overview of the customer situation.
Why this engagement matters.
Keywords: company, revenue; overview

### Key Findings
The most important discoveries.
`

func TestParseConfigMarkdown(t *testing.T) {
	cfg, warnings := ParseConfigMarkdown(sampleConfigPage, "Client")

	assert.Equal(t, "Hannecard", cfg.Name)
	assert.Equal(t, []string{"Executive Summary", "Key Findings", "Recommendations"}, cfg.MustInclude)
	assert.Equal(t, []types.TermPair{
		{From: "Customer", To: "Client"},
		{From: "CRM", To: "Customer Data Platform"},
	}, cfg.Terminology)
	assert.Equal(t, types.SlideBudget{Min: 6, Max: 25, PerSectionMax: 3, BulletsPerSlide: 5}, cfg.SlideBudget)

	require.Contains(t, cfg.Slots, "Executive Summary")
	exec := cfg.Slots["Executive Summary"]
	assert.Equal(t, "High-level overview of the customer situation. Why this engagement matters.", exec.Description)
	assert.Equal(t, []string{"company", "revenue", "overview"}, exec.Keywords)
	assert.Empty(t, cfg.Slots["Key Findings"].Keywords)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nonsense line")
}

func TestParseConfigMarkdownDefaults(t *testing.T) {
	cfg, warnings := ParseConfigMarkdown("Just some notes\n", "Acme")

	assert.Equal(t, "Acme", cfg.Name)
	assert.Equal(t, types.DefaultMustInclude, cfg.MustInclude)
	assert.Equal(t, types.DefaultSlideBudget(), cfg.SlideBudget)
	assert.Len(t, warnings, 2)
	assert.NoError(t, Validate(cfg))
}

func TestStripNamePrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Customer Config: Acme", "Acme"},
		{"config: Acme", "Acme"},
		{"Customer: Acme", "Acme"},
		{"Acme", "Acme"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripNamePrefix(tt.in), tt.in)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: Acme
must_include:
  - Executive Summary
  - Financials
slots:
  Financials:
    keywords: [revenue, margin]
terminology:
  - from: customer
    to: client
slide_budget:
  max: 20
`), 0o644))

	cfg, warnings, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "Acme", cfg.Name)
	assert.Equal(t, []string{"revenue", "margin"}, cfg.Slots["Financials"].Keywords)
	assert.Equal(t, 20, cfg.SlideBudget.Max)
	assert.Equal(t, types.DefaultMinSlides, cfg.SlideBudget.Min)
	assert.Equal(t, types.DefaultBulletsPerSlide, cfg.SlideBudget.BulletsPerSlide)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigMarkdownFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "globex.md")
	require.NoError(t, os.WriteFile(path, []byte("## Required Sections\n- Goals\n"), 0o644))

	cfg, warnings, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "globex", cfg.Name)
	assert.Equal(t, []string{"Goals"}, cfg.MustInclude)
	assert.Len(t, warnings, 1)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: Acme\nmust_includ: [x]\n"), 0o644))
	_, _, err = LoadConfig(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	valid := func() types.CustomerConfig {
		return types.CustomerConfig{
			Name:        "Acme",
			MustInclude: []string{"Executive Summary"},
			SlideBudget: types.DefaultSlideBudget(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*types.CustomerConfig)
		errMsg string
	}{
		{"valid", func(*types.CustomerConfig) {}, ""},
		{"empty name", func(c *types.CustomerConfig) { c.Name = " " }, "customer name is empty"},
		{"no sections", func(c *types.CustomerConfig) { c.MustInclude = nil }, "no required sections"},
		{"duplicate section", func(c *types.CustomerConfig) { c.MustInclude = []string{"Goals", "goals"} }, "listed twice"},
		{"min over max", func(c *types.CustomerConfig) { c.SlideBudget.Min = 40 }, "exceeds max"},
		{"zero per-section", func(c *types.CustomerConfig) { c.SlideBudget.PerSectionMax = 0 }, "per-section max"},
		{"zero bullets per slide", func(c *types.CustomerConfig) { c.SlideBudget.BulletsPerSlide = 0 }, "bullets per slide"},
		{"empty term", func(c *types.CustomerConfig) { c.Terminology = []types.TermPair{{To: "x"}} }, "empty source term"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildTemplate(t *testing.T) {
	cfg := types.CustomerConfig{
		Name:        "Acme",
		MustInclude: []string{"Executive Summary", "Key Findings", "Risks"},
		Slots: map[string]types.SlotDefinition{
			"Executive Summary": {Description: "Overview", Keywords: []string{"revenue"}, SlideTarget: 2},
			"Risks":             {SlideTarget: 99},
		},
		SlideBudget: types.DefaultSlideBudget(),
	}
	tpl := BuildTemplate(cfg)

	assert.Equal(t, "Acme", tpl.Customer)
	require.Len(t, tpl.Slots, 3)

	assert.Equal(t, types.TemplateSlot{
		Name: "Executive Summary", Description: "Overview",
		Keywords: []string{"revenue"}, SlideTarget: 2, Required: true,
	}, tpl.Slots[0])
	assert.Equal(t, []string{"findings"}, tpl.Slots[1].Keywords)
	assert.Equal(t, types.DefaultPerSectionMax, tpl.Slots[1].SlideTarget)
	assert.Equal(t, []string{"risks"}, tpl.Slots[2].Keywords)
	assert.Equal(t, types.DefaultPerSectionMax, tpl.Slots[2].SlideTarget, "target is capped at per-section max")
}

func TestDeriveKeywords(t *testing.T) {
	assert.Equal(t, []string{"executive", "summary"}, DeriveKeywords("Executive Summary"))
	assert.Equal(t, []string{"current", "technology", "landscape"}, DeriveKeywords("Current Technology Landscape"))
	assert.Nil(t, DeriveKeywords("Q&A / ROI"))
}

func TestApplyTerminology(t *testing.T) {
	pairs := []types.TermPair{
		{From: "customer", To: "client"},
		{From: "CRM", To: "Customer Data Platform"},
	}
	assert.Equal(t, "The client uses a Customer Data Platform; customers churn.",
		ApplyTerminology(pairs, "The Customer uses a crm; customers churn."))

	var nilTerms *Terminology
	assert.Equal(t, "unchanged", nilTerms.Apply("unchanged"))
	assert.Equal(t, 2, NewTerminology(pairs).Len())
}

func TestMissingSections(t *testing.T) {
	cfg := types.CustomerConfig{MustInclude: []string{"Executive Summary", "Risks", "Goals"}}
	got := MissingSections(cfg, []string{"Executive Summary", "Top Risks"})
	assert.Equal(t, []string{"Goals"}, got)
}
