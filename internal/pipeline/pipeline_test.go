// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smart-discovery/internal/analyze"
	"github.com/pdiddy/smart-discovery/internal/evidence"
	"github.com/pdiddy/smart-discovery/internal/ledger"
	"github.com/pdiddy/smart-discovery/internal/source"
	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

const discoveryNotes = `# Acme Discovery

## Financials

- Revenue grew 20% YoY
- Gross margin is 61 percent

## Key Findings

Customer churn is concentrated in the SMB tier.
`

func acmeConfig() types.CustomerConfig {
	return types.CustomerConfig{
		Name:        "Acme",
		MustInclude: []string{"Key Findings", "Financials"},
	}
}

type stubReader struct {
	docs  map[string]string
	err   error
	calls []string
}

func (r *stubReader) Read(_ context.Context, ref string) (types.Document, error) {
	r.calls = append(r.calls, ref)
	if r.err != nil {
		return types.Document{}, r.err
	}
	return source.ParseText(r.docs[ref], types.SourceMeta{ID: ref})
}

func TestRunContent(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	store, err := ledger.Open(types.LedgerConfig{Dir: filepath.Join(t.TempDir(), "ledger")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var progress bytes.Buffer
	res, err := Run(context.Background(), Input{Config: acmeConfig(), Content: discoveryNotes}, Options{
		Settings: types.PipelineConfig{Output: types.OutputConfig{Dir: outDir}},
		Ledger:   store,
		Progress: &progress,
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, res.Report.RunID)
	assert.False(t, res.Report.GeneratedAt.IsZero())
	assert.Equal(t, analyze.TitlePrefix+"Acme", res.Report.Title)

	require.Len(t, res.Report.Sections, 2)
	assert.Equal(t, "Key Findings", res.Report.Sections[0].Name)
	assert.Equal(t, "Financials", res.Report.Sections[1].Name)
	require.Len(t, res.Report.Sections[1].Bullets, 2)

	revenueID := evidence.StableID("Financials", "Revenue grew 20% YoY")
	assert.Equal(t, []string{revenueID}, res.Report.Sections[1].Bullets[0].EvidenceIDs)

	assert.True(t, res.Validation.Valid)
	assert.Equal(t, 3, res.Validation.GroundedBullets)
	assert.Contains(t, res.Markdown, "Revenue grew 20% YoY")

	require.Len(t, res.Files, 2)
	for _, f := range res.Files {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}

	// Deck is title + agenda + two sections of divider plus one content slide.
	assert.Equal(t, 6, res.Plan.Total)
	assert.Condition(t, func() bool {
		for _, w := range res.Warnings {
			if strings.Contains(w, "below the minimum of 8") {
				return true
			}
		}
		return false
	}, "warnings: %v", res.Warnings)

	assert.Equal(t, 3, res.Recorded.Evidence)
	assert.Equal(t, 3, res.Recorded.Citations)
	trace, err := store.Trace(context.Background(), revenueID)
	require.NoError(t, err)
	assert.Len(t, trace.Citations, 1)

	out := progress.String()
	assert.Contains(t, out, "read    content (")
	assert.Contains(t, out, "extracted 3 evidence items from 1 documents")
	assert.Contains(t, out, "drafted Financials (2 evidence, 2 bullets)")
	assert.Contains(t, out, "validated: 3/3 bullets grounded")
}

func TestRunRefs(t *testing.T) {
	reader := &stubReader{docs: map[string]string{"notes.md": discoveryNotes}}
	cfg := acmeConfig()
	cfg.InputPages = []string{"notes.md"}

	res, err := Run(context.Background(), Input{Config: cfg}, Options{Reader: reader})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.md"}, reader.calls, "falls back to input pages")
	assert.Empty(t, res.Files, "no output dir, nothing written")
	assert.NotEmpty(t, res.Markdown)
}

func TestRunConfigErrorStopsBeforeReading(t *testing.T) {
	reader := &stubReader{}
	cfg := acmeConfig()
	cfg.Name = ""

	_, err := Run(context.Background(), Input{Config: cfg, Refs: []string{"notes.md"}}, Options{Reader: reader})
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrInvalidConfig)
	assert.Empty(t, reader.calls)
}

func TestRunReaderErrorWrapped(t *testing.T) {
	cause := errors.New("notion /pages/abc returned 404: not found")
	reader := &stubReader{err: cause}

	_, err := Run(context.Background(), Input{Config: acmeConfig(), Refs: []string{"abc"}}, Options{Reader: reader})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "read abc: "+cause.Error(), err.Error())
}

func TestRunNoInput(t *testing.T) {
	_, err := Run(context.Background(), Input{Config: acmeConfig()}, Options{})
	assert.ErrorIs(t, err, ErrNoInput)
}

type inventingDrafter struct{}

func (inventingDrafter) Draft(_ context.Context, req analyze.SlotRequest) (analyze.SectionDraft, error) {
	d := analyze.SectionDraft{Bullets: []types.Bullet{{Text: "Invented claim", EvidenceIDs: []string{"EVID-deadbeef"}}}}
	for _, it := range req.Evidence {
		d.Bullets = append(d.Bullets, types.Bullet{Text: it.Quote, EvidenceIDs: []string{it.ID}})
	}
	return d, nil
}

func TestRunStripsUngroundedBullets(t *testing.T) {
	res, err := Run(context.Background(), Input{Config: acmeConfig(), Content: discoveryNotes}, Options{Drafter: inventingDrafter{}})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Revision.Dropped)
	for _, sec := range res.Report.Sections {
		for _, b := range sec.Bullets {
			assert.NotEqual(t, "Invented claim", b.Text)
		}
		assert.Contains(t, sec.OpenQuestions, "Needs evidence: Invented claim")
	}
	assert.True(t, res.Validation.Valid)
}

func TestRunTightBudgetKeepsRequiredSectionsWithQuestions(t *testing.T) {
	cfg := acmeConfig()
	cfg.SlideBudget = types.SlideBudget{Min: 1, Max: 4, PerSectionMax: 4, BulletsPerSlide: 6}

	res, err := Run(context.Background(), Input{Config: cfg, Content: discoveryNotes}, Options{})
	require.NoError(t, err)

	require.Len(t, res.Report.Sections, 2)
	for _, sec := range res.Report.Sections {
		assert.Empty(t, sec.Bullets, sec.Name)
		require.NotEmpty(t, sec.OpenQuestions, sec.Name)
		assert.Contains(t, sec.OpenQuestions[len(sec.OpenQuestions)-1], "cut to fit the slide budget")
	}
	assert.Equal(t, 4, res.Plan.Total)
	assert.Equal(t, 3, res.Plan.Trimmed)
	assert.Contains(t, res.Warnings, `section "Financials" lost all 2 bullets to fit the slide budget`)
	assert.Contains(t, res.Markdown, "cut to fit the slide budget")
	assert.True(t, res.Validation.Valid)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Input{Config: acmeConfig(), Content: discoveryNotes}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDrafter(t *testing.T) {
	assert.IsType(t, analyze.ExtractiveDrafter{}, NewDrafter(types.AIConfig{}))
	assert.IsType(t, analyze.ExtractiveDrafter{}, NewDrafter(types.AIConfig{Model: "claude-sonnet-4-20250514"}))
	assert.IsType(t, &analyze.ClaudeDrafter{}, NewDrafter(types.AIConfig{Model: "claude-sonnet-4-20250514", APIKey: "k"}))
}
