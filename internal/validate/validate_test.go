// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

func evidence() *types.EvidenceSet {
	return types.NewEvidenceSet(
		types.EvidenceItem{ID: "EVID-1", Quote: "one"},
		types.EvidenceItem{ID: "EVID-2", Quote: "two"},
	)
}

func TestReportValid(t *testing.T) {
	report := &types.Report{
		Evidence: evidence(),
		Sections: []types.Section{
			{Name: "Executive Summary", Bullets: []types.Bullet{{Text: "a", EvidenceIDs: []string{"EVID-1"}}}},
			{Name: "Client Findings", Bullets: []types.Bullet{{Text: "b", EvidenceIDs: []string{"EVID-1", "EVID-2"}}}},
			{Name: "Recommendations", OpenQuestions: []string{"No evidence available for Recommendations"}},
		},
	}
	cfg := types.CustomerConfig{
		MustInclude: []string{"Executive Summary", "Customer Findings", "Recommendations", "Timeline"},
		Terminology: []types.TermPair{{From: "Customer", To: "Client"}},
	}

	res, err := Report(report, cfg)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 2, res.TotalBullets)
	assert.Equal(t, 2, res.GroundedBullets)
	assert.Equal(t, 1, res.SectionsWithQuestions)
	assert.Equal(t, []string{"Timeline"}, res.MissingSections)
	assert.Equal(t, 1.0, res.Coverage())
}

func TestReportUngrounded(t *testing.T) {
	report := &types.Report{
		Evidence: evidence(),
		Sections: []types.Section{
			{Name: "Findings", Bullets: []types.Bullet{
				{Text: "ok", EvidenceIDs: []string{"EVID-1"}},
				{Text: "uncited"},
				{Text: "bad id", EvidenceIDs: []string{"EVID-1", "EVID-404"}},
			}},
		},
	}

	res, err := Report(report, types.CustomerConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUngrounded)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "no citation")
	assert.Contains(t, err.Error(), "EVID-404")

	assert.False(t, res.Valid)
	assert.Equal(t, 3, res.TotalBullets)
	assert.Equal(t, 1, res.GroundedBullets)
	assert.InDelta(t, 1.0/3, res.Coverage(), 1e-9)
}

func TestReportEmpty(t *testing.T) {
	res, err := Report(&types.Report{}, types.CustomerConfig{})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 1.0, res.Coverage())
}
