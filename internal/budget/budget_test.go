// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package budget

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

func section(name string, bullets int, required bool) types.Section {
	s := types.Section{Name: name, Required: required}
	for i := 0; i < bullets; i++ {
		s.Bullets = append(s.Bullets, types.Bullet{
			Text:        fmt.Sprintf("%s bullet %d", name, i+1),
			EvidenceIDs: []string{fmt.Sprintf("EVID-%s%d", name, i)},
		})
	}
	return s
}

func TestSectionSlides(t *testing.T) {
	tests := []struct {
		bullets, bps, want int
	}{
		{0, 6, 1},
		{1, 6, 2},
		{6, 6, 2},
		{7, 6, 3},
		{13, 6, 4},
		{13, 0, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SectionSlides(tt.bullets, tt.bps), "%d bullets / %d per slide", tt.bullets, tt.bps)
	}
	assert.Equal(t, 3, ContentSlides(13, 6))
}

func TestTotal(t *testing.T) {
	assert.Equal(t, 1+2, Total([]types.Section{section("A", 3, true)}, 6), "single section has no agenda")
	assert.Equal(t, 1+1+2+4, Total([]types.Section{section("A", 3, true), section("B", 13, true)}, 6))
	assert.Equal(t, 1, Total(nil, 6))
}

func TestEnforceWithinBudget(t *testing.T) {
	in := []types.Section{section("A", 3, true), section("B", 5, false)}
	plan := Enforce(in, types.DefaultSlideBudget())

	assert.Equal(t, 0, plan.Trimmed)
	assert.Empty(t, plan.Removed)
	assert.Equal(t, []int{2, 2}, plan.Slides)
	assert.Equal(t, 6, plan.Total)
	require.Len(t, plan.Warnings, 1, "6 slides is under the default minimum of 8")
	assert.Contains(t, plan.Warnings[0], "below the minimum")
}

func TestEnforcePerSectionCap(t *testing.T) {
	in := []types.Section{section("A", 30, true)}
	plan := Enforce(in, types.SlideBudget{Min: 1, Max: 100, PerSectionMax: 2, BulletsPerSlide: 6})

	assert.Len(t, plan.Sections[0].Bullets, 12)
	assert.Equal(t, 18, plan.Trimmed)
	assert.Equal(t, "A bullet 12", plan.Sections[0].Bullets[11].Text, "the last bullets are dropped")
	assert.Len(t, in[0].Bullets, 30, "input is not mutated")
}

func TestEnforceTrimsLargestFirst(t *testing.T) {
	in := []types.Section{
		section("A", 6, true),
		section("B", 12, false),
		section("C", 6, true),
	}
	// Total = 1 + 1 + 2 + 3 + 2 = 9. Max 8 forces one content slide out of B.
	plan := Enforce(in, types.SlideBudget{Min: 1, Max: 8, PerSectionMax: 4, BulletsPerSlide: 6})

	assert.Equal(t, 8, plan.Total)
	assert.Len(t, plan.Sections[0].Bullets, 6)
	assert.Len(t, plan.Sections[1].Bullets, 6)
	assert.Len(t, plan.Sections[2].Bullets, 6)
	assert.Equal(t, 6, plan.Trimmed)
	assert.Empty(t, plan.Removed)
	assert.Empty(t, plan.Warnings)
}

func TestEnforceTieGoesToLaterSection(t *testing.T) {
	in := []types.Section{section("A", 7, true), section("B", 7, true)}
	// Total = 1 + 1 + 3 + 3 = 8. Max 7 needs one section down to 6 bullets.
	plan := Enforce(in, types.SlideBudget{Min: 1, Max: 7, PerSectionMax: 4, BulletsPerSlide: 6})

	assert.Len(t, plan.Sections[0].Bullets, 7)
	assert.Len(t, plan.Sections[1].Bullets, 6)
	assert.Equal(t, 7, plan.Total)
}

func TestEnforceNeverRemovesRequired(t *testing.T) {
	in := []types.Section{
		section("Executive Summary", 4, true),
		section("Appendix", 4, false),
		section("Key Findings", 4, true),
		section("Extras", 4, false),
		section("Recommendations", 4, true),
	}
	plan := Enforce(in, types.SlideBudget{Min: 1, Max: 4, PerSectionMax: 4, BulletsPerSlide: 6})

	var names []string
	for _, s := range plan.Sections {
		names = append(names, s.Name)
		assert.True(t, s.Required)
		assert.Empty(t, s.Bullets)
		assert.Equal(t, []string{fmt.Sprintf(TrimmedQuestion, 4)}, s.OpenQuestions)
	}
	assert.Equal(t, []string{"Executive Summary", "Key Findings", "Recommendations"}, names)
	assert.Equal(t, []string{"Extras", "Appendix"}, plan.Removed)
	assert.Equal(t, 5, plan.Total)
	require.Len(t, plan.Warnings, 6)
	assert.Contains(t, plan.Warnings[0], `optional section "Extras" removed`)
	assert.Contains(t, plan.Warnings[2], `"Executive Summary" lost all 4 bullets`)
	assert.Contains(t, plan.Warnings[5], "above the maximum")
}

func TestEnforceEmptiedSectionGetsOpenQuestion(t *testing.T) {
	keyFindings := section("Key Findings", 6, true)
	keyFindings.OpenQuestions = []string{"Who owns the reconciliation process?"}
	in := []types.Section{keyFindings, section("Financials", 1, false)}

	// Two sections with no bullets already fill a four-slide deck.
	plan := Enforce(in, types.SlideBudget{Min: 1, Max: 4, PerSectionMax: 4, BulletsPerSlide: 6})

	require.Len(t, plan.Sections, 2)
	assert.Equal(t, 4, plan.Total)
	assert.Equal(t, 7, plan.Trimmed)
	assert.Equal(t, []string{
		"Who owns the reconciliation process?",
		fmt.Sprintf(TrimmedQuestion, 6),
	}, plan.Sections[0].OpenQuestions)
	assert.Equal(t, []string{fmt.Sprintf(TrimmedQuestion, 1)}, plan.Sections[1].OpenQuestions)
	assert.Equal(t, []string{
		`section "Key Findings" lost all 6 bullets to fit the slide budget`,
		`section "Financials" lost all 1 bullets to fit the slide budget`,
	}, plan.Warnings)
	assert.Len(t, in[0].OpenQuestions, 1, "input is not mutated")
}

func TestEnforceUntouchedEmptySection(t *testing.T) {
	plan := Enforce([]types.Section{section("Risks", 0, true)}, types.SlideBudget{Min: 1, Max: 10, BulletsPerSlide: 6})
	assert.Empty(t, plan.Sections[0].OpenQuestions, "nothing was trimmed")
	assert.Empty(t, plan.Warnings)
}
