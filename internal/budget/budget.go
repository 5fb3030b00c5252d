// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package budget fits report sections into the configured slide bounds.
package budget

import (
	"fmt"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// Plan is the result of enforcing a slide budget.
type Plan struct {
	// Sections are the surviving sections with trimmed bullet lists.
	Sections []types.Section

	// Slides holds the slide count of each surviving section.
	Slides []int

	// Total is the deck size: title, agenda and all section slides.
	Total int

	Warnings []string

	// Trimmed is the number of bullets removed.
	Trimmed int

	// Removed names the sections dropped entirely.
	Removed []string
}

// TrimmedQuestion is the open question added to a section whose bullets
// were all trimmed. It takes the number of bullets removed.
const TrimmedQuestion = "%d supporting points were cut to fit the slide budget: which should be restored?"

// ContentSlides returns how many content slides bullets need.
func ContentSlides(bullets, bulletsPerSlide int) int {
	if bullets <= 0 {
		return 0
	}
	if bulletsPerSlide <= 0 {
		bulletsPerSlide = types.DefaultBulletsPerSlide
	}
	return (bullets + bulletsPerSlide - 1) / bulletsPerSlide
}

// SectionSlides is one divider slide plus the section's content slides.
func SectionSlides(bullets, bulletsPerSlide int) int {
	return 1 + ContentSlides(bullets, bulletsPerSlide)
}

// Total returns the deck size for sections: one title slide, one agenda
// slide when there is more than one section, and every section's slides.
func Total(sections []types.Section, bulletsPerSlide int) int {
	total := 1
	if len(sections) > 1 {
		total++
	}
	for _, s := range sections {
		total += SectionSlides(len(s.Bullets), bulletsPerSlide)
	}
	return total
}

// Enforce fits sections into b without mutating the input.
//
// Every section is first capped at PerSectionMax content slides by dropping
// its last bullets. While the deck is over Max, the last bullet of the
// section with the most bullets is dropped, ties going to the later
// section. When no bullets are left to drop, sections that are not
// required are removed from the end. Required sections are never removed.
// A surviving section left with no bullets gets an open question saying
// its content was trimmed. Falling outside the bounds after that, or under
// Min, produces a warning.
func Enforce(sections []types.Section, b types.SlideBudget) Plan {
	bps := b.BulletsPerSlide
	if bps <= 0 {
		bps = types.DefaultBulletsPerSlide
	}

	var plan Plan
	plan.Sections = make([]types.Section, len(sections))
	before := make(map[string]int, len(sections))
	for i, s := range sections {
		before[s.Name] += len(s.Bullets)
		s.Bullets = append([]types.Bullet(nil), s.Bullets...)
		s.OpenQuestions = append([]string(nil), s.OpenQuestions...)
		plan.Sections[i] = s
	}

	if b.PerSectionMax > 0 {
		limit := b.PerSectionMax * bps
		for i := range plan.Sections {
			s := &plan.Sections[i]
			if n := len(s.Bullets); n > limit {
				plan.Trimmed += n - limit
				s.Bullets = s.Bullets[:limit]
			}
		}
	}

	if b.Max > 0 {
		for Total(plan.Sections, bps) > b.Max {
			i := largest(plan.Sections)
			if i < 0 {
				break
			}
			s := &plan.Sections[i]
			s.Bullets = s.Bullets[:len(s.Bullets)-1]
			plan.Trimmed++
		}

		for Total(plan.Sections, bps) > b.Max {
			i := lastOptional(plan.Sections)
			if i < 0 {
				break
			}
			plan.Removed = append(plan.Removed, plan.Sections[i].Name)
			plan.Warnings = append(plan.Warnings, fmt.Sprintf(
				"optional section %q removed to fit the slide budget", plan.Sections[i].Name))
			plan.Sections = append(plan.Sections[:i], plan.Sections[i+1:]...)
		}
	}

	for i := range plan.Sections {
		s := &plan.Sections[i]
		n := before[s.Name]
		if n == 0 || len(s.Bullets) > 0 {
			continue
		}
		s.AddOpenQuestion(fmt.Sprintf(TrimmedQuestion, n))
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"section %q lost all %d bullets to fit the slide budget", s.Name, n))
	}

	plan.Total = Total(plan.Sections, bps)
	plan.Slides = make([]int, len(plan.Sections))
	for i, s := range plan.Sections {
		plan.Slides[i] = SectionSlides(len(s.Bullets), bps)
	}

	if b.Max > 0 && plan.Total > b.Max {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"deck has %d slides, above the maximum of %d: required sections cannot be removed", plan.Total, b.Max))
	}
	if plan.Total < b.Min {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(
			"deck has %d slides, below the minimum of %d", plan.Total, b.Min))
	}
	return plan
}

// largest returns the index of the section with the most bullets, the
// later one on ties, or -1 when no section has bullets.
func largest(sections []types.Section) int {
	best, most := -1, 0
	for i, s := range sections {
		if n := len(s.Bullets); n > 0 && n >= most {
			best, most = i, n
		}
	}
	return best
}

func lastOptional(sections []types.Section) int {
	for i := len(sections) - 1; i >= 0; i-- {
		if !sections[i].Required {
			return i
		}
	}
	return -1
}
