// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package revise removes bullets that are not backed by evidence and
// records the gaps as open questions.
package revise

import (
	"fmt"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const (
	needsEvidencePrefix = "Needs evidence: "
	noEvidencePrefix    = "No evidence available for "
)

// Revision summarizes what Revise changed.
type Revision struct {
	Kept     int
	Dropped  int
	Stripped int

	// EmptySections names sections left without bullets.
	EmptySections []string
}

// Revise rewrites report in place. A bullet survives only if at least one
// cited id exists in the report's evidence set; unknown ids are removed
// from survivors. Each dropped bullet becomes a "Needs evidence" open
// question. A section left with no bullets and no questions gets a
// "No evidence available" question.
func Revise(report *types.Report) Revision {
	var rev Revision
	for i := range report.Sections {
		sec := &report.Sections[i]

		var kept []types.Bullet
		for _, b := range sec.Bullets {
			valid := make([]string, 0, len(b.EvidenceIDs))
			seen := make(map[string]bool, len(b.EvidenceIDs))
			for _, id := range b.EvidenceIDs {
				if seen[id] {
					continue
				}
				seen[id] = true
				if report.Evidence.Has(id) {
					valid = append(valid, id)
				} else {
					rev.Stripped++
				}
			}
			if len(valid) == 0 {
				sec.AddOpenQuestion(needsEvidencePrefix + b.Text)
				rev.Dropped++
				continue
			}
			kept = append(kept, types.Bullet{Text: b.Text, EvidenceIDs: valid})
			rev.Kept++
		}
		sec.Bullets = kept

		if len(sec.Bullets) == 0 {
			rev.EmptySections = append(rev.EmptySections, sec.Name)
			if len(sec.OpenQuestions) == 0 {
				sec.AddOpenQuestion(noEvidencePrefix + sec.Name)
			}
		}
	}
	return rev
}

// String renders the revision for progress output.
func (r Revision) String() string {
	return fmt.Sprintf("kept %d bullets, dropped %d, stripped %d unknown ids, %d empty sections",
		r.Kept, r.Dropped, r.Stripped, len(r.EmptySections))
}
