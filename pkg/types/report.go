// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Bullet is a single report statement with the evidence it cites.
type Bullet struct {
	Text        string   `json:"text" yaml:"text"`
	EvidenceIDs []string `json:"evidence_ids" yaml:"evidence_ids"`
}

// Section is a named report division (one filled template slot).
type Section struct {
	// Name is the section heading after terminology substitution.
	Name string `json:"name" yaml:"name"`

	// Description is the slot purpose, if configured.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Bullets are ordered highest priority first.
	Bullets []Bullet `json:"bullets" yaml:"bullets"`

	// OpenQuestions lists content the evidence could not support.
	OpenQuestions []string `json:"open_questions,omitempty" yaml:"open_questions,omitempty"`

	// Required marks a must_include section. Required sections are never
	// removed by budget trimming.
	Required bool `json:"required" yaml:"required"`
}

// AddOpenQuestion appends q unless it is already present.
func (s *Section) AddOpenQuestion(q string) {
	for _, existing := range s.OpenQuestions {
		if existing == q {
			return
		}
	}
	s.OpenQuestions = append(s.OpenQuestions, q)
}

// Report is the output of one pipeline run.
type Report struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	Title       string       `json:"title" yaml:"title"`
	Customer    string       `json:"customer" yaml:"customer"`
	Summary     string       `json:"summary,omitempty" yaml:"summary,omitempty"`
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	Sections    []Section    `json:"sections" yaml:"sections"`
	Evidence    *EvidenceSet `json:"-" yaml:"-"`
}

// CitedIDs returns every evidence ID cited by a bullet, in first-cited order.
func (r *Report) CitedIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, sec := range r.Sections {
		for _, b := range sec.Bullets {
			for _, id := range b.EvidenceIDs {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}
