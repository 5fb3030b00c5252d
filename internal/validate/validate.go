// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks that every bullet of a report is grounded in the
// run's evidence before anything is rendered.
package validate

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// ErrUngrounded is returned when a bullet has no citation or cites an id
// missing from the evidence set.
var ErrUngrounded = errors.New("report contains ungrounded bullets")

// Result is the validation outcome.
type Result struct {
	Valid           bool
	TotalBullets    int
	GroundedBullets int

	// SectionsWithQuestions counts sections carrying open questions.
	SectionsWithQuestions int

	// MissingSections lists required concepts absent from the section names.
	MissingSections []string
}

// Coverage returns the fraction of bullets that are grounded, 1 when there
// are no bullets.
func (r Result) Coverage() float64 {
	if r.TotalBullets == 0 {
		return 1
	}
	return float64(r.GroundedBullets) / float64(r.TotalBullets)
}

// Report validates report. Every offending bullet contributes one error to
// the returned ErrUngrounded. Missing required sections are reported in the
// result but do not fail validation; terminology in cfg is applied to the
// required names before comparing.
func Report(report *types.Report, cfg types.CustomerConfig) (Result, error) {
	var (
		res  Result
		merr *multierror.Error
	)

	names := make([]string, 0, len(report.Sections))
	for _, sec := range report.Sections {
		names = append(names, sec.Name)
		if len(sec.OpenQuestions) > 0 {
			res.SectionsWithQuestions++
		}

		for i, b := range sec.Bullets {
			res.TotalBullets++
			if err := checkBullet(b, report.Evidence); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("%s bullet %d %q: %w", sec.Name, i+1, b.Text, err))
				continue
			}
			res.GroundedBullets++
		}
	}

	terms := template.NewTerminology(cfg.Terminology)
	required := cfg
	required.MustInclude = make([]string, len(cfg.MustInclude))
	for i, name := range cfg.MustInclude {
		required.MustInclude[i] = terms.Apply(name)
	}
	res.MissingSections = template.MissingSections(required, names)

	if err := merr.ErrorOrNil(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrUngrounded, err)
	}
	res.Valid = true
	return res, nil
}

func checkBullet(b types.Bullet, set *types.EvidenceSet) error {
	if len(b.EvidenceIDs) == 0 {
		return errors.New("no citation")
	}
	for _, id := range b.EvidenceIDs {
		if !set.Has(id) {
			return fmt.Errorf("unknown evidence id %s", id)
		}
	}
	return nil
}
