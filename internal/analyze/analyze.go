// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze routes evidence into template slots and drafts each slot
// into cited bullets.
package analyze

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// TitlePrefix starts the fallback report title.
const TitlePrefix = "Discovery Report: "

// SlotRequest is everything a drafter needs to fill one slot.
type SlotRequest struct {
	Slot            types.TemplateSlot
	Evidence        []types.EvidenceItem
	Customer        string
	BulletsPerSlide int
}

// MaxBullets is the bullet cap for the slot: its slide target times the
// bullets that fit on one slide. Zero means no cap.
func (r SlotRequest) MaxBullets() int {
	if r.Slot.SlideTarget <= 0 || r.BulletsPerSlide <= 0 {
		return 0
	}
	return r.Slot.SlideTarget * r.BulletsPerSlide
}

// SectionDraft is a drafter's output for one slot.
type SectionDraft struct {
	Bullets       []types.Bullet
	OpenQuestions []string
}

// Drafter turns a slot's evidence into bullets that cite evidence ids.
// A drafter must not mutate the request.
type Drafter interface {
	Draft(ctx context.Context, req SlotRequest) (SectionDraft, error)
}

// Summarizer is implemented by drafters that can also write the report
// title and summary from the drafted sections.
type Summarizer interface {
	Summarize(ctx context.Context, customer string, sections []types.Section) (title, summary string, err error)
}

// Group is the evidence found under one source section label.
type Group struct {
	Label string
	Items []types.EvidenceItem
}

// GroupBySection groups items by their section label, ordered by the
// first appearance of each label.
func GroupBySection(set *types.EvidenceSet) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, it := range set.Items() {
		i, ok := index[it.Section]
		if !ok {
			i = len(groups)
			index[it.Section] = i
			groups = append(groups, Group{Label: it.Section})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// Assignment is the evidence routed to each template slot, aligned with
// the template's slot order, plus the items no slot claimed.
type Assignment struct {
	Slots      [][]types.EvidenceItem
	Unassigned []types.EvidenceItem
}

// Assign routes every item to the first slot, in template order, that has a
// keyword appearing in the item's group label or quote (case-insensitive
// substring). An item lands in at most one slot.
func Assign(tpl types.ReportTemplate, groups []Group) Assignment {
	a := Assignment{Slots: make([][]types.EvidenceItem, len(tpl.Slots))}

	keywords := make([][]string, len(tpl.Slots))
	for i, slot := range tpl.Slots {
		for _, kw := range slot.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords[i] = append(keywords[i], kw)
			}
		}
	}

	for _, g := range groups {
		label := strings.ToLower(g.Label)
		for _, it := range g.Items {
			text := label + " " + strings.ToLower(it.Quote)
			slot := matchSlot(keywords, text)
			if slot < 0 {
				a.Unassigned = append(a.Unassigned, it)
				continue
			}
			a.Slots[slot] = append(a.Slots[slot], it)
		}
	}
	return a
}

func matchSlot(keywords [][]string, text string) int {
	for i, kws := range keywords {
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				return i
			}
		}
	}
	return -1
}

// Summary holds counts from an analysis run.
type Summary struct {
	Sections   int
	Bullets    int
	Assigned   int
	Unassigned int
	Failed     int
}

// Analyze drafts every slot of tpl from set and assembles the report.
// Terminology from cfg is applied to section names, descriptions, bullets
// and open questions after drafting. A drafter error becomes an open
// question on that slot; only context cancellation aborts the run.
func Analyze(ctx context.Context, drafter Drafter, cfg types.CustomerConfig, tpl types.ReportTemplate, set *types.EvidenceSet, w io.Writer) (*types.Report, Summary, error) {
	if drafter == nil {
		drafter = ExtractiveDrafter{}
	}
	if w == nil {
		w = io.Discard
	}

	assignment := Assign(tpl, GroupBySection(set))
	terms := template.NewTerminology(cfg.Terminology)

	summary := Summary{Unassigned: len(assignment.Unassigned)}
	report := &types.Report{Customer: cfg.Name, Evidence: set}

	for i, slot := range tpl.Slots {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}

		items := assignment.Slots[i]
		summary.Assigned += len(items)

		draft, err := drafter.Draft(ctx, SlotRequest{
			Slot:            slot,
			Evidence:        items,
			Customer:        cfg.Name,
			BulletsPerSlide: cfg.SlideBudget.BulletsPerSlide,
		})
		sec := types.Section{
			Name:        terms.Apply(slot.Name),
			Description: terms.Apply(slot.Description),
			Required:    slot.Required,
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, summary, ctx.Err()
			}
			fmt.Fprintf(w, "failed  %s: %v\n", slot.Name, err)
			summary.Failed++
			sec.AddOpenQuestion(fmt.Sprintf("Could not draft %s: %v", sec.Name, err))
		}

		for _, b := range draft.Bullets {
			sec.Bullets = append(sec.Bullets, types.Bullet{
				Text:        terms.Apply(b.Text),
				EvidenceIDs: append([]string(nil), b.EvidenceIDs...),
			})
		}
		for _, q := range draft.OpenQuestions {
			sec.AddOpenQuestion(terms.Apply(q))
		}

		fmt.Fprintf(w, "drafted %s (%d evidence, %d bullets)\n", sec.Name, len(items), len(sec.Bullets))
		summary.Bullets += len(sec.Bullets)
		report.Sections = append(report.Sections, sec)
	}
	summary.Sections = len(report.Sections)

	report.Title = TitlePrefix + cfg.Name
	if s, ok := drafter.(Summarizer); ok {
		title, text, err := s.Summarize(ctx, cfg.Name, report.Sections)
		switch {
		case err != nil:
			fmt.Fprintf(w, "summary failed: %v\n", err)
		default:
			if title = strings.TrimSpace(title); title != "" {
				report.Title = terms.Apply(title)
			}
			report.Summary = terms.Apply(strings.TrimSpace(text))
		}
	}

	return report, summary, nil
}
