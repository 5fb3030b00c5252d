// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/smart-discovery/internal/evidence"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

const slideSeparator = "\n---\n\n"

// inlineCitation matches evidence ids that a drafter left in bullet text.
var inlineCitation = regexp.MustCompile(`\s*\[?` + evidence.IDPrefix + `[0-9a-f]{8}\]?`)

// Slides renders the report as a Marp Markdown deck and returns it with
// its slide count. The deck has a title slide, an agenda slide when there
// is more than one section, and per section a divider slide followed by
// content slides of bulletsPerSlide bullets. Citations appear only in the
// presenter notes of each content slide.
func Slides(report *types.Report, bulletsPerSlide int) (string, int) {
	if bulletsPerSlide <= 0 {
		bulletsPerSlide = types.DefaultBulletsPerSlide
	}

	var slides []string

	var title strings.Builder
	fmt.Fprintf(&title, "# %s\n", oneLine(report.Title))
	var sub []string
	if report.Customer != "" {
		sub = append(sub, report.Customer)
	}
	if !report.GeneratedAt.IsZero() {
		sub = append(sub, report.GeneratedAt.UTC().Format("January 2006"))
	}
	if len(sub) > 0 {
		fmt.Fprintf(&title, "\n%s\n", strings.Join(sub, " · "))
	}
	if report.Summary != "" {
		fmt.Fprintf(&title, "\n%s\n", visible(report.Summary))
	}
	if report.RunID != "" {
		fmt.Fprintf(&title, "\n%s\n", notes("Run "+report.RunID))
	}
	slides = append(slides, title.String())

	if len(report.Sections) > 1 {
		var agenda strings.Builder
		agenda.WriteString("## Agenda\n\n")
		for i, sec := range report.Sections {
			fmt.Fprintf(&agenda, "%d. %s\n", i+1, oneLine(sec.Name))
		}
		slides = append(slides, agenda.String())
	}

	for _, sec := range report.Sections {
		slides = append(slides, dividerSlide(sec))
		for start := 0; start < len(sec.Bullets); start += bulletsPerSlide {
			end := start + bulletsPerSlide
			if end > len(sec.Bullets) {
				end = len(sec.Bullets)
			}
			slides = append(slides, contentSlide(report, sec, start, end))
		}
	}

	var sb strings.Builder
	sb.WriteString("---\nmarp: true\npaginate: true\n")
	fmt.Fprintf(&sb, "title: %q\n", report.Title)
	sb.WriteString("---\n\n")
	sb.WriteString(strings.Join(slides, slideSeparator))
	return sb.String(), len(slides)
}

func dividerSlide(sec types.Section) string {
	var sb strings.Builder
	sb.WriteString("<!-- _class: lead -->\n\n")
	fmt.Fprintf(&sb, "# %s\n", oneLine(sec.Name))
	if sec.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", visible(sec.Description))
	}
	if len(sec.OpenQuestions) > 0 {
		sb.WriteString("\n**Open Questions**\n\n")
		for _, q := range sec.OpenQuestions {
			fmt.Fprintf(&sb, "- %s\n", visible(q))
		}
	}
	return sb.String()
}

func contentSlide(report *types.Report, sec types.Section, start, end int) string {
	var sb strings.Builder
	heading := oneLine(sec.Name)
	if start > 0 {
		heading += " (cont.)"
	}
	fmt.Fprintf(&sb, "## %s\n\n", heading)

	var sources []string
	seen := make(map[string]bool)
	for _, b := range sec.Bullets[start:end] {
		fmt.Fprintf(&sb, "- %s\n", visible(b.Text))
		for _, id := range b.EvidenceIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if it, ok := report.Evidence.Get(id); ok {
				sources = append(sources, "- "+oneLine(evidence.FormatCitation(it)))
			} else {
				sources = append(sources, "- ["+id+"]")
			}
		}
	}
	if len(sources) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", notes("Sources:\n"+strings.Join(sources, "\n")))
	}
	return sb.String()
}

// visible strips inline citations from text shown on a slide and folds it
// onto one line.
func visible(s string) string {
	return oneLine(inlineCitation.ReplaceAllString(s, ""))
}

// oneLine collapses runs of whitespace, newlines included, to single spaces.
// A line break inside a bullet would end the list item, and a "---" line
// would start a new slide.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// notes wraps text in a Marp presenter-notes comment.
func notes(text string) string {
	return "<!--\n" + strings.ReplaceAll(text, "-->", "-- >") + "\n-->"
}
