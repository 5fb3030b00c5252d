// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const timeLayout = "2006-01-02 15:04 MST"

// Markdown renders the report document. Bullets carry their evidence ids
// inline and the appendix maps each cited id to its quote and location.
func Markdown(report *types.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", report.Title)
	if report.Customer != "" {
		fmt.Fprintf(&sb, "**Customer:** %s  \n", report.Customer)
	}
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "**Generated:** %s  \n", report.GeneratedAt.UTC().Format(timeLayout))
	}
	if report.RunID != "" {
		fmt.Fprintf(&sb, "**Run:** %s  \n", report.RunID)
	}
	sb.WriteString("\n")

	if len(report.Sections) > 0 {
		sb.WriteString("## Agenda\n\n")
		for i, sec := range report.Sections {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, oneLine(sec.Name))
		}
		sb.WriteString("\n")
	}

	if report.Summary != "" {
		fmt.Fprintf(&sb, "%s\n\n", report.Summary)
	}

	for _, sec := range report.Sections {
		fmt.Fprintf(&sb, "## %s\n\n", oneLine(sec.Name))
		if sec.Description != "" {
			fmt.Fprintf(&sb, "_%s_\n\n", oneLine(sec.Description))
		}
		for _, b := range sec.Bullets {
			fmt.Fprintf(&sb, "- %s [%s]\n", oneLine(b.Text), strings.Join(b.EvidenceIDs, ", "))
		}
		if len(sec.Bullets) > 0 {
			sb.WriteString("\n")
		}
		if len(sec.OpenQuestions) > 0 {
			sb.WriteString("**Open Questions:**\n\n")
			for _, q := range sec.OpenQuestions {
				fmt.Fprintf(&sb, "- %s\n", oneLine(q))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## Evidence Appendix\n\n")
	items := citedItems(report)
	if len(items) == 0 {
		sb.WriteString("No evidence cited.\n")
	}
	for _, it := range items {
		fmt.Fprintf(&sb, "- **%s**: \"%s\" (%s)\n", it.ID, oneLine(it.Quote), it.SourcePath())
	}
	return sb.String()
}
