// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes a validated report as a Markdown document, a Marp
// slide deck and an xlsx evidence register.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// DefaultFormats are rendered when none are configured.
var DefaultFormats = []types.OutputFormat{types.OutputMarkdown, types.OutputSlides}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a customer name into a safe file name stem.
func Slug(name string) string {
	s := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "report"
	}
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	return s
}

// FileName returns the output file name for a format.
func FileName(customer string, f types.OutputFormat) string {
	stem := Slug(customer) + "-discovery"
	switch f {
	case types.OutputSlides:
		return stem + ".slides.md"
	case types.OutputXLSX:
		return stem + "-evidence.xlsx"
	default:
		return stem + ".md"
	}
}

// Write renders report in format f to w.
func Write(w io.Writer, report *types.Report, f types.OutputFormat, b types.SlideBudget) error {
	switch f {
	case types.OutputMarkdown:
		_, err := io.WriteString(w, Markdown(report))
		return err
	case types.OutputSlides:
		deck, _ := Slides(report, b.BulletsPerSlide)
		_, err := io.WriteString(w, deck)
		return err
	case types.OutputXLSX:
		return EvidenceRegister(w, report)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

// WriteFiles renders every format into dir and returns the written paths
// in format order.
func WriteFiles(dir string, report *types.Report, formats []types.OutputFormat, b types.SlideBudget) ([]string, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var paths []string
	for _, f := range formats {
		path := filepath.Join(dir, FileName(report.Customer, f))
		if err := writeFile(path, report, f, b); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, report *types.Report, f types.OutputFormat, b types.SlideBudget) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(out, report, f, b); err != nil {
		out.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// citedItems returns the evidence items cited by the report, in first-cited order.
func citedItems(report *types.Report) []types.EvidenceItem {
	var items []types.EvidenceItem
	for _, id := range report.CitedIDs() {
		if it, ok := report.Evidence.Get(id); ok {
			items = append(items, it)
		}
	}
	return items
}
