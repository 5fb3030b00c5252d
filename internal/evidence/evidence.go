// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence turns source blocks into citable evidence items with
// content-derived identifiers.
package evidence

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const (
	// IDPrefix starts every evidence identifier.
	IDPrefix = "EVID-"

	// DefaultMinLength is the minimum trimmed text length, in runes, for a
	// block to become evidence.
	DefaultMinLength = 5

	idTextPrefix  = 100
	citationQuote = 100
	idHexLength   = 8
)

// StableID returns the identifier for text found under section. The same
// section and text always produce the same id. Only the first 100 runes of
// text contribute, so long blocks differing past that point collide.
func StableID(section, text string) string {
	h := sha256.New()
	h.Write([]byte(section))
	h.Write([]byte(":"))
	h.Write([]byte(truncateRunes(text, idTextPrefix)))
	return IDPrefix + fmt.Sprintf("%x", h.Sum(nil))[:idHexLength]
}

// Extract converts qualifying blocks into an evidence set in source order.
// Headings and blocks shorter than minLength runes are skipped. A
// non-positive minLength selects DefaultMinLength. When two blocks hash to
// the same id the first is kept.
func Extract(blocks []types.Block, minLength int) *types.EvidenceSet {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	set := types.NewEvidenceSet()
	for _, b := range blocks {
		if b.Type == types.BlockHeading {
			continue
		}
		text := strings.TrimSpace(b.Text)
		if len([]rune(text)) < minLength {
			continue
		}
		set.Add(types.EvidenceItem{
			ID:        StableID(b.Section, text),
			Section:   b.Section,
			Quote:     text,
			BlockType: b.Type,
			Path:      append([]string(nil), b.Path...),
			Source:    b.Source,
		})
	}
	return set
}

// ExtractDocuments extracts every document in order and merges the results.
func ExtractDocuments(docs []types.Document, minLength int) *types.EvidenceSet {
	set := types.NewEvidenceSet()
	for _, d := range docs {
		set.Merge(Extract(d.Blocks, minLength))
	}
	return set
}

// FormatCitation renders an item as `[ID] Source > Path: "quote"`, with the
// quote cut at 100 runes.
func FormatCitation(item types.EvidenceItem) string {
	quote := item.Quote
	if len([]rune(quote)) > citationQuote {
		quote = truncateRunes(quote, citationQuote) + "..."
	}
	return fmt.Sprintf("[%s] %s: \"%s\"", item.ID, item.SourcePath(), quote)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
