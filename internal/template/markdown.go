// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// configSection identifies which part of a config page a line belongs to.
type configSection int

const (
	sectionNone configSection = iota
	sectionRequired
	sectionTerminology
	sectionBudget
	sectionSlots
)

// sectionHints maps H2 heading substrings to config sections, checked in order.
var sectionHints = []struct {
	section configSection
	hints   []string
}{
	{sectionRequired, []string{"required section", "must include", "sections", "required"}},
	{sectionTerminology, []string{"terminolog", "glossar", "term mapping", "rename"}},
	{sectionBudget, []string{"slide budget", "budget", "slides"}},
	{sectionSlots, []string{"template slot", "slot", "output structure", "report structure"}},
}

var namePrefixes = []string{"customer config:", "config:", "customer:", "customer config", "config"}

var (
	cfgHeadingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	cfgBulletRe   = regexp.MustCompile(`^[-*]\s+(.*)$`)
	cfgNumberedRe = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
	keywordsRe    = regexp.MustCompile(`(?i)^keywords?\s*[:=]\s*(.+)$`)
	keywordSepRe  = regexp.MustCompile(`[,;]`)

	perSectionRe = regexp.MustCompile(`per\s*[_-]?section\s*(?:max|maximum)?\s*[:=]\s*(\d+)|max(?:imum)?\s*per\s*section\s*[:=]\s*(\d+)`)
	bulletsRe    = regexp.MustCompile(`bullets?\s*per\s*slide\s*[:=]\s*(\d+)`)
	maxSlidesRe  = regexp.MustCompile(`max(?:imum)?\s*(?:slides?)?\s*[:=]\s*(\d+)`)
	minSlidesRe  = regexp.MustCompile(`min(?:imum)?\s*(?:slides?)?\s*[:=]\s*(\d+)`)
)

// termSeparators are tried in order on each terminology bullet.
var termSeparators = []string{" → ", " -> ", "→", "->"}

func detectSection(heading string) configSection {
	lower := strings.ToLower(heading)
	for _, sh := range sectionHints {
		for _, h := range sh.hints {
			if strings.Contains(lower, h) {
				return sh.section
			}
		}
	}
	return sectionNone
}

func stripNamePrefix(s string) string {
	lower := strings.ToLower(s)
	for _, p := range namePrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// slotBuffer collects the description and keyword lines of one H3 slot.
type slotBuffer struct {
	name     string
	desc     []string
	keywords []string
}

// ParseConfigMarkdown parses the structured config-page format:
//
//	# Customer Config: Acme
//	## Required Sections
//	- Executive Summary
//	## Terminology
//	- Customer → Client
//	## Slide Budget
//	- Min slides: 8
//	- Max slides: 25
//	- Max per section: 4
//	## Template Slots
//	### Executive Summary
//	High-level overview.
//	Keywords: company, revenue
//
// Every section is optional. Missing values fall back to defaults and each
// fallback that matters is reported as a warning.
func ParseConfigMarkdown(text, fallbackName string) (types.CustomerConfig, []string) {
	var (
		cfg      types.CustomerConfig
		warnings []string
		current  = sectionNone
		slot     *slotBuffer
	)
	cfg.SlideBudget = types.DefaultSlideBudget()

	flush := func() {
		if slot == nil {
			return
		}
		if cfg.Slots == nil {
			cfg.Slots = make(map[string]types.SlotDefinition)
		}
		cfg.Slots[slot.name] = types.SlotDefinition{
			Description: strings.Join(slot.desc, " "),
			Keywords:    slot.keywords,
		}
		slot = nil
	}

	lines := strings.Split(text, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := cfgHeadingRe.FindStringSubmatch(trimmed); m != nil {
			level, heading := len(m[1]), strings.TrimSpace(m[2])
			switch {
			case level == 1:
				flush()
				current = sectionNone
				if cfg.Name == "" {
					cfg.Name = stripNamePrefix(heading)
				}
			case level == 2:
				flush()
				current = detectSection(heading)
			case level == 3 && current == sectionSlots:
				flush()
				slot = &slotBuffer{name: heading}
			default:
				flush()
				current = sectionNone
			}
			continue
		}

		if current == sectionSlots && slot != nil {
			if m := keywordsRe.FindStringSubmatch(trimmed); m != nil {
				for _, kw := range keywordSepRe.Split(m[1], -1) {
					if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
						slot.keywords = append(slot.keywords, kw)
					}
				}
				continue
			}
			slot.desc = append(slot.desc, trimmed)
			continue
		}

		item := ""
		if m := cfgBulletRe.FindStringSubmatch(trimmed); m != nil {
			item = strings.TrimSpace(m[1])
		} else if m := cfgNumberedRe.FindStringSubmatch(trimmed); m != nil && current == sectionRequired {
			item = strings.TrimSpace(m[1])
		}
		if item == "" {
			continue
		}

		switch current {
		case sectionRequired:
			cfg.MustInclude = append(cfg.MustInclude, item)
		case sectionTerminology:
			if from, to, ok := splitTerm(item); ok {
				cfg.Terminology = setTerm(cfg.Terminology, from, to)
			} else {
				warnings = append(warnings, fmt.Sprintf("terminology entry %q has no → or -> separator", item))
			}
		case sectionBudget:
			parseBudgetLine(&cfg.SlideBudget, strings.ToLower(item))
		}
	}
	flush()

	if cfg.Name == "" {
		cfg.Name = fallbackName
		warnings = append(warnings, fmt.Sprintf("no customer name found in config page, using %q", fallbackName))
	}
	if len(cfg.MustInclude) == 0 {
		warnings = append(warnings, ApplyDefaults(&cfg)...)
	}
	return cfg, warnings
}

func splitTerm(item string) (from, to string, ok bool) {
	for _, sep := range termSeparators {
		if before, after, found := strings.Cut(item, sep); found {
			from, to = strings.TrimSpace(before), strings.TrimSpace(after)
			return from, to, from != "" && to != ""
		}
	}
	return "", "", false
}

// setTerm replaces the target of an existing source term in place, or
// appends a new pair.
func setTerm(pairs []types.TermPair, from, to string) []types.TermPair {
	for i := range pairs {
		if pairs[i].From == from {
			pairs[i].To = to
			return pairs
		}
	}
	return append(pairs, types.TermPair{From: from, To: to})
}

func parseBudgetLine(b *types.SlideBudget, item string) {
	if m := perSectionRe.FindStringSubmatch(item); m != nil {
		b.PerSectionMax = atoi(m[1] + m[2])
		return
	}
	if m := bulletsRe.FindStringSubmatch(item); m != nil {
		b.BulletsPerSlide = atoi(m[1])
		return
	}
	if m := maxSlidesRe.FindStringSubmatch(item); m != nil {
		b.Max = atoi(m[1])
		return
	}
	if m := minSlidesRe.FindStringSubmatch(item); m != nil {
		b.Min = atoi(m[1])
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
