// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package template

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// minKeywordRunes is the length a word of a section name must exceed to
// become a derived keyword.
const minKeywordRunes = 3

// BuildTemplate returns one slot per required section, in configured
// order. Slot definitions supply descriptions and keywords; sections
// without a definition (or with no keywords) derive keywords from their
// name. Slot targets default to the per-section maximum.
func BuildTemplate(cfg types.CustomerConfig) types.ReportTemplate {
	tpl := types.ReportTemplate{Customer: cfg.Name}
	for _, name := range cfg.MustInclude {
		slot := types.TemplateSlot{Name: name, Required: true}
		if def, ok := cfg.Slots[name]; ok {
			slot.Description = def.Description
			slot.Keywords = append([]string(nil), def.Keywords...)
			slot.SlideTarget = def.SlideTarget
		}
		if len(slot.Keywords) == 0 {
			slot.Keywords = DeriveKeywords(name)
		}
		if slot.SlideTarget <= 0 || slot.SlideTarget > cfg.SlideBudget.PerSectionMax {
			slot.SlideTarget = cfg.SlideBudget.PerSectionMax
		}
		tpl.Slots = append(tpl.Slots, slot)
	}
	return tpl
}

// DeriveKeywords lowercases the words of name that are longer than three
// runes: "Key Findings" gives [findings].
func DeriveKeywords(name string) []string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	var out []string
	for _, w := range words {
		if len([]rune(w)) > minKeywordRunes {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

// Terminology applies ordered, case-insensitive whole-word substitutions.
type Terminology struct {
	rules []termRule
}

type termRule struct {
	re *regexp.Regexp
	to string
}

// NewTerminology compiles pairs. Pairs with an empty source term are skipped.
func NewTerminology(pairs []types.TermPair) *Terminology {
	t := &Terminology{}
	for _, p := range pairs {
		from := strings.TrimSpace(p.From)
		if from == "" {
			continue
		}
		t.rules = append(t.rules, termRule{
			re: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`),
			to: p.To,
		})
	}
	return t
}

// Apply rewrites text. Later pairs see the output of earlier ones.
func (t *Terminology) Apply(text string) string {
	if t == nil {
		return text
	}
	for _, r := range t.rules {
		text = r.re.ReplaceAllLiteralString(text, r.to)
	}
	return text
}

// Len returns the number of active substitutions.
func (t *Terminology) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// ApplyTerminology is a convenience for a single substitution pass.
func ApplyTerminology(pairs []types.TermPair, text string) string {
	return NewTerminology(pairs).Apply(text)
}

// MissingSections returns the required concepts of cfg that do not appear,
// case-insensitively, within any of the given section names.
func MissingSections(cfg types.CustomerConfig, names []string) []string {
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}

	var missing []string
	for _, concept := range cfg.MustInclude {
		c := strings.ToLower(concept)
		found := false
		for _, n := range lower {
			if strings.Contains(n, c) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, concept)
		}
	}
	return missing
}
