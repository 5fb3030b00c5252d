// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// EvidenceItem is a minimal, citable unit of extracted source text.
// Items are immutable once created; the ID is the only way to cite one.
type EvidenceItem struct {
	// ID is "EVID-" plus a hash of the section label and a text prefix.
	ID string `json:"id" yaml:"id"`

	// Section is the source section label the block was found under.
	Section string `json:"section" yaml:"section"`

	// Quote is the verbatim block text.
	Quote string `json:"quote" yaml:"quote"`

	// BlockType is the kind of block the quote came from.
	BlockType BlockType `json:"block_type" yaml:"block_type"`

	// Path is the heading hierarchy above the block.
	Path []string `json:"path,omitempty" yaml:"path,omitempty"`

	// Source identifies the originating document, when known.
	Source SourceMeta `json:"source,omitempty" yaml:"source,omitempty"`
}

// SourcePath renders the item's location as "Title > H1 > H2".
func (e EvidenceItem) SourcePath() string {
	var parts []string
	name := e.Source.Title
	if name == "" {
		name = e.Source.ID
	}
	if name != "" {
		parts = append(parts, name)
	}
	parts = append(parts, e.Path...)
	if len(parts) == 0 {
		return "Source"
	}
	return strings.Join(parts, " > ")
}

// EvidenceSet is an insertion-ordered collection of evidence items keyed by ID.
// The zero value is ready to use.
type EvidenceSet struct {
	order []string
	items map[string]EvidenceItem
}

// NewEvidenceSet returns a set holding items in order.
func NewEvidenceSet(items ...EvidenceItem) *EvidenceSet {
	s := &EvidenceSet{}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts item and reports whether it was new. If an item with the
// same ID already exists the first one is kept.
func (s *EvidenceSet) Add(item EvidenceItem) bool {
	if s.items == nil {
		s.items = make(map[string]EvidenceItem)
	}
	if _, ok := s.items[item.ID]; ok {
		return false
	}
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	return true
}

// Get returns the item with the given ID.
func (s *EvidenceSet) Get(id string) (EvidenceItem, bool) {
	if s == nil || s.items == nil {
		return EvidenceItem{}, false
	}
	it, ok := s.items[id]
	return it, ok
}

// Has reports whether id is in the set.
func (s *EvidenceSet) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Len returns the number of items.
func (s *EvidenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Items returns the items in insertion order.
func (s *EvidenceSet) Items() []EvidenceItem {
	if s == nil {
		return nil
	}
	out := make([]EvidenceItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// IDs returns the item IDs in insertion order.
func (s *EvidenceSet) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Search returns items whose quote or section contains any keyword,
// case-insensitively, in insertion order.
func (s *EvidenceSet) Search(keywords []string) []EvidenceItem {
	var out []EvidenceItem
	for _, it := range s.Items() {
		text := strings.ToLower(it.Section + " " + it.Quote)
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Merge adds every item of other that is not already present.
func (s *EvidenceSet) Merge(other *EvidenceSet) {
	for _, it := range other.Items() {
		s.Add(it)
	}
}
