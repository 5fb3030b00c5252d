// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// ExtractiveDrafter drafts one bullet per evidence item, quoting the item
// verbatim and citing its id. It makes no network calls.
type ExtractiveDrafter struct{}

// Draft implements Drafter.
func (ExtractiveDrafter) Draft(_ context.Context, req SlotRequest) (SectionDraft, error) {
	items := req.Evidence
	if limit := req.MaxBullets(); limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	var d SectionDraft
	for _, it := range items {
		d.Bullets = append(d.Bullets, types.Bullet{Text: it.Quote, EvidenceIDs: []string{it.ID}})
	}
	return d, nil
}
