// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// Hit is one evidence item matched by Search, with the run it came from.
type Hit struct {
	types.EvidenceItem `yaml:",inline"`
	RunID              string  `json:"run_id" yaml:"run_id"`
	Customer           string  `json:"customer" yaml:"customer"`
	Rank               float64 `json:"rank" yaml:"rank"`
}

// Citation is one bullet that cited an evidence item.
type Citation struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Customer string `json:"customer" yaml:"customer"`
	Section  string `json:"section" yaml:"section"`
	Position int    `json:"position" yaml:"position"`
	Bullet   string `json:"bullet" yaml:"bullet"`
}

// TraceResult is the provenance of one evidence id: every run that
// extracted it and every bullet that cited it.
type TraceResult struct {
	ID        string     `json:"id" yaml:"id"`
	Items     []Hit      `json:"items" yaml:"items"`
	Citations []Citation `json:"citations" yaml:"citations"`
}

// Found reports whether the id appears anywhere in the ledger.
func (t TraceResult) Found() bool {
	return len(t.Items) > 0 || len(t.Citations) > 0
}

// Run summarises one recorded pipeline run.
type Run struct {
	ID          string    `json:"id" yaml:"id"`
	Customer    string    `json:"customer" yaml:"customer"`
	Title       string    `json:"title" yaml:"title"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Sections    int       `json:"sections" yaml:"sections"`
	Bullets     int       `json:"bullets" yaml:"bullets"`
	Evidence    int       `json:"evidence" yaml:"evidence"`
}

const evidenceColumns = `e.id, e.section, e.quote, e.block_type, e.path,
	e.source_id, e.source_title, e.source_url, e.run_id, r.customer`

// Search runs an FTS5 query over evidence quotes and sections, best match
// first. A non-positive limit uses the default of 20.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search: empty query")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	var qb strings.Builder
	qb.WriteString(`SELECT ` + evidenceColumns + `, evidence_fts.rank
		FROM evidence_fts
		JOIN evidence e ON e.rowid = evidence_fts.rowid
		JOIN runs r ON r.id = e.run_id
		WHERE evidence_fts MATCH ?
		ORDER BY evidence_fts.rank
		LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, qb.String(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching evidence: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		h, err := scanHit(rows, true)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Trace returns every recorded occurrence and citation of an evidence id.
func (s *Store) Trace(ctx context.Context, id string) (TraceResult, error) {
	result := TraceResult{ID: id}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+evidenceColumns+`
		FROM evidence e
		JOIN runs r ON r.id = e.run_id
		WHERE e.id = ?
		ORDER BY r.generated_at, e.rowid`, id)
	if err != nil {
		return result, fmt.Errorf("tracing %s: %w", id, err)
	}
	for rows.Next() {
		h, err := scanHit(rows, false)
		if err != nil {
			rows.Close()
			return result, err
		}
		result.Items = append(result.Items, h)
	}
	if err := rows.Close(); err != nil {
		return result, err
	}

	crows, err := s.db.QueryContext(ctx,
		`SELECT c.run_id, r.customer, c.section, c.position, c.bullet
		FROM citations c
		JOIN runs r ON r.id = c.run_id
		WHERE c.evidence_id = ?
		ORDER BY r.generated_at, c.section, c.position`, id)
	if err != nil {
		return result, fmt.Errorf("tracing citations of %s: %w", id, err)
	}
	defer crows.Close()
	for crows.Next() {
		var c Citation
		if err := crows.Scan(&c.RunID, &c.Customer, &c.Section, &c.Position, &c.Bullet); err != nil {
			return result, fmt.Errorf("scanning citation: %w", err)
		}
		result.Citations = append(result.Citations, c)
	}
	return result, crows.Err()
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer, title, generated_at, sections, bullets, evidence
		FROM runs ORDER BY generated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			generated string
		)
		if err := rows.Scan(&r.ID, &r.Customer, &r.Title, &generated, &r.Sections, &r.Bullets, &r.Evidence); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.GeneratedAt, _ = time.Parse(timeLayout, generated)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanHit(rows *sql.Rows, withRank bool) (Hit, error) {
	var (
		h               Hit
		blockType, path sql.NullString
		srcID, srcTitle sql.NullString
		srcURL          sql.NullString
	)
	dest := []any{
		&h.ID, &h.Section, &h.Quote, &blockType, &path,
		&srcID, &srcTitle, &srcURL, &h.RunID, &h.Customer,
	}
	if withRank {
		dest = append(dest, &h.Rank)
	}
	if err := rows.Scan(dest...); err != nil {
		return Hit{}, fmt.Errorf("scanning evidence: %w", err)
	}
	h.BlockType = types.BlockType(blockType.String)
	if path.String != "" {
		h.Path = strings.Split(path.String, pathSeparator)
	}
	h.Source = types.SourceMeta{ID: srcID.String, Title: srcTitle.String, URL: srcURL.String}
	return h, nil
}
