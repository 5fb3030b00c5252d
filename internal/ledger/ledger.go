// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records every run's evidence and citations in a local
// SQLite database so evidence can be searched and traced across runs.
//
// Full-text search uses FTS5; binaries must be built with the sqlite_fts5
// tag (mage build and mage test set it).
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const (
	dbFile        = "ledger.db"
	defaultLimit  = 20
	timeLayout    = time.RFC3339Nano
	pathSeparator = " > "
)

// ErrDisabled is returned by Open when no ledger directory is configured.
var ErrDisabled = errors.New("ledger disabled: no ledger dir configured")

// Store is the evidence ledger database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates <cfg.Dir>/ledger.db and its schema.
func Open(cfg types.LedgerConfig) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, ErrDisabled
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, dbFile)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			customer TEXT NOT NULL,
			title TEXT NOT NULL,
			summary TEXT,
			generated_at TEXT NOT NULL,
			sections INTEGER NOT NULL,
			bullets INTEGER NOT NULL,
			evidence INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			section TEXT NOT NULL,
			quote TEXT NOT NULL,
			block_type TEXT,
			path TEXT,
			source_id TEXT,
			source_title TEXT,
			source_url TEXT,
			UNIQUE(run_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_id ON evidence(id)`,
		`CREATE TABLE IF NOT EXISTS citations (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			section TEXT NOT NULL,
			position INTEGER NOT NULL,
			bullet TEXT NOT NULL,
			evidence_id TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_evidence ON citations(evidence_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='evidence_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE evidence_fts USING fts5(quote, section, content=evidence, content_rowid=rowid)`,
		`CREATE TRIGGER evidence_ai AFTER INSERT ON evidence BEGIN
			INSERT INTO evidence_fts(rowid, quote, section) VALUES (new.rowid, new.quote, new.section);
		END`,
		`CREATE TRIGGER evidence_ad AFTER DELETE ON evidence BEGIN
			INSERT INTO evidence_fts(evidence_fts, rowid, quote, section) VALUES('delete', old.rowid, old.quote, old.section);
		END`,
		`CREATE TRIGGER evidence_au AFTER UPDATE ON evidence BEGIN
			INSERT INTO evidence_fts(evidence_fts, rowid, quote, section) VALUES('delete', old.rowid, old.quote, old.section);
			INSERT INTO evidence_fts(rowid, quote, section) VALUES (new.rowid, new.quote, new.section);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// RecordSummary holds counts from recording one run.
type RecordSummary struct {
	Evidence  int
	Citations int
}

// Record stores a report's evidence set and bullet citations under its run
// id. Recording the same run id again replaces the earlier rows.
func (s *Store) Record(ctx context.Context, report *types.Report) (RecordSummary, error) {
	if report == nil || report.RunID == "" {
		return RecordSummary{}, fmt.Errorf("recording run: report has no run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RecordSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.RunID); err != nil {
		return RecordSummary{}, fmt.Errorf("deleting old run: %w", err)
	}

	bullets := 0
	for _, sec := range report.Sections {
		bullets += len(sec.Bullets)
	}
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, customer, title, summary, generated_at, sections, bullets, evidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Customer, report.Title, report.Summary,
		generated.UTC().Format(timeLayout), len(report.Sections), bullets, report.Evidence.Len(),
	)
	if err != nil {
		return RecordSummary{}, fmt.Errorf("inserting run: %w", err)
	}

	var summary RecordSummary

	evStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence (run_id, id, section, quote, block_type, path, source_id, source_title, source_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return RecordSummary{}, fmt.Errorf("preparing evidence insert: %w", err)
	}
	defer evStmt.Close()

	for _, it := range report.Evidence.Items() {
		_, err := evStmt.ExecContext(ctx,
			report.RunID, it.ID, it.Section, it.Quote, string(it.BlockType),
			strings.Join(it.Path, pathSeparator), it.Source.ID, it.Source.Title, it.Source.URL,
		)
		if err != nil {
			return RecordSummary{}, fmt.Errorf("inserting evidence %s: %w", it.ID, err)
		}
		summary.Evidence++
	}

	citeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO citations (run_id, section, position, bullet, evidence_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return RecordSummary{}, fmt.Errorf("preparing citation insert: %w", err)
	}
	defer citeStmt.Close()

	for _, sec := range report.Sections {
		for i, b := range sec.Bullets {
			for _, id := range b.EvidenceIDs {
				if _, err := citeStmt.ExecContext(ctx, report.RunID, sec.Name, i, b.Text, id); err != nil {
					return RecordSummary{}, fmt.Errorf("inserting citation %s: %w", id, err)
				}
				summary.Citations++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return RecordSummary{}, fmt.Errorf("committing run %s: %w", report.RunID, err)
	}
	return summary, nil
}
