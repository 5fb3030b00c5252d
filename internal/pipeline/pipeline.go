// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one discovery report end to end: read, extract,
// template, analyze, revise, budget, validate, render, and optionally
// record to the ledger and publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/smart-discovery/internal/analyze"
	"github.com/pdiddy/smart-discovery/internal/budget"
	"github.com/pdiddy/smart-discovery/internal/evidence"
	"github.com/pdiddy/smart-discovery/internal/ledger"
	"github.com/pdiddy/smart-discovery/internal/publish"
	"github.com/pdiddy/smart-discovery/internal/render"
	"github.com/pdiddy/smart-discovery/internal/revise"
	"github.com/pdiddy/smart-discovery/internal/source"
	"github.com/pdiddy/smart-discovery/internal/template"
	"github.com/pdiddy/smart-discovery/internal/validate"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// ErrNoInput is returned when a run has neither source references nor
// pasted content.
var ErrNoInput = errors.New("no input: give source references or content")

// Stage names used in error wrapping and logs.
const (
	StageConfig   = "config"
	StageRead     = "read"
	StageAnalyze  = "analyze"
	StageValidate = "validate"
	StageRender   = "render"
)

// Input is what one run reports on.
type Input struct {
	// Config is the customer config. Defaults are applied by Run.
	Config types.CustomerConfig

	// Refs are source references (Notion URLs or ids, web URLs, files, "-").
	// When empty, Config.InputPages is used.
	Refs []string

	// Content is pasted Markdown or text read in addition to Refs.
	Content string
}

// Options carries the collaborators of a run. Zero values select the
// defaults built from Settings.
type Options struct {
	Settings types.PipelineConfig

	// Reader resolves Refs. Default: NewReader(Settings, os.Stdin).
	Reader source.Reader

	// Drafter fills slots. Default: NewDrafter(Settings.AI).
	Drafter analyze.Drafter

	// Ledger records the run when set.
	Ledger *ledger.Store

	// Publisher uploads rendered files when set.
	Publisher *publish.Publisher

	// Progress receives one line per stage.
	Progress io.Writer

	Logger *slog.Logger

	// Now stamps the report. Default time.Now.
	Now func() time.Time
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	Report     *types.Report
	Warnings   []string
	Analysis   analyze.Summary
	Revision   revise.Revision
	Plan       budget.Plan
	Validation validate.Result

	// Markdown is the rendered Markdown report, always produced on success.
	Markdown string

	// Files are the rendered files written to Settings.Output.Dir.
	Files []string

	Recorded  ledger.RecordSummary
	Published []publish.Object
}

// NewReader builds the default source resolver. Notion is only available
// when a token is configured.
func NewReader(settings types.PipelineConfig, stdin io.Reader) *source.Resolver {
	r := &source.Resolver{
		HTML:     source.NewHTMLReader(settings.Notion.HTTPConfig),
		Document: source.NewDocumentReader(settings.Convert),
		Text:     &source.TextReader{Stdin: stdin},
	}
	if settings.Notion.Token != "" {
		r.Notion = source.NewNotionReader(settings.Notion)
	}
	return r
}

// NewDrafter returns the Claude drafter when a model and key are set, and
// the extractive drafter otherwise.
func NewDrafter(cfg types.AIConfig) analyze.Drafter {
	if cfg.Model != "" && cfg.APIKey != "" {
		return analyze.NewClaudeDrafter(cfg, nil)
	}
	return analyze.ExtractiveDrafter{}
}

// Run executes the pipeline. Config problems are returned before any
// source is read. A validation failure returns the partial result and an
// error wrapping validate.ErrUngrounded; nothing is rendered in that case.
func Run(ctx context.Context, in Input, opts Options) (*Result, error) {
	w := opts.Progress
	if w == nil {
		w = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	res := &Result{RunID: uuid.NewString()}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", res.RunID)

	// Config.
	cfg := in.Config
	res.Warnings = append(res.Warnings, template.ApplyDefaults(&cfg)...)
	if err := template.Validate(cfg); err != nil {
		return res, fmt.Errorf("%s: %w", StageConfig, err)
	}

	// Read.
	docs, err := readAll(ctx, in, cfg, opts, w)
	if err != nil {
		return res, err
	}

	// Extract.
	set := evidence.ExtractDocuments(docs, evidence.DefaultMinLength)
	fmt.Fprintf(w, "extracted %d evidence items from %d documents\n", set.Len(), len(docs))
	log.Info("evidence extracted", "documents", len(docs), "items", set.Len())

	// Template and analyze.
	tpl := template.BuildTemplate(cfg)
	drafter := opts.Drafter
	if drafter == nil {
		drafter = NewDrafter(opts.Settings.AI)
	}
	report, summary, err := analyze.Analyze(ctx, drafter, cfg, tpl, set, w)
	if err != nil {
		return res, fmt.Errorf("%s: %w", StageAnalyze, err)
	}
	report.RunID = res.RunID
	report.GeneratedAt = now()
	res.Report = report
	res.Analysis = summary
	log.Info("sections drafted", "sections", summary.Sections, "bullets", summary.Bullets, "failed", summary.Failed)

	// Revise.
	res.Revision = revise.Revise(report)
	fmt.Fprintf(w, "revised: %s\n", res.Revision)

	// Budget.
	res.Plan = budget.Enforce(report.Sections, cfg.SlideBudget)
	report.Sections = res.Plan.Sections
	res.Warnings = append(res.Warnings, res.Plan.Warnings...)
	fmt.Fprintf(w, "budget: %d slides (max %d), %d bullets trimmed\n", res.Plan.Total, cfg.SlideBudget.Max, res.Plan.Trimmed)

	// Validate.
	res.Validation, err = validate.Report(report, cfg)
	if err != nil {
		log.Warn("validation failed", "error", err)
		return res, fmt.Errorf("%s: %w", StageValidate, err)
	}
	for _, missing := range res.Validation.MissingSections {
		res.Warnings = append(res.Warnings, fmt.Sprintf("required section %q not found in report", missing))
	}
	fmt.Fprintf(w, "validated: %d/%d bullets grounded\n", res.Validation.GroundedBullets, res.Validation.TotalBullets)

	// Render.
	res.Markdown = render.Markdown(report)
	if dir := opts.Settings.Output.Dir; dir != "" {
		res.Files, err = render.WriteFiles(dir, report, opts.Settings.Output.Formats, cfg.SlideBudget)
		if err != nil {
			return res, fmt.Errorf("%s: %w", StageRender, err)
		}
		for _, f := range res.Files {
			fmt.Fprintf(w, "wrote %s\n", f)
		}
	}

	// Ledger and publish failures do not undo a rendered report.
	if opts.Ledger != nil {
		res.Recorded, err = opts.Ledger.Record(ctx, report)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("ledger: %v", err))
		} else {
			fmt.Fprintf(w, "recorded %d evidence items, %d citations\n", res.Recorded.Evidence, res.Recorded.Citations)
		}
	}
	if opts.Publisher != nil && len(res.Files) > 0 {
		res.Published, err = opts.Publisher.Publish(ctx, res.RunID, res.Files)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("publish: %v", err))
		}
		for _, obj := range res.Published {
			fmt.Fprintf(w, "published %s\n", obj.Key)
		}
	}

	for _, warn := range res.Warnings {
		log.Warn(warn)
	}
	log.Info("run complete", "sections", len(report.Sections), "slides", res.Plan.Total, "files", len(res.Files))
	return res, nil
}

func readAll(ctx context.Context, in Input, cfg types.CustomerConfig, opts Options, w io.Writer) ([]types.Document, error) {
	refs := in.Refs
	if len(refs) == 0 && in.Content == "" {
		refs = cfg.InputPages
	}
	if len(refs) == 0 && in.Content == "" {
		return nil, ErrNoInput
	}

	var docs []types.Document
	if in.Content != "" {
		doc, err := source.ParseText(in.Content, types.SourceMeta{ID: "content"})
		if err != nil {
			return nil, fmt.Errorf("%s content: %w", StageRead, err)
		}
		fmt.Fprintf(w, "read    content (%d blocks)\n", len(doc.Blocks))
		docs = append(docs, doc)
	}

	reader := opts.Reader
	if reader == nil && len(refs) > 0 {
		reader = NewReader(opts.Settings, os.Stdin)
	}
	for _, ref := range refs {
		doc, err := reader.Read(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", StageRead, ref, err)
		}
		fmt.Fprintf(w, "read    %s (%d blocks)\n", ref, len(doc.Blocks))
		docs = append(docs, doc)
	}
	return docs, nil
}
