// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source reads discovery material and flattens it into ordered,
// section-labelled blocks. Markdown text, files, stdin, Notion pages and
// HTML pages are supported.
package source

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	todoRe     = regexp.MustCompile(`^[-*]\s+\[( |x|X)\]\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	numberedRe = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
	quoteRe    = regexp.MustCompile(`^>\s?(.*)$`)
)

// builder accumulates blocks and tracks the running section label and
// heading hierarchy.
type builder struct {
	meta   types.SourceMeta
	path   []string
	blocks []types.Block
}

func newBuilder(meta types.SourceMeta) *builder {
	return &builder{meta: meta}
}

// heading records a heading block and makes it the current section.
func (b *builder) heading(level int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	keep := level - 1
	if keep > len(b.path) {
		keep = len(b.path)
	}
	b.path = append(b.path[:keep:keep], text)
	b.blocks = append(b.blocks, types.Block{
		Type:    types.BlockHeading,
		Text:    text,
		Level:   level,
		Section: text,
		Path:    append([]string(nil), b.path...),
		Source:  b.meta,
	})
}

// add records a non-heading block under the current section.
func (b *builder) add(t types.BlockType, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.blocks = append(b.blocks, types.Block{
		Type:    t,
		Text:    text,
		Section: b.section(),
		Path:    append([]string(nil), b.path...),
		Source:  b.meta,
	})
}

func (b *builder) section() string {
	if len(b.path) == 0 {
		return ""
	}
	return b.path[len(b.path)-1]
}

// ParseMarkdown splits Markdown-like text into blocks in source order.
// Headings (# to ######) set the section label for the blocks that follow;
// fenced code is emitted as a single code block.
func ParseMarkdown(content string, meta types.SourceMeta) []types.Block {
	b := newBuilder(meta)

	var (
		inFence   bool
		fenceBody []string
	)

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				b.add(types.BlockCode, strings.Join(fenceBody, "\n"))
				fenceBody = nil
			}
			inFence = !inFence
			continue
		}
		if inFence {
			fenceBody = append(fenceBody, line)
			continue
		}

		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			b.heading(len(m[1]), m[2])
			continue
		}
		if m := todoRe.FindStringSubmatch(trimmed); m != nil {
			b.add(types.BlockTodo, m[2])
			continue
		}
		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			b.add(types.BlockBullet, m[1])
			continue
		}
		if m := numberedRe.FindStringSubmatch(trimmed); m != nil {
			b.add(types.BlockNumbered, m[1])
			continue
		}
		if m := quoteRe.FindStringSubmatch(trimmed); m != nil {
			b.add(types.BlockQuote, m[1])
			continue
		}
		b.add(types.BlockParagraph, trimmed)
	}

	// Unterminated fence: keep what was collected.
	if inFence && len(fenceBody) > 0 {
		b.add(types.BlockCode, strings.Join(fenceBody, "\n"))
	}

	return b.blocks
}

// firstHeading returns the text of the first level-1 heading, if any.
func firstHeading(blocks []types.Block) string {
	for _, blk := range blocks {
		if blk.Type == types.BlockHeading && blk.Level == 1 {
			return blk.Text
		}
	}
	return ""
}

// MarkdownText renders blocks back to Markdown, one line per block, so
// text-oriented parsers can consume any reader's output.
func MarkdownText(blocks []types.Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch b.Type {
		case types.BlockHeading:
			level := min(max(b.Level, 1), 6)
			fmt.Fprintf(&sb, "%s %s\n", strings.Repeat("#", level), b.Text)
		case types.BlockBullet:
			fmt.Fprintf(&sb, "- %s\n", b.Text)
		case types.BlockNumbered:
			fmt.Fprintf(&sb, "1. %s\n", b.Text)
		case types.BlockTodo:
			fmt.Fprintf(&sb, "- [ ] %s\n", b.Text)
		case types.BlockQuote:
			fmt.Fprintf(&sb, "> %s\n", b.Text)
		case types.BlockCode:
			fmt.Fprintf(&sb, "```\n%s\n```\n", b.Text)
		default:
			fmt.Fprintf(&sb, "%s\n", b.Text)
		}
	}
	return sb.String()
}
