// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

const sampleNotes = `# Acme Discovery

## Financials
- Revenue grew 20% YoY
- [ ] Confirm Q3 numbers

## Pain Points
1. Manual reconciliation takes two days
> "We lose a week every quarter"

` + "```" + `
select * from invoices
` + "```" + `
---
Closing remarks for the team.
`

func TestParseMarkdown(t *testing.T) {
	meta := types.SourceMeta{ID: "notes", Title: "Notes"}
	blocks := ParseMarkdown(sampleNotes, meta)

	type want struct {
		typ     types.BlockType
		text    string
		section string
	}
	expected := []want{
		{types.BlockHeading, "Acme Discovery", "Acme Discovery"},
		{types.BlockHeading, "Financials", "Financials"},
		{types.BlockBullet, "Revenue grew 20% YoY", "Financials"},
		{types.BlockTodo, "Confirm Q3 numbers", "Financials"},
		{types.BlockHeading, "Pain Points", "Pain Points"},
		{types.BlockNumbered, "Manual reconciliation takes two days", "Pain Points"},
		{types.BlockQuote, `"We lose a week every quarter"`, "Pain Points"},
		{types.BlockCode, "select * from invoices", "Pain Points"},
		{types.BlockParagraph, "Closing remarks for the team.", "Pain Points"},
	}

	require.Len(t, blocks, len(expected))
	for i, w := range expected {
		assert.Equal(t, w.typ, blocks[i].Type, "block %d type", i)
		assert.Equal(t, w.text, blocks[i].Text, "block %d text", i)
		assert.Equal(t, w.section, blocks[i].Section, "block %d section", i)
		assert.Equal(t, meta, blocks[i].Source)
	}
	assert.Equal(t, []string{"Acme Discovery", "Financials"}, blocks[2].Path)
}

func TestParseMarkdownHeadingHierarchy(t *testing.T) {
	blocks := ParseMarkdown("# A\n### C\ntext one\n## B\ntext two\n", types.SourceMeta{})
	require.Len(t, blocks, 5)

	assert.Equal(t, []string{"A", "C"}, blocks[2].Path)
	assert.Equal(t, "C", blocks[2].Section)
	assert.Equal(t, []string{"A", "B"}, blocks[4].Path)
	assert.Equal(t, "B", blocks[4].Section)
}

func TestParseMarkdownBeforeHeading(t *testing.T) {
	blocks := ParseMarkdown("loose paragraph\n# Later\n", types.SourceMeta{})
	require.Len(t, blocks, 2)
	assert.Equal(t, "", blocks[0].Section)
	assert.Empty(t, blocks[0].Path)
}

func TestParseMarkdownEmpty(t *testing.T) {
	assert.Empty(t, ParseMarkdown("", types.SourceMeta{}))
	assert.Empty(t, ParseMarkdown("\n\n---\n   \n", types.SourceMeta{}))
}

func TestParseTextTitleFallback(t *testing.T) {
	doc, err := ParseText("# Kickoff\n- point one\n", types.SourceMeta{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", doc.Source.Title)
	assert.Equal(t, "Kickoff", doc.Blocks[1].Source.Title)

	_, err = ParseText("   \n", types.SourceMeta{})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestTextReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme-call.md")
	require.NoError(t, os.WriteFile(path, []byte("## Goals\n- Reduce churn\n"), 0o644))

	r := &TextReader{}
	doc, err := r.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "acme-call", doc.Source.ID)
	assert.Equal(t, path, doc.Source.URL)
	assert.Len(t, doc.Blocks, 2)

	_, err = r.Read(context.Background(), filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}

func TestTextReaderStdin(t *testing.T) {
	r := &TextReader{Stdin: strings.NewReader("# Pasted\nSome notes here\n")}
	doc, err := r.Read(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "stdin", doc.Source.ID)
	assert.Equal(t, "Pasted", doc.Source.Title)
}

type stubReader struct {
	name string
	refs []string
}

func (s *stubReader) Read(_ context.Context, ref string) (types.Document, error) {
	s.refs = append(s.refs, ref)
	return types.Document{Source: types.SourceMeta{ID: s.name}}, nil
}

func TestResolver(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"notion url", "https://www.notion.so/acme/Kickoff-0123456789abcdef0123456789abcdef", "notion"},
		{"bare page id", "01234567-89ab-cdef-0123-456789abcdef", "notion"},
		{"web page", "https://example.com/blog/post", "html"},
		{"file", "notes/call.md", "text"},
		{"pdf", "notes/Call Notes.PDF", "document"},
		{"deck", "decks/qbr.pptx", "document"},
		{"stdin", "-", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{
				Notion:   &stubReader{name: "notion"},
				HTML:     &stubReader{name: "html"},
				Document: &stubReader{name: "document"},
				Text:     &stubReader{name: "text"},
			}
			doc, err := r.Read(context.Background(), tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Source.ID)
		})
	}
}

func TestResolverMissingNotion(t *testing.T) {
	r := &Resolver{Text: &stubReader{name: "text"}}
	_, err := r.Read(context.Background(), "0123456789abcdef0123456789abcdef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion")

	_, err = r.Read(context.Background(), "call.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter")

	_, err = r.Read(context.Background(), "  ")
	assert.Error(t, err)
}

func TestMarkdownText(t *testing.T) {
	blocks := []types.Block{
		{Type: types.BlockHeading, Level: 1, Text: "Config: Acme"},
		{Type: types.BlockHeading, Level: 9, Text: "Deep"},
		{Type: types.BlockBullet, Text: "Executive Summary"},
		{Type: types.BlockNumbered, Text: "Financials"},
		{Type: types.BlockTodo, Text: "Send deck"},
		{Type: types.BlockQuote, Text: "We need this by Q3"},
		{Type: types.BlockCode, Text: "x := 1"},
		{Type: types.BlockParagraph, Text: "Keywords: revenue"},
	}
	want := "# Config: Acme\n" +
		"###### Deep\n" +
		"- Executive Summary\n" +
		"1. Financials\n" +
		"- [ ] Send deck\n" +
		"> We need this by Q3\n" +
		"```\nx := 1\n```\n" +
		"Keywords: revenue\n"
	assert.Equal(t, want, MarkdownText(blocks))
}

func TestMarkdownTextRoundTrip(t *testing.T) {
	doc, err := ParseText(sampleNotes, types.SourceMeta{Title: "notes"})
	require.NoError(t, err)

	again, err := ParseText(MarkdownText(doc.Blocks), types.SourceMeta{Title: "notes"})
	require.NoError(t, err)
	assert.Equal(t, doc.Source.Title, again.Source.Title)
	require.Len(t, again.Blocks, len(doc.Blocks))
	for i := range doc.Blocks {
		assert.Equal(t, doc.Blocks[i].Type, again.Blocks[i].Type, i)
		assert.Equal(t, doc.Blocks[i].Text, again.Blocks[i].Text, i)
	}
}
