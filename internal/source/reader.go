// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// ErrNoContent is returned when a source yields no blocks.
var ErrNoContent = errors.New("source has no content")

// Reader resolves a document reference into blocks. Implementations do not
// retry; fetch errors are returned to the caller as-is.
type Reader interface {
	Read(ctx context.Context, ref string) (types.Document, error)
}

// ParseText turns pasted text into a Document. The title is the first H1,
// falling back to meta.Title.
func ParseText(content string, meta types.SourceMeta) (types.Document, error) {
	blocks := ParseMarkdown(content, meta)
	if len(blocks) == 0 {
		return types.Document{}, ErrNoContent
	}
	if meta.Title == "" {
		meta.Title = firstHeading(blocks)
		for i := range blocks {
			blocks[i].Source.Title = meta.Title
		}
	}
	return types.Document{Source: meta, Blocks: blocks}, nil
}

// TextReader reads Markdown or plain text from a file, or from Stdin when
// the reference is "-".
type TextReader struct {
	Stdin io.Reader
}

// Read implements Reader.
func (r *TextReader) Read(_ context.Context, ref string) (types.Document, error) {
	var (
		data []byte
		err  error
		meta types.SourceMeta
	)

	if ref == "-" {
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
		if err != nil {
			return types.Document{}, fmt.Errorf("reading stdin: %w", err)
		}
		meta = types.SourceMeta{ID: "stdin", URL: "-"}
	} else {
		data, err = os.ReadFile(ref)
		if err != nil {
			return types.Document{}, fmt.Errorf("reading %s: %w", ref, err)
		}
		base := filepath.Base(ref)
		meta = types.SourceMeta{
			ID:  strings.TrimSuffix(base, filepath.Ext(base)),
			URL: ref,
		}
	}

	return ParseText(string(data), meta)
}

// Resolver routes a reference to the reader that understands it: Notion
// URLs and page ids go to Notion, other http(s) URLs to HTML, PDF and
// Office files to Document, everything else (including "-") to Text.
type Resolver struct {
	Notion   Reader
	HTML     Reader
	Document Reader
	Text     Reader
}

// Read implements Reader.
func (r *Resolver) Read(ctx context.Context, ref string) (types.Document, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return types.Document{}, fmt.Errorf("empty source reference")
	}

	var reader Reader
	switch {
	case IsNotionRef(ref):
		reader = r.Notion
		if reader == nil {
			return types.Document{}, fmt.Errorf("notion reader not configured for %s (set a notion token)", ref)
		}
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		reader = r.HTML
	case IsDocumentRef(ref):
		reader = r.Document
		if reader == nil {
			return types.Document{}, fmt.Errorf("no document converter configured for %s", ref)
		}
	default:
		reader = r.Text
	}
	if reader == nil {
		return types.Document{}, fmt.Errorf("no reader configured for %s", ref)
	}
	return reader.Read(ctx, ref)
}
