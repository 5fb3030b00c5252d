// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

const defaultUserAgent = "smart-discovery/1.0"

// maxHTMLBytes bounds the page body read by HTMLReader.
const maxHTMLBytes = 10 << 20

// HTMLReader fetches a web page and converts its headings, paragraphs,
// list items, quotes and preformatted text into blocks.
type HTMLReader struct {
	Client    *http.Client
	UserAgent string
}

// NewHTMLReader builds a reader from shared HTTP settings.
func NewHTMLReader(cfg types.HTTPConfig) *HTMLReader {
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &HTMLReader{Client: client, UserAgent: cfg.UserAgent}
}

// Read implements Reader.
func (r *HTMLReader) Read(ctx context.Context, ref string) (types.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return types.Document{}, fmt.Errorf("creating request for %s: %w", ref, err)
	}
	ua := r.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return types.Document{}, fmt.Errorf("fetching %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Document{}, fmt.Errorf("fetching %s: HTTP %d", ref, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return types.Document{}, fmt.Errorf("reading %s: %w", ref, err)
	}
	return ParseHTML(body, types.SourceMeta{ID: ref, URL: ref})
}

// ParseHTML converts an HTML document into blocks. The title comes from
// <title>, falling back to the first <h1>.
func ParseHTML(html []byte, meta types.SourceMeta) (types.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return types.Document{}, fmt.Errorf("parsing html: %w", err)
	}

	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if meta.Title == "" {
		meta.Title = collapse(doc.Find("h1").First().Text())
	}

	b := newBuilder(meta)
	doc.Find("script, style, noscript, nav, footer").Remove()
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		switch tag {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.heading(int(tag[1]-'0'), collapse(s.Text()))
		case "p":
			if s.ParentsFiltered("li, blockquote").Length() > 0 {
				return
			}
			b.add(types.BlockParagraph, collapse(s.Text()))
		case "li":
			text := collapse(s.Clone().Find("ul, ol").Remove().End().Text())
			if goquery.NodeName(s.Parent()) == "ol" {
				b.add(types.BlockNumbered, text)
			} else {
				b.add(types.BlockBullet, text)
			}
		case "blockquote":
			b.add(types.BlockQuote, collapse(s.Text()))
		case "pre":
			b.add(types.BlockCode, strings.TrimSpace(s.Text()))
		}
	})

	if len(b.blocks) == 0 {
		return types.Document{}, ErrNoContent
	}
	return types.Document{Source: meta, Blocks: b.blocks}, nil
}

// collapse trims text and folds internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
