// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/smart-discovery/pkg/types"
)

// notionAPIURL is the Notion REST API base. Package-level var for test substitution.
var notionAPIURL = "https://api.notion.com/v1"

const (
	notionVersion   = "2022-06-28"
	notionPageSize  = 100
	defaultMaxDepth = 3
)

var (
	hexIDRe      = regexp.MustCompile(`^[a-f0-9]{32}$`)
	trailingIDRe = regexp.MustCompile(`([a-f0-9]{32})$`)
	workspaceRe  = regexp.MustCompile(`notion\.so/([^/]+)/`)
)

// ExtractPageID returns the 32-character hex page id (no dashes) from a
// Notion URL or id. Unrecognised input is returned unchanged.
func ExtractPageID(ref string) string {
	if strings.Contains(ref, "notion.so") || strings.Contains(ref, "notion.site") {
		clean := strings.SplitN(ref, "?", 2)[0]
		clean = strings.SplitN(clean, "#", 2)[0]
		parts := strings.Split(strings.TrimRight(clean, "/"), "/")
		last := strings.ReplaceAll(parts[len(parts)-1], "-", "")
		if m := trailingIDRe.FindStringSubmatch(last); m != nil {
			return m[1]
		}
	}
	clean := strings.ReplaceAll(ref, "-", "")
	if hexIDRe.MatchString(clean) {
		return clean
	}
	return ref
}

// IsNotionRef reports whether ref is a Notion URL or a bare page id.
func IsNotionRef(ref string) bool {
	if strings.Contains(ref, "notion.so") || strings.Contains(ref, "notion.site") {
		return true
	}
	return hexIDRe.MatchString(strings.ReplaceAll(ref, "-", ""))
}

// AccessError reports a page read refused by the access policy.
type AccessError struct {
	Ref    string
	Reason string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("notion access denied for %s: %s", e.Ref, e.Reason)
}

// AccessPolicy decides which pages may be read. Blocked patterns are always
// enforced; the allowlists only apply in safe mode.
type AccessPolicy struct {
	SafeMode          bool
	AllowedPages      []string
	AllowedWorkspaces []string
	BlockedPatterns   []string
}

// Check returns an *AccessError when ref may not be read.
func (p AccessPolicy) Check(ref string) error {
	lower := strings.ToLower(ref)
	for _, pattern := range p.BlockedPatterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" && strings.Contains(lower, pattern) {
			return &AccessError{Ref: ref, Reason: fmt.Sprintf("matches blocked pattern %q", pattern)}
		}
	}
	if !p.SafeMode {
		return nil
	}

	id := ExtractPageID(ref)
	for _, allowed := range p.AllowedPages {
		if strings.ReplaceAll(allowed, "-", "") == id {
			return nil
		}
	}
	if m := workspaceRe.FindStringSubmatch(ref); m != nil {
		for _, ws := range p.AllowedWorkspaces {
			if ws == m[1] {
				return nil
			}
		}
	}
	return &AccessError{Ref: ref, Reason: "page not in allowlist (add it to notion.allowed_pages or set notion.safe_mode: false)"}
}

// NotionReader reads pages through the Notion REST API and converts their
// blocks, recursing into child pages and nested blocks up to MaxDepth.
type NotionReader struct {
	Token    string
	MaxDepth int
	Policy   AccessPolicy
	Client   *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// BaseURL overrides the Notion API base URL.
	BaseURL string
}

// NewNotionReader builds a reader from configuration.
func NewNotionReader(cfg types.NotionConfig) *NotionReader {
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &NotionReader{
		Token:    cfg.Token,
		MaxDepth: cfg.MaxDepth,
		Policy: AccessPolicy{
			SafeMode:          cfg.SafeMode,
			AllowedPages:      cfg.AllowedPages,
			AllowedWorkspaces: cfg.AllowedWorkspaces,
			BlockedPatterns:   cfg.BlockedPatterns,
		},
		Client:    client,
		UserAgent: cfg.UserAgent,
	}
}

// notionPage is the subset of the page object the reader needs.
type notionPage struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url"`
	Properties map[string]notionProperty `json:"properties"`
}

type notionProperty struct {
	Type  string           `json:"type"`
	Title []notionRichText `json:"title"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

// notionBlock is a block object. The type-specific payload lives under a
// key named after the block type, so it is decoded in UnmarshalJSON.
type notionBlock struct {
	ID          string
	Type        string
	HasChildren bool
	Data        notionBlockData
}

type notionBlockData struct {
	RichText   []notionRichText `json:"rich_text"`
	Checked    bool             `json:"checked"`
	Title      string           `json:"title"`
	Language   string           `json:"language"`
	PageID     string           `json:"page_id"`
	DatabaseID string           `json:"database_id"`
}

func (b *notionBlock) UnmarshalJSON(data []byte) error {
	var head struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.ID, b.Type, b.HasChildren = head.ID, head.Type, head.HasChildren

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if payload, ok := raw[head.Type]; ok {
		if err := json.Unmarshal(payload, &b.Data); err != nil {
			return fmt.Errorf("decoding %s block %s: %w", head.Type, head.ID, err)
		}
	}
	return nil
}

func (d notionBlockData) text() string {
	var sb strings.Builder
	for _, rt := range d.RichText {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}

type notionChildren struct {
	Results    []notionBlock `json:"results"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor"`
}

// Read implements Reader.
func (r *NotionReader) Read(ctx context.Context, ref string) (types.Document, error) {
	if err := r.Policy.Check(ref); err != nil {
		return types.Document{}, err
	}
	if r.Token == "" {
		return types.Document{}, fmt.Errorf("notion token not set")
	}

	pageID := ExtractPageID(ref)
	page, err := r.page(ctx, pageID)
	if err != nil {
		return types.Document{}, err
	}

	meta := types.SourceMeta{ID: pageID, Title: pageTitle(page), URL: ref}
	b := newBuilder(meta)
	if meta.Title != "" {
		b.heading(1, meta.Title)
	}
	if err := r.walk(ctx, b, pageID, 0); err != nil {
		return types.Document{}, err
	}
	if len(b.blocks) == 0 {
		return types.Document{}, ErrNoContent
	}
	return types.Document{Source: meta, Blocks: b.blocks}, nil
}

func (r *NotionReader) maxDepth() int {
	if r.MaxDepth <= 0 {
		return defaultMaxDepth
	}
	return r.MaxDepth
}

// walk appends the children of blockID to b. Headings inside nested pages
// are shifted down by depth so the hierarchy stays intact.
func (r *NotionReader) walk(ctx context.Context, b *builder, blockID string, depth int) error {
	blocks, err := r.children(ctx, blockID)
	if err != nil {
		return err
	}

	for _, blk := range blocks {
		text := blk.Data.text()
		switch blk.Type {
		case "heading_1":
			b.heading(1+depth, text)
		case "heading_2":
			b.heading(2+depth, text)
		case "heading_3":
			b.heading(3+depth, text)
		case "paragraph":
			b.add(types.BlockParagraph, text)
		case "bulleted_list_item":
			b.add(types.BlockBullet, text)
		case "numbered_list_item":
			b.add(types.BlockNumbered, text)
		case "to_do":
			b.add(types.BlockTodo, text)
		case "quote", "callout":
			b.add(types.BlockQuote, text)
		case "code":
			b.add(types.BlockCode, text)
		case "toggle":
			b.heading(3+depth, text)
		case "child_page":
			b.heading(2+depth, blk.Data.Title)
			if depth < r.maxDepth() {
				if err := r.walk(ctx, b, compactID(blk.ID), depth+1); err != nil {
					return err
				}
			}
			continue
		case "link_to_page":
			linked := blk.Data.PageID
			if linked == "" {
				linked = blk.Data.DatabaseID
			}
			if depth < r.maxDepth() && linked != "" {
				if err := r.walk(ctx, b, compactID(linked), depth+1); err != nil {
					return err
				}
			}
			continue
		}

		if blk.HasChildren && depth < r.maxDepth() {
			if err := r.walk(ctx, b, compactID(blk.ID), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *NotionReader) page(ctx context.Context, pageID string) (notionPage, error) {
	var page notionPage
	err := r.get(ctx, "/pages/"+pageID, nil, &page)
	return page, err
}

func (r *NotionReader) children(ctx context.Context, blockID string) ([]notionBlock, error) {
	var (
		all    []notionBlock
		cursor string
	)
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprintf("%d", notionPageSize))
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		var resp notionChildren
		if err := r.get(ctx, "/blocks/"+blockID+"/children", q, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

func (r *NotionReader) get(ctx context.Context, path string, q url.Values, out any) error {
	base := r.BaseURL
	if base == "" {
		base = notionAPIURL
	}
	u := base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	req.Header.Set("Notion-Version", notionVersion)
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling notion %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding notion %s: %w", path, err)
	}
	return nil
}

// pageTitle returns the plain text of the page's title property.
func pageTitle(p notionPage) string {
	if prop, ok := p.Properties["title"]; ok && len(prop.Title) > 0 {
		return prop.Title[0].PlainText
	}
	for _, prop := range p.Properties {
		if prop.Type == "title" && len(prop.Title) > 0 {
			return prop.Title[0].PlainText
		}
	}
	return ""
}

func compactID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
