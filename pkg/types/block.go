// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BlockType classifies a source block.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockBullet    BlockType = "bullet"
	BlockNumbered  BlockType = "numbered"
	BlockParagraph BlockType = "paragraph"
	BlockQuote     BlockType = "quote"
	BlockCode      BlockType = "code"
	BlockTodo      BlockType = "todo"
)

// Block is one unit of source text in document order.
type Block struct {
	// Type is the block kind as reported by the reader.
	Type BlockType `json:"type" yaml:"type"`

	// Text is the block text with list markers and heading hashes removed.
	Text string `json:"text" yaml:"text"`

	// Level is the heading level (1-6). Zero for non-heading blocks.
	Level int `json:"level,omitempty" yaml:"level,omitempty"`

	// Section is the label of the most recent heading at or before this block.
	// For heading blocks it is the heading text itself.
	Section string `json:"section" yaml:"section"`

	// Path is the heading hierarchy in effect for this block (H1 > H2 > H3).
	Path []string `json:"path,omitempty" yaml:"path,omitempty"`

	// Source identifies the document the block came from.
	Source SourceMeta `json:"source" yaml:"source"`
}

// SourceMeta identifies a source document.
type SourceMeta struct {
	// ID is the provider's document identifier (e.g. a Notion page id).
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Title is the document title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// URL is where the document was read from, or the file path.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Document is the output of a source reader.
type Document struct {
	Source SourceMeta `json:"source" yaml:"source"`
	Blocks []Block    `json:"blocks" yaml:"blocks"`
}
