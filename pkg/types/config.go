// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Default slide budget values, used when a customer config omits them.
const (
	DefaultMinSlides       = 8
	DefaultMaxSlides       = 30
	DefaultPerSectionMax   = 4
	DefaultBulletsPerSlide = 6
)

// DefaultMustInclude is the required-section list applied when a customer
// config names none.
var DefaultMustInclude = []string{"Executive Summary", "Key Findings", "Recommendations"}

// SlideBudget bounds the size of the rendered deck.
type SlideBudget struct {
	// Min is the minimum total slide count. Falling short only warns.
	Min int `json:"min" yaml:"min" mapstructure:"min"`

	// Max is the maximum total slide count, including title and agenda.
	Max int `json:"max" yaml:"max" mapstructure:"max"`

	// PerSectionMax caps the content slides of any one section.
	PerSectionMax int `json:"per_section_max" yaml:"per_section_max" mapstructure:"per_section_max"`

	// BulletsPerSlide is how many bullets fit on one content slide.
	BulletsPerSlide int `json:"bullets_per_slide" yaml:"bullets_per_slide" mapstructure:"bullets_per_slide"`
}

// DefaultSlideBudget returns the budget used when none is configured.
func DefaultSlideBudget() SlideBudget {
	return SlideBudget{
		Min:             DefaultMinSlides,
		Max:             DefaultMaxSlides,
		PerSectionMax:   DefaultPerSectionMax,
		BulletsPerSlide: DefaultBulletsPerSlide,
	}
}

// TermPair is one terminology substitution (input term -> output term).
type TermPair struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// SlotDefinition carries per-section hints from a customer config.
type SlotDefinition struct {
	// Description states what the section should cover.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Keywords are matched against evidence to route it to this section.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// SlideTarget is the intended number of content slides (default PerSectionMax).
	SlideTarget int `json:"slide_target,omitempty" yaml:"slide_target,omitempty"`
}

// CustomerConfig controls what a report must contain and how it is worded.
type CustomerConfig struct {
	// Name is the customer name used in titles and file names.
	Name string `json:"name" yaml:"name"`

	// MustInclude is the ordered list of required section names.
	MustInclude []string `json:"must_include" yaml:"must_include"`

	// Slots holds optional per-section descriptions and keywords, keyed by
	// section name.
	Slots map[string]SlotDefinition `json:"slots,omitempty" yaml:"slots,omitempty"`

	// Terminology is applied in order to section names and bullet text.
	Terminology []TermPair `json:"terminology,omitempty" yaml:"terminology,omitempty"`

	// SlideBudget bounds the rendered deck.
	SlideBudget SlideBudget `json:"slide_budget" yaml:"slide_budget"`

	// InputPages lists source document references for this customer.
	InputPages []string `json:"input_pages,omitempty" yaml:"input_pages,omitempty"`
}

// IsRequired reports whether section name is in MustInclude.
func (c CustomerConfig) IsRequired(name string) bool {
	for _, n := range c.MustInclude {
		if n == name {
			return true
		}
	}
	return false
}

// TemplateSlot is one named division of the output report.
type TemplateSlot struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	SlideTarget int      `json:"slide_target" yaml:"slide_target"`
	Required    bool     `json:"required" yaml:"required"`
}

// ReportTemplate is the ordered list of slots a report is filled into.
type ReportTemplate struct {
	Customer string         `json:"customer" yaml:"customer"`
	Slots    []TemplateSlot `json:"slots" yaml:"slots"`
}

// HTTPConfig holds shared HTTP settings for readers and model clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// NotionConfig holds settings for the Notion source reader.
type NotionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Token is the Notion integration token.
	Token string `json:"-" yaml:"token,omitempty" mapstructure:"token"`

	// MaxDepth bounds child-page recursion (default 3).
	MaxDepth int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`

	// SafeMode restricts reads to AllowedPages and AllowedWorkspaces. On by
	// default; turning it off allows any page the token can reach.
	SafeMode bool `json:"safe_mode" yaml:"safe_mode" mapstructure:"safe_mode"`

	// AllowedPages are page ids readable in safe mode.
	AllowedPages []string `json:"allowed_pages" yaml:"allowed_pages" mapstructure:"allowed_pages"`

	// AllowedWorkspaces are workspace slugs readable in safe mode.
	AllowedWorkspaces []string `json:"allowed_workspaces" yaml:"allowed_workspaces" mapstructure:"allowed_workspaces"`

	// BlockedPatterns are URL substrings that are always denied.
	BlockedPatterns []string `json:"blocked_patterns" yaml:"blocked_patterns" mapstructure:"blocked_patterns"`
}

// AIConfig holds settings for the optional LLM section drafter.
type AIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Model is the model identifier. Empty disables the LLM drafter.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the model API.
	APIKey string `json:"-" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts on rate limiting (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxEvidence caps the evidence lines sent per slot (default 120).
	MaxEvidence int `json:"max_evidence" yaml:"max_evidence" mapstructure:"max_evidence"`
}

// OutputFormat names a renderer.
type OutputFormat string

const (
	OutputMarkdown OutputFormat = "markdown"
	OutputSlides   OutputFormat = "slides"
	OutputXLSX     OutputFormat = "xlsx"
)

// OutputConfig holds renderer settings.
type OutputConfig struct {
	// Dir is the directory rendered files are written to.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Formats selects renderers (default markdown and slides).
	Formats []OutputFormat `json:"formats" yaml:"formats" mapstructure:"formats"`
}

// LedgerConfig holds settings for the SQLite evidence ledger.
type LedgerConfig struct {
	// Dir holds ledger.db. Empty disables the ledger.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// PublishConfig holds settings for uploading rendered files to object storage.
type PublishConfig struct {
	// Endpoint is the S3-compatible endpoint. Empty disables publishing.
	Endpoint  string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"-" yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey string `json:"-" yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File, when set, receives JSON logs with size-based rotation.
	File string `json:"file" yaml:"file" mapstructure:"file"`

	// MaxSizeMB is the rotation threshold (default 10).
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`

	// MaxBackups is the number of rotated files kept (default 3).
	MaxBackups int `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// AllowedOrigins enables CORS for browser clients. Empty disables CORS.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// RequestTimeout bounds one discovery request (default 5m).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// ConvertConfig holds settings for converting PDF and Office files to
// Markdown in a container.
type ConvertConfig struct {
	// Runtime is docker, podman or auto (default auto).
	Runtime string `json:"runtime" yaml:"runtime" mapstructure:"runtime"`

	// Image is the converter image (default markitdown:latest).
	Image string `json:"image" yaml:"image" mapstructure:"image"`
}

// PipelineConfig groups all settings read from smart-discovery.yaml.
type PipelineConfig struct {
	Notion  NotionConfig  `json:"notion" yaml:"notion" mapstructure:"notion"`
	AI      AIConfig      `json:"ai" yaml:"ai" mapstructure:"ai"`
	Convert ConvertConfig `json:"convert" yaml:"convert" mapstructure:"convert"`
	Output  OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Publish PublishConfig `json:"publish" yaml:"publish" mapstructure:"publish"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
}
