// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"

	"github.com/pdiddy/smart-discovery/internal/httputil"
	"github.com/pdiddy/smart-discovery/pkg/types"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const (
	defaultMaxEvidence = 120
	defaultMaxBullets  = 8
	draftMaxTokens     = 2000
	summaryMaxTokens   = 800
)

// slotPromptTmpl asks for one slot's key points, each citing evidence ids.
var slotPromptTmpl = template.Must(template.New("slot").Parse(`You are filling ONE specific section of a discovery report.

## Customer: {{.Customer}}
## Section: {{.Section}}
## Purpose: {{.Purpose}}

## Available Evidence ({{len .Lines}} items):
{{range .Lines}}{{.}}
{{end}}
## Your task:
- Write up to {{.MaxBullets}} key points for this section
- ONLY use facts that appear in the evidence above. Never invent anything.
- Each key_point MUST reference at least one evidence ID from the list
- If evidence is insufficient for something, add it to open_questions instead
- Keep each key point concise (one sentence, max 20 words)

Return ONLY valid JSON, no prose before or after:
{"key_points": [{"text": "Concise fact.", "evidence_ids": ["EVID-xxxxxxxx"]}], "open_questions": ["Question about missing information"]}
`))

// summaryPromptTmpl asks for a report title and executive summary.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(`You are writing the title and executive summary of a discovery report for {{.Customer}}.
Use ONLY the statements below. Do not add facts.

{{range .Sections}}## {{.Name}}
{{range .Bullets}}- {{.Text}}
{{end}}
{{end}}
Return ONLY valid JSON, no prose before or after:
{"title": "Short report title", "summary": "Two or three sentence summary."}
`))

// ClaudeDrafter drafts slots with one Claude Messages API call each. The
// HTTP client is supplied by the caller.
type ClaudeDrafter struct {
	APIKey string
	Model  string
	Client *http.Client

	// MaxRetries bounds retries on 429 and 529 responses (default 3).
	MaxRetries int

	// MaxEvidence caps the evidence lines sent per slot (default 120).
	MaxEvidence int
}

// NewClaudeDrafter builds a drafter from configuration.
func NewClaudeDrafter(cfg types.AIConfig, client *http.Client) *ClaudeDrafter {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ClaudeDrafter{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Client:      client,
		MaxRetries:  cfg.MaxRetries,
		MaxEvidence: cfg.MaxEvidence,
	}
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slotResponse is the JSON the slot prompt asks for.
type slotResponse struct {
	KeyPoints []struct {
		Text        string   `json:"text"`
		EvidenceIDs []string `json:"evidence_ids"`
	} `json:"key_points"`
	OpenQuestions []string `json:"open_questions"`
}

// summaryResponse is the JSON the summary prompt asks for.
type summaryResponse struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Draft implements Drafter. A slot with no evidence is returned empty
// without calling the API.
func (c *ClaudeDrafter) Draft(ctx context.Context, req SlotRequest) (SectionDraft, error) {
	if len(req.Evidence) == 0 {
		return SectionDraft{}, nil
	}

	prompt, err := c.renderSlotPrompt(req)
	if err != nil {
		return SectionDraft{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := c.complete(ctx, prompt, draftMaxTokens)
	if err != nil {
		return SectionDraft{}, err
	}

	var resp slotResponse
	if err := parseJSON(text, &resp); err != nil {
		return SectionDraft{}, fmt.Errorf("parsing draft for %s: %w", req.Slot.Name, err)
	}

	var d SectionDraft
	for _, kp := range resp.KeyPoints {
		kpText := strings.TrimSpace(kp.Text)
		if kpText == "" {
			continue
		}
		d.Bullets = append(d.Bullets, types.Bullet{Text: kpText, EvidenceIDs: kp.EvidenceIDs})
	}
	for _, q := range resp.OpenQuestions {
		if q = strings.TrimSpace(q); q != "" {
			d.OpenQuestions = append(d.OpenQuestions, q)
		}
	}
	return d, nil
}

// Summarize implements Summarizer.
func (c *ClaudeDrafter) Summarize(ctx context.Context, customer string, sections []types.Section) (string, string, error) {
	var buf bytes.Buffer
	if err := summaryPromptTmpl.Execute(&buf, struct {
		Customer string
		Sections []types.Section
	}{customer, sections}); err != nil {
		return "", "", fmt.Errorf("rendering summary prompt: %w", err)
	}

	text, err := c.complete(ctx, buf.String(), summaryMaxTokens)
	if err != nil {
		return "", "", err
	}
	var resp summaryResponse
	if err := parseJSON(text, &resp); err != nil {
		return "", "", fmt.Errorf("parsing summary: %w", err)
	}
	return resp.Title, resp.Summary, nil
}

func (c *ClaudeDrafter) renderSlotPrompt(req SlotRequest) (string, error) {
	maxEvidence := c.MaxEvidence
	if maxEvidence <= 0 {
		maxEvidence = defaultMaxEvidence
	}
	items := req.Evidence
	if len(items) > maxEvidence {
		items = items[:maxEvidence]
	}

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("[%s] %s", it.ID, it.Quote)
	}

	maxBullets := req.MaxBullets()
	if maxBullets <= 0 || maxBullets > defaultMaxBullets {
		maxBullets = defaultMaxBullets
	}
	purpose := req.Slot.Description
	if purpose == "" {
		purpose = fmt.Sprintf("Fill the '%s' section of the discovery report.", req.Slot.Name)
	}

	var buf bytes.Buffer
	err := slotPromptTmpl.Execute(&buf, struct {
		Customer   string
		Section    string
		Purpose    string
		Lines      []string
		MaxBullets int
	}{req.Customer, req.Slot.Name, purpose, lines, maxBullets})
	return buf.String(), err
}

// complete sends one user message and returns the first text block.
func (c *ClaudeDrafter) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("anthropic API key not set")
	}

	bodyBytes, err := jsoniter.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cResp claudeResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}
	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("no text content in Claude API response")
}

// parseJSON decodes the first JSON object in text, repairing it when the
// model returned something slightly malformed.
func parseJSON(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	switch {
	case start < 0:
		return errors.New("no JSON object in response")
	case end > start:
		text = text[start : end+1]
	default:
		text = text[start:]
	}

	err := jsoniter.UnmarshalFromString(text, v)
	if err == nil {
		return nil
	}
	repaired, rerr := jsonrepair.JSONRepair(text)
	if rerr != nil {
		return err
	}
	if rerr := jsoniter.UnmarshalFromString(repaired, v); rerr != nil {
		return err
	}
	return nil
}
