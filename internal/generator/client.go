package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/payflow/backend/internal/models"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-3-flash-preview"
	callTimeout    = 30 * time.Second

	draftSchemaFile = "invoice_draft.v1.json"
)

var (
	// ErrProviderUnavailable covers network failures, timeouts and provider
	// errors. Callers may retry; the ledger is never touched.
	ErrProviderUnavailable = errors.New("generation provider unavailable")
	// ErrBadDraft means the provider answered but the exchange is unusable:
	// a rejected request, malformed JSON, schema violation, or numbers that
	// do not reconcile. Retrying the identical call will not help.
	ErrBadDraft = errors.New("provider returned an unusable draft")
)

const draftSystemPrompt = "You are an expert financial assistant. Your task is to extract project details " +
	"from natural language and structure them into a formal invoice. Suggest 1-4 logical milestones based on " +
	"the description if the user doesn't specify them. Ensure the sum of milestone amounts equals the total " +
	"amount. Percentages must sum to 100. Respond with a single JSON object with fields: title, client_name, " +
	"description, total_amount, currency, category, and milestones (array of {title, description, amount, percentage})."

// Client talks to the Gemini generateContent API. It produces invoice drafts
// from free-text project descriptions and best-effort client messages for
// finalized invoices.
type Client struct {
	http        *resty.Client
	model       string
	draftSchema *jsonschema.Schema
	log         *slog.Logger
}

// NewClient builds a Client. baseURL may be empty (production default);
// schemaDir must contain invoice_draft.v1.json, which provider responses are
// validated against before normalization.
func NewClient(baseURL, apiKey, schemaDir string, log *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = slog.Default()
	}
	path := filepath.Join(schemaDir, draftSchemaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft schema %q: %w", path, err)
	}
	schema, err := jsonschema.CompileString("https://payflow.dev/schemas/invoice_draft", string(data))
	if err != nil {
		return nil, fmt.Errorf("compile draft schema: %w", err)
	}
	httpc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(callTimeout).
		SetQueryParam("key", apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: httpc, model: defaultModel, draftSchema: schema, log: log}, nil
}

// Request/response wire shapes for generateContent.

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents          []generateContent `json:"contents"`
	SystemInstruction *generateContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// GenerateDraft asks the provider to turn a free-text work description into
// a structured invoice draft, validates the response against the draft
// schema, and normalizes it into a candidate the ledger can accept.
func (c *Client) GenerateDraft(ctx context.Context, description, freelancerWallet string) (*models.Invoice, error) {
	prompt := fmt.Sprintf("Parse this freelancer work description into a structured invoice: %q", description)
	text, err := c.generate(ctx, prompt, draftSystemPrompt, "application/json")
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrBadDraft)
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrBadDraft, err)
	}
	if err := c.draftSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDraft, err)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDraft, err)
	}
	return NormalizeDraft(&draft, freelancerWallet)
}

// GenerateClientMessage drafts a friendly payment message for a finalized
// invoice. Best-effort: callers treat any error as "no message".
func (c *Client) GenerateClientMessage(ctx context.Context, inv *models.Invoice) (string, error) {
	prompt := fmt.Sprintf(
		"Write a friendly, professional message from a freelancer to a client named %s about an invoice for %s totaling %d.%02d %s. Mention that the payment is secured via PayFlow Escrow.",
		inv.ClientName, inv.Title, inv.TotalCents/100, inv.TotalCents%100, inv.Currency)
	return c.generate(ctx, prompt, "", "")
}

// generate performs one generateContent call and returns the first
// candidate's text.
func (c *Client) generate(ctx context.Context, prompt, system, mimeType string) (string, error) {
	body := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}
	if system != "" {
		body.SystemInstruction = &generateContent{Parts: []generatePart{{Text: system}}}
	}
	if mimeType != "" {
		body.GenerationConfig = &generationConfig{ResponseMimeType: mimeType}
	}

	var result generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/v1beta/models/" + c.model + ":generateContent")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if code := resp.StatusCode(); code != http.StatusOK {
		c.log.Warn("provider returned non-200", "status", code)
		if code >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: status %d", ErrProviderUnavailable, code)
		}
		// 4xx means the request itself was rejected; retrying the same call
		// will not help.
		return "", fmt.Errorf("%w: provider rejected the request, status %d", ErrBadDraft, code)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
