package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tazhibayda/expense-service/internal/domain"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

var (
	errUpstreamStatus = errors.New("model api status")
	errEmptyResponse  = errors.New("model returned no candidates")
	errBadOutput      = errors.New("model output does not match schema")
)

// Gemini calls the generateContent endpoint with a strict JSON output schema
// so the model emits the record directly. Every call is a fresh request: no
// retries, no caching.
type Gemini struct {
	HTTPClient *http.Client
	BaseURL    string
	Now        func() time.Time // anchor for relative-date phrases

	apiKey          string
	model           string
	defaultCurrency string
}

func NewGemini(apiKey, model, defaultCurrency string) *Gemini {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Gemini{
		HTTPClient:      &http.Client{Timeout: 30 * time.Second},
		BaseURL:         defaultBaseURL,
		Now:             time.Now,
		apiKey:          apiKey,
		model:           model,
		defaultCurrency: defaultCurrency,
	}
}

func (g *Gemini) prompt(today, text string, categories []string) string {
	return fmt.Sprintf(`Today's date is %s.
Extract the expense details: item, amount, date (YYYY-MM-DD), note, category, and currency.
If the user says 'yesterday' or another relative date, calculate based on %s. If no date is mentioned, use %s.
For category, choose the one that best fits from this list: %s.
For currency, follow these rules:
1. If the user explicitly mentions a currency (e.g., USD, TWD, dollars, bucks), extract that currency as a currency code.
2. If NO currency is mentioned, use "%s" as the default currency.

User input: "%s"`,
		today, today, today, strings.Join(categories, ", "), g.defaultCurrency, text)
}

// request/response bodies of the generateContent REST API, limited to the
// fields this client touches.

type genRequest struct {
	Contents         []genContent `json:"contents"`
	GenerationConfig genConfig    `json:"generationConfig"`
}
type genContent struct {
	Parts []genPart `json:"parts"`
}
type genPart struct {
	Text string `json:"text"`
}
type genConfig struct {
	ResponseMIMEType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

type genResponse struct {
	Candidates []struct {
		Content struct {
			Parts []genPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

var recordSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"item":     {"type": "STRING"},
		"amount":   {"type": "NUMBER"},
		"category": {"type": "STRING"},
		"currency": {"type": "STRING"},
		"date":     {"type": "STRING"},
		"note":     {"type": "STRING"}
	},
	"required": ["item", "amount", "category", "currency", "date"]
}`)

// modelRecord is the raw decoded output; amount stays a pointer so a missing
// field is distinguishable from zero.
type modelRecord struct {
	Item     string   `json:"item"`
	Amount   *float64 `json:"amount"`
	Category string   `json:"category"`
	Currency string   `json:"currency"`
	Date     string   `json:"date"`
	Note     string   `json:"note"`
}

func (g *Gemini) Parse(ctx context.Context, text string, categories []string) (*domain.Expense, error) {
	today := g.Now().Format("2006-01-02")

	body, err := json.Marshal(genRequest{
		Contents: []genContent{{Parts: []genPart{{Text: g.prompt(today, text, categories)}}}},
		GenerationConfig: genConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   recordSchema,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model api call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("model api read: %w", err)
	}

	var out genResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadOutput, err)
	}
	if resp.StatusCode != http.StatusOK {
		// carry the upstream error text verbatim to the caller
		if out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("%w %d: %s", errUpstreamStatus, resp.StatusCode, out.Error.Message)
		}
		return nil, fmt.Errorf("%w %d: %s", errUpstreamStatus, resp.StatusCode, string(raw))
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, errEmptyResponse
	}

	return g.decodeRecord(out.Candidates[0].Content.Parts[0].Text)
}

func (g *Gemini) decodeRecord(payload string) (*domain.Expense, error) {
	var rec modelRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadOutput, err)
	}
	if rec.Amount == nil {
		return nil, fmt.Errorf("%w: missing amount", errBadOutput)
	}
	if *rec.Amount < 0 {
		return nil, fmt.Errorf("%w: negative amount", errBadOutput)
	}
	if rec.Item == "" || rec.Date == "" {
		return nil, fmt.Errorf("%w: missing item or date", errBadOutput)
	}
	if _, err := time.Parse("2006-01-02", rec.Date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", errBadOutput, rec.Date)
	}
	// the prompt asks for a currency, but the model may still under-fill
	if rec.Currency == "" {
		rec.Currency = g.defaultCurrency
	}
	return &domain.Expense{
		Item:     rec.Item,
		Amount:   *rec.Amount,
		Category: rec.Category,
		Currency: rec.Currency,
		Date:     rec.Date,
		Note:     rec.Note,
	}, nil
}
