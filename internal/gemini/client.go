package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrCredentialMissing means the user has no Gemini key stored.
var ErrCredentialMissing = errors.New("gemini: api key not configured")

// ErrEmptyTranscript means there is nothing to summarize.
var ErrEmptyTranscript = errors.New("gemini: conversation text is required")

// ErrUpstreamFormat means the model response did not carry a text part.
var ErrUpstreamFormat = errors.New("gemini: invalid response format")

// UpstreamError is a non-2xx response from the model API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini: upstream status %d: %s", e.Status, e.Body)
}

const summaryPrompt = `Please analyze this restaurant phone conversation and provide a concise summary including:
1. Customer intent (reservation, inquiry, complaint, etc.)
2. Key details (party size, date/time, special requests)
3. Outcome (successful booking, information provided, issue resolved, etc.)
4. Any follow-up actions needed

Conversation:
%s

Please provide a clear, professional summary in 2-3 sentences.`

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client calls the Gemini generateContent API. Keys are per-user and
// passed per call.
type Client struct {
	http  *resty.Client
	model string
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)
	return &Client{http: c, model: "gemini-pro"}
}

// Summarize generates a 2-3 sentence summary of a conversation transcript.
func (c *Client) Summarize(ctx context.Context, apiKey, conversationText string) (string, error) {
	if apiKey == "" {
		return "", ErrCredentialMissing
	}
	if strings.TrimSpace(conversationText) == "" {
		return "", ErrEmptyTranscript
	}

	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(summaryPrompt, conversationText)}}}},
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", apiKey).
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		return "", &UpstreamError{Status: resp.StatusCode(), Body: truncateBody(resp.Body())}
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrUpstreamFormat
	}
	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrUpstreamFormat
	}
	return text, nil
}

const maxErrorBody = 2048

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
