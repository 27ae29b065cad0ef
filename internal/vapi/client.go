package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the voice-platform REST API. The private key is per-user
// and passed per call; one Client is shared across users.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

// CallQuery filters a call listing. AssistantID is explicit; there is no
// ambient "currently selected assistant".
type CallQuery struct {
	Limit       int
	AssistantID string
	CreatedAtGT time.Time
	CreatedAtLT time.Time

	// Cursor is the opaque continuation token from the previous page.
	Cursor string
}

func (q CallQuery) params() map[string]string {
	p := map[string]string{}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	if q.AssistantID != "" {
		p["assistantId"] = q.AssistantID
	}
	if !q.CreatedAtGT.IsZero() {
		p["createdAtGt"] = q.CreatedAtGT.UTC().Format(time.RFC3339)
	}
	if !q.CreatedAtLT.IsZero() {
		p["createdAtLt"] = q.CreatedAtLT.UTC().Format(time.RFC3339)
	}
	if q.Cursor != "" {
		p["cursor"] = q.Cursor
	}
	return p
}

// ListCalls fetches one page of calls. The returned cursor is empty on the
// last page.
func (c *Client) ListCalls(ctx context.Context, apiKey string, q CallQuery) ([]Call, string, error) {
	return listPage[Call](ctx, c, apiKey, "/call", q.params())
}

// ListAllCalls follows the continuation cursor until the platform stops
// returning one, accumulating every page. The loop is sequential by
// necessity: each cursor only exists once the previous response arrives.
func (c *Client) ListAllCalls(ctx context.Context, apiKey string, q CallQuery) ([]Call, error) {
	var all []Call
	for {
		page, next, err := c.ListCalls(ctx, apiKey, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		q.Cursor = next
	}
}

// GetCall fetches a single call by id.
func (c *Client) GetCall(ctx context.Context, apiKey, callID string) (Call, error) {
	if apiKey == "" {
		return Call{}, ErrCredentialMissing
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		Get("/call/" + callID)
	if err != nil {
		return Call{}, fmt.Errorf("vapi request: %w", err)
	}
	if resp.IsError() {
		return Call{}, &UpstreamError{Status: resp.StatusCode(), Body: truncateBody(resp.Body())}
	}
	var out Call
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Call{}, fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	return out, nil
}

// AssistantQuery filters an assistant listing.
type AssistantQuery struct {
	Limit       int
	CreatedAtGT time.Time
	CreatedAtLT time.Time
	Cursor      string
}

func (q AssistantQuery) params() map[string]string {
	p := map[string]string{}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	if !q.CreatedAtGT.IsZero() {
		p["createdAtGt"] = q.CreatedAtGT.UTC().Format(time.RFC3339)
	}
	if !q.CreatedAtLT.IsZero() {
		p["createdAtLt"] = q.CreatedAtLT.UTC().Format(time.RFC3339)
	}
	if q.Cursor != "" {
		p["cursor"] = q.Cursor
	}
	return p
}

// ListAssistants fetches one page of assistants.
func (c *Client) ListAssistants(ctx context.Context, apiKey string, q AssistantQuery) ([]Assistant, string, error) {
	return listPage[Assistant](ctx, c, apiKey, "/assistant", q.params())
}

// ChatQuery filters a chat listing.
type ChatQuery struct {
	Limit       int
	AssistantID string
	CreatedAtGT time.Time
	CreatedAtLT time.Time
	Cursor      string
}

func (q ChatQuery) params() map[string]string {
	p := map[string]string{}
	if q.Limit > 0 {
		p["limit"] = strconv.Itoa(q.Limit)
	}
	if q.AssistantID != "" {
		p["assistantId"] = q.AssistantID
	}
	if !q.CreatedAtGT.IsZero() {
		p["createdAtGt"] = q.CreatedAtGT.UTC().Format(time.RFC3339)
	}
	if !q.CreatedAtLT.IsZero() {
		p["createdAtLt"] = q.CreatedAtLT.UTC().Format(time.RFC3339)
	}
	if q.Cursor != "" {
		p["cursor"] = q.Cursor
	}
	return p
}

// ListChats fetches one page of chats.
func (c *Client) ListChats(ctx context.Context, apiKey string, q ChatQuery) ([]Chat, string, error) {
	return listPage[Chat](ctx, c, apiKey, "/chat", q.params())
}

// GetChat fetches a single chat by id.
func (c *Client) GetChat(ctx context.Context, apiKey, chatID string) (Chat, error) {
	if apiKey == "" {
		return Chat{}, ErrCredentialMissing
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		Get("/chat/" + chatID)
	if err != nil {
		return Chat{}, fmt.Errorf("vapi request: %w", err)
	}
	if resp.IsError() {
		return Chat{}, &UpstreamError{Status: resp.StatusCode(), Body: truncateBody(resp.Body())}
	}
	var out Chat
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Chat{}, fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	return out, nil
}

// listPage performs one GET against a list endpoint and decodes either
// response shape the platform uses: a bare JSON array (no continuation) or
// an envelope {"results": [...], "nextCursor": "..."}.
func listPage[T any](ctx context.Context, c *Client, apiKey, path string, params map[string]string) ([]T, string, error) {
	if apiKey == "" {
		return nil, "", ErrCredentialMissing
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, "", fmt.Errorf("vapi request: %w", err)
	}
	if resp.IsError() {
		return nil, "", &UpstreamError{Status: resp.StatusCode(), Body: truncateBody(resp.Body())}
	}

	body := bytes.TrimSpace(resp.Body())
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
		}
		return items, "", nil
	}

	var envelope struct {
		Results    []T    `json:"results"`
		NextCursor string `json:"nextCursor"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	return envelope.Results, envelope.NextCursor, nil
}
