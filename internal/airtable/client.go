package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured means the sync was attempted without an Airtable token
// or base/table identifiers.
var ErrNotConfigured = errors.New("airtable: token or base not configured")

// UpstreamError is a non-2xx response from Airtable, carrying enough of the
// body to debug without logging whole payloads.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("airtable: upstream status %d: %s", e.Status, e.Body)
}

// Fields is the subset of the contact table this service reads. Any other
// columns in the base are ignored.
type Fields struct {
	CustomerName  string `json:"Customer Name,omitempty"`
	PhoneNumber   string `json:"Phone Number,omitempty"`
	CustomerEmail string `json:"Customer Email,omitempty"`
}

// Record is one row of the contact table.
type Record struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Client reads the contact feed from an Airtable base.
type Client struct {
	http    *resty.Client
	token   string
	baseID  string
	tableID string
}

func NewClient(baseURL, token, baseID, tableID string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	return &Client{http: c, token: token, baseID: baseID, tableID: tableID}
}

// Configured reports whether the client has everything it needs to list
// records.
func (c *Client) Configured() bool {
	return c.token != "" && c.baseID != "" && c.tableID != ""
}

// ListAll fetches every record in the table, following the offset token
// until Airtable stops returning one.
func (c *Client) ListAll(ctx context.Context) ([]Record, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var all []Record
	offset := ""
	for {
		req := c.http.R().
			SetContext(ctx).
			SetAuthToken(c.token)
		if offset != "" {
			req.SetQueryParam("offset", offset)
		}
		resp, err := req.Get(fmt.Sprintf("/%s/%s", c.baseID, c.tableID))
		if err != nil {
			return nil, fmt.Errorf("airtable request: %w", err)
		}
		if resp.IsError() {
			return nil, &UpstreamError{Status: resp.StatusCode(), Body: truncateBody(resp.Body())}
		}

		var page listResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("airtable: decode response: %w", err)
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

const maxErrorBody = 2048

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
