package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/aegisrun/internal/constants"
)

// ContentTypeFor infers the upload content type from a receipt file name.
// Only PNG is distinguished; every other extension is sent as JPEG.
func ContentTypeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// UploadReceipt posts one receipt image as multipart form field "file".
func (c *Client) UploadReceipt(ctx context.Context, path string) (*Response, error) {
	clean := filepath.Clean(path)
	// #nosec G304 -- path comes from listing the configured receipts directory
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	return c.do(ctx, http.MethodPost, constants.PathProcessReceipt, func(r *resty.Request) {
		r.SetMultipartField(constants.ReceiptFormField, filepath.Base(clean), ContentTypeFor(clean), bytes.NewReader(data))
	})
}

// TransactionQuery selects transactions in a calendar date range.
// An empty Category means no category filter.
type TransactionQuery struct {
	Start    time.Time
	End      time.Time
	Category string
}

// Params renders the query string parameters. category is omitted, not sent empty,
// when no filter is set.
func (q TransactionQuery) Params() map[string]string {
	p := map[string]string{
		"start_date": q.Start.Format(constants.DateLayout),
		"end_date":   q.End.Format(constants.DateLayout),
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		p["category"] = c
	}
	return p
}

func (q TransactionQuery) String() string {
	s := q.Start.Format(constants.DateLayout) + ".." + q.End.Format(constants.DateLayout)
	if c := strings.TrimSpace(q.Category); c != "" {
		s += " category=" + c
	}
	return s
}

// FetchTransactions lists transactions matching q.
func (c *Client) FetchTransactions(ctx context.Context, q TransactionQuery) (*Response, error) {
	return c.do(ctx, http.MethodGet, constants.PathTransactions, func(r *resty.Request) {
		r.SetQueryParams(q.Params())
	})
}

type agentRequest struct {
	Prompt string `json:"prompt"`
}

// InvokeAgent sends a natural-language prompt to the user's finance agent.
func (c *Client) InvokeAgent(ctx context.Context, prompt string) (*Response, error) {
	return c.do(ctx, http.MethodPost, constants.PathAgentInvoke, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(agentRequest{Prompt: prompt})
	})
}

// GetProfile fetches the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, constants.PathProfile, nil)
}
