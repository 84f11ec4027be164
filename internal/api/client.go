package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/aegisrun/internal/auth"
	"github.com/loykin/aegisrun/internal/common"
	"github.com/loykin/aegisrun/internal/httpc"
	"github.com/loykin/aegisrun/internal/util"
	"github.com/tidwall/gjson"
)

// ErrNoCredential is returned by New when no valid credential is supplied.
// The client refuses to exist without one, so no request can go out unauthenticated.
var ErrNoCredential = errors.New("api: a valid credential is required")

// Client talks to the Aegis backend on behalf of one authenticated test user.
type Client struct {
	baseURL string
	cred    *auth.Credential
	http    *resty.Client
	logger  *common.Logger
}

// New builds a client for baseURL that presents cred on every request.
func New(baseURL string, cred *auth.Credential, h *httpc.Httpc) (*Client, error) {
	if !cred.Valid() {
		return nil, ErrNoCredential
	}
	base, ok := util.TrimEmptyCheck(baseURL)
	if !ok {
		return nil, errors.New("api: base URL is required")
	}
	return &Client{
		baseURL: base,
		cred:    cred,
		http:    h.New(),
		logger:  common.GetLogger().WithComponent("api"),
	}, nil
}

// Response is a 2xx answer from the backend. Body is kept verbatim.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Payload returns the body as text for logging.
func (r *Response) Payload() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// JSON returns the body parsed with gjson.
func (r *Response) JSON() gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

// ResponseError is a non-2xx answer from the backend.
type ResponseError struct {
	Method string
	Path   string
	Status int
	Detail string
	Body   []byte
	Header http.Header
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.Status, e.Detail)
}

// ErrorDetail extracts the server-provided explanation from an error body.
// FastAPI puts it under "detail" (string or validation list); other services use
// "error", "error.message" or "message". Falls back to the trimmed raw body.
func ErrorDetail(body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, path := range []string{"detail", "error.message", "error", "message"} {
			v := parsed.Get(path)
			if !v.Exists() {
				continue
			}
			if v.Type == gjson.String {
				return v.String()
			}
			return v.Raw
		}
	}
	return strings.TrimSpace(string(body))
}

// Detail returns the most useful description of err for an operator: the server
// detail for a ResponseError, the error text otherwise.
func Detail(err error) string {
	var re *ResponseError
	if errors.As(err, &re) && re.Detail != "" {
		return re.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) (*Response, error) {
	url := util.JoinURL(c.baseURL, path)
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", c.cred.Bearer())
	if build != nil {
		build(req)
	}

	c.logger.Debug("sending request", "method", method, "url", url)
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	body := resp.Body()
	c.logger.Debug("received response", "method", method, "url", url, "status_code", status, "response_size", len(body))
	if status < 200 || status >= 300 {
		return nil, &ResponseError{
			Method: method,
			Path:   path,
			Status: status,
			Detail: ErrorDetail(body),
			Body:   body,
			Header: resp.Header(),
		}
	}
	return &Response{Status: status, Body: body, Header: resp.Header()}, nil
}
