// Package api provides the HTTP request primitive used by the widget
// layer: endpoint plus parameters in, opaque JSON document out.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Server error codes this layer depends on. The legacy backend conflated
// wrong_query and incorrect_appkey; they stay distinct here.
const (
	CodeWrongQuery      = "wrong_query"
	CodeIncorrectAppKey = "incorrect_appkey"
	CodeSessionNotFound = "session_not_found"
)

// maxResponseBytes caps response bodies; identity and config documents are
// small.
const maxResponseBytes = 8 << 20

// Params holds request parameters.
type Params map[string]string

// Requester issues a request against an endpoint and returns the response
// document. Implementations must treat the document as opaque.
type Requester interface {
	Do(ctx context.Context, endpoint string, params Params) (gjson.Result, error)
}

// Client is the production Requester, posting form-encoded parameters and
// decoding JSON responses.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Config configures the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Do posts params to endpoint and returns the parsed response document.
// Transport failures and non-2xx statuses are errors; error codes carried
// inside the document are left to the caller, who knows which codes are
// sentinels rather than failures.
func (c *Client) Do(ctx context.Context, endpoint string, params Params) (gjson.Result, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode >= 400 {
		return gjson.Result{}, fmt.Errorf("request %s failed with status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("request %s returned invalid JSON", endpoint)
	}
	return gjson.ParseBytes(body), nil
}

// ErrorCode extracts the server error code from a response document.
// Empty means no error was reported.
func ErrorCode(doc gjson.Result) string {
	return doc.Get("errorCode").String()
}
