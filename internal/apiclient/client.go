// Package apiclient is a typed client for the compliance API, used by the
// operator CLI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"compliance-backend/internal/documents"
	"compliance-backend/internal/extraction"
	"compliance-backend/internal/importer"
	"compliance-backend/internal/shared/apperr"
)

const apiPrefix = "/api/v1"

// Client calls the API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New constructs a Client. httpClient may be nil.
func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}, nil
}

// StatusError is the raw failure behind a classified API error.
type StatusError struct {
	Status int
	Code   string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("api status %d", e.Status)
}

// RequestUploadGrants asks for one upload grant per file.
func (c *Client) RequestUploadGrants(ctx context.Context, driverID string, files []documents.FileSpec) ([]documents.UploadGrant, error) {
	var out []documents.UploadGrant
	path := "/documents/presigned-urls/" + url.PathEscape(driverID)
	err := c.do(ctx, http.MethodPost, path, map[string]any{"files": files}, &out)
	return out, err
}

// CreateDocument records an uploaded object as a document.
func (c *Client) CreateDocument(ctx context.Context, driverID string, in documents.RecordInput) (documents.DocumentResponse, error) {
	var out documents.DocumentResponse
	err := c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(driverID), in, &out)
	return out, err
}

// CreateDriver creates one driver. A plan limit comes back as a quota error.
func (c *Client) CreateDriver(ctx context.Context, d importer.NewDriver) error {
	return c.do(ctx, http.MethodPost, "/drivers", d, nil)
}

// ScanMany scans documents in one request.
func (c *Client) ScanMany(ctx context.Context, documentIDs []string) (extraction.BatchResult, error) {
	var out extraction.BatchResult
	err := c.do(ctx, http.MethodPost, "/documents/bulk-ai-scan", map[string]any{"documentIds": documentIDs}, &out)
	return out, err
}

// Credits returns the company's balance.
func (c *Client) Credits(ctx context.Context) (int, error) {
	var out struct {
		Balance int `json:"balance"`
	}
	err := c.do(ctx, http.MethodGet, "/credits", nil, &out)
	return out.Balance, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Wrap(apperr.KindTransport, "network_error", err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, "network_error", err, "read %s response", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.KindTransport, "bad_response", err, "decode %s response", path)
	}
	return nil
}

// errorEnvelope accepts both {"error": {...}} and {"error": "text"} bodies,
// with or without a top-level message.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func parseError(raw []byte) (code, message string) {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", strings.TrimSpace(string(raw))
	}
	message = env.Message
	if len(env.Error) > 0 {
		var text string
		if err := json.Unmarshal(env.Error, &text); err == nil {
			if message == "" {
				message = text
			}
		} else {
			var obj struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(env.Error, &obj); err == nil {
				code = obj.Code
				if obj.Message != "" {
					message = obj.Message
				}
			}
		}
	}
	return code, message
}

func classify(status int, raw []byte) error {
	code, message := parseError(raw)
	if message == "" {
		message = http.StatusText(status)
	}
	cause := &StatusError{Status: status, Code: code, Body: string(raw)}

	kind := apperr.KindPersistence
	lower := strings.ToLower(code + " " + message)
	switch {
	case status == http.StatusPaymentRequired, code == "insufficient_credits":
		kind, code = apperr.KindQuota, "insufficient_credits"
	case code == "limit_reached", status == http.StatusForbidden && strings.Contains(lower, "limit"):
		kind, code = apperr.KindQuota, "limit_reached"
	case status == http.StatusNotFound:
		kind = apperr.KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = apperr.KindValidation
	case status == http.StatusTooManyRequests, status >= 500:
		kind = apperr.KindTransport
	}
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apperr.Error{Kind: kind, Code: code, Message: message, Err: cause}
}
