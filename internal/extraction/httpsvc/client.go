// Package httpsvc talks to an external document extraction service over
// JSON/HTTP.
package httpsvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"compliance-backend/internal/extraction"
	"compliance-backend/internal/shared/storage/object"
)

// Client implements extraction.Extractor against a remote service.
type Client struct {
	baseURL    string
	apiKey     string
	store      object.Store
	httpClient *http.Client
}

// New constructs a Client. baseURL is the service root, e.g.
// https://extract.internal.
func New(baseURL, apiKey string, store object.Store) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("EXTRACTION_URL is required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		store:      store,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type documentPayload struct {
	DocumentID  string   `json:"documentId"`
	FileName    string   `json:"fileName"`
	ContentType string   `json:"contentType"`
	Content     string   `json:"content"`
	Text        string   `json:"text,omitempty"`
	TypeHints   []string `json:"typeHints,omitempty"`
}

type extractRequest struct {
	Documents []documentPayload `json:"documents"`
}

type extractResponse struct {
	Results []extraction.ScanResult `json:"results"`
}

// Extract sends every readable document in a single request. Documents that
// cannot be loaded fail locally and are left out of the request.
func (c *Client) Extract(ctx context.Context, sources []extraction.Source) ([]extraction.ScanResult, error) {
	results := make([]extraction.ScanResult, len(sources))
	payload := extractRequest{Documents: make([]documentPayload, 0, len(sources))}
	index := make(map[string]int, len(sources))
	for i, src := range sources {
		content, err := extraction.LoadContent(ctx, c.store, src)
		if err != nil {
			results[i] = extraction.ScanResult{DocumentID: src.DocumentID, Error: err.Error()}
			continue
		}
		index[src.DocumentID] = i
		payload.Documents = append(payload.Documents, documentPayload{
			DocumentID:  src.DocumentID,
			FileName:    src.FileName,
			ContentType: content.ContentType,
			Content:     base64.StdEncoding.EncodeToString(content.Data),
			Text:        content.Text,
			TypeHints:   src.TypeHints,
		})
	}
	if len(payload.Documents) == 0 {
		return results, nil
	}

	remote, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(remote.Results))
	for _, r := range remote.Results {
		i, ok := index[r.DocumentID]
		if !ok || seen[r.DocumentID] {
			continue
		}
		seen[r.DocumentID] = true
		results[i] = r
	}
	for id, i := range index {
		if !seen[id] {
			results[i] = extraction.ScanResult{DocumentID: id, Error: "no result returned"}
		}
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, payload extractRequest) (extractResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return extractResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return extractResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return extractResponse{}, fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return extractResponse{}, fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return extractResponse{}, fmt.Errorf("extraction service http status %d: %s", resp.StatusCode, snippet(raw))
	}
	var out extractResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return extractResponse{}, fmt.Errorf("decode extraction response: %w", err)
	}
	return out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

var _ extraction.Extractor = (*Client)(nil)
