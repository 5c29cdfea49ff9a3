package httpsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-backend/internal/extraction"
	"compliance-backend/internal/shared/storage/object"
)

type memStore map[string][]byte

func (m memStore) Stat(ctx context.Context, key string) (object.Info, error) {
	if _, ok := m[key]; !ok {
		return object.Info{}, object.ErrNotFound
	}
	return object.Info{Key: key}, nil
}

func (m memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := m[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func TestExtractMapsResultsByID(t *testing.T) {
	var got extractRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/extract", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		// Out of order, with one document missing from the reply.
		_ = json.NewEncoder(w).Encode(extractResponse{Results: []extraction.ScanResult{
			{DocumentID: "c", Success: true, ExtractedData: &extraction.ExtractedData{Type: "Medical"}},
			{DocumentID: "a", Success: true, ExtractedData: &extraction.ExtractedData{Type: "License"}},
		}})
	}))
	defer srv.Close()

	store := memStore{"k/a.png": []byte("a"), "k/b.png": []byte("b"), "k/c.png": []byte("c")}
	client, err := New(srv.URL+"/", "secret", store)
	require.NoError(t, err)

	out, err := client.Extract(t.Context(), []extraction.Source{
		{DocumentID: "a", Key: "k/a.png", ContentType: "image/png", TypeHints: []string{"License", "Medical"}},
		{DocumentID: "b", Key: "k/b.png", ContentType: "image/png"},
		{DocumentID: "c", Key: "k/c.png", ContentType: "image/png"},
		{DocumentID: "d", Key: "k/missing.png", ContentType: "image/png"},
	})
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, "License", out[0].ExtractedData.Type)
	assert.False(t, out[1].Success)
	assert.Equal(t, "no result returned", out[1].Error)
	assert.Equal(t, "Medical", out[2].ExtractedData.Type)
	assert.False(t, out[3].Success)
	assert.Equal(t, "d", out[3].DocumentID)

	require.Len(t, got.Documents, 3)
	assert.Equal(t, "YQ==", got.Documents[0].Content)
	assert.Equal(t, []string{"License", "Medical"}, got.Documents[0].TypeHints)
}

func TestExtractServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := New(srv.URL, "", memStore{"k": []byte("x")})
	require.NoError(t, err)

	_, err = client.Extract(t.Context(), []extraction.Source{{DocumentID: "a", Key: "k", ContentType: "image/png"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 503")
	assert.True(t, extraction.ShouldRetry(err))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("  ", "", memStore{})
	require.Error(t, err)
}
