package openai

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
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

type fakeChat struct {
	mu    sync.Mutex
	reqs  []goopenai.ChatCompletionRequest
	reply func(req goopenai.ChatCompletionRequest) (string, error)
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	content, err := f.reply(req)
	if err != nil {
		return goopenai.ChatCompletionResponse{}, err
	}
	return goopenai.ChatCompletionResponse{
		Choices: []goopenai.ChatCompletionChoice{{Message: goopenai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func TestExtractImagesAsDataURL(t *testing.T) {
	chat := &fakeChat{reply: func(req goopenai.ChatCompletionRequest) (string, error) {
		return `{"type":"License","documentNumber":" D123 ","expiryDate":"2027-03-01","fields":{"class":"B","endorsements":null,"points":3},"confidence":0.9}`, nil
	}}
	ext, err := NewWithClient(chat, "gpt-4o-mini", memStore{"k/a.jpg": []byte("img")}, 2)
	require.NoError(t, err)

	out, err := ext.Extract(t.Context(), []extraction.Source{{DocumentID: "a", Key: "k/a.jpg", FileName: "a.jpg", ContentType: "image/jpeg", TypeHints: []string{"License"}}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].Success)

	data := out[0].ExtractedData
	assert.Equal(t, "License", data.Type)
	assert.Equal(t, "D123", data.DocumentNumber)
	assert.Equal(t, map[string]string{"class": "B", "points": "3"}, data.Fields)
	assert.InDelta(t, 0.9, data.Confidence, 0.0001)

	require.Len(t, chat.reqs, 1)
	req := chat.reqs[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Contains(t, req.Messages[0].Content, "License")
	parts := req.Messages[1].MultiContent
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestExtractBadReplyFailsDocumentOnly(t *testing.T) {
	chat := &fakeChat{reply: func(req goopenai.ChatCompletionRequest) (string, error) {
		if strings.Contains(req.Messages[1].MultiContent[0].Text, "bad") {
			return "not json", nil
		}
		return `{"type":"Medical"}`, nil
	}}
	ext, err := NewWithClient(chat, "m", memStore{"k/good.png": []byte("g"), "k/bad.png": []byte("b")}, 1)
	require.NoError(t, err)

	out, err := ext.Extract(t.Context(), []extraction.Source{
		{DocumentID: "good", Key: "k/good.png", FileName: "good.png", ContentType: "image/png"},
		{DocumentID: "bad", Key: "k/bad.png", FileName: "bad.png", ContentType: "image/png"},
	})
	require.NoError(t, err)
	assert.True(t, out[0].Success)
	assert.False(t, out[1].Success)
	assert.Contains(t, out[1].Error, "invalid JSON")
}

func TestExtractServerErrorsAreUnavailable(t *testing.T) {
	chat := &fakeChat{reply: func(req goopenai.ChatCompletionRequest) (string, error) {
		return "", &goopenai.APIError{HTTPStatusCode: 503, Message: "overloaded"}
	}}
	ext, err := NewWithClient(chat, "m", memStore{"k/a.png": []byte("a")}, 1)
	require.NoError(t, err)

	_, err = ext.Extract(t.Context(), []extraction.Source{{DocumentID: "a", Key: "k/a.png", ContentType: "image/png"}})
	require.True(t, errors.Is(err, extraction.ErrExtractionUnavailable), "got %v", err)
}

func TestNewValidates(t *testing.T) {
	_, err := New("", "m", memStore{}, 1)
	require.Error(t, err)
	_, err = NewWithClient(&fakeChat{}, "", memStore{}, 1)
	require.Error(t, err)
}
