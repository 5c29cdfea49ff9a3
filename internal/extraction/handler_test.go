package extraction

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(o *Orchestrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("companyId", company)
		c.Set("role", "member")
		c.Next()
	})
	NewHandler(o).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestScanOneOverHTTP(t *testing.T) {
	o, _ := newOrchestrator(t, 2, &stubExtractor{fail: map[string]string{"doc-b": "unreadable"}}, "doc-a", "doc-b")
	router := newTestRouter(o)

	resp := post(t, router, "/api/v1/documents/doc-a/ai-scan", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var ok scanOneResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ok.CreditsUsed != 1 || ok.CreditsRemaining != 1 || ok.ExtractedData == nil || ok.ExtractedData.Type != "License" {
		t.Fatalf("unexpected scan response %+v", ok)
	}

	resp = post(t, router, "/api/v1/documents/doc-b/ai-scan", nil)
	if resp.Code != http.StatusBadGateway || errorCode(t, resp) != "extraction_failed" {
		t.Fatalf("failed scan: got %d %s", resp.Code, resp.Body.String())
	}

	resp = post(t, router, "/api/v1/documents/missing/ai-scan", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing document: expected 404, got %d", resp.Code)
	}
}

func TestScanStatusCodes(t *testing.T) {
	o, _ := newOrchestrator(t, 0, &stubExtractor{}, "doc-a")
	resp := post(t, newTestRouter(o), "/api/v1/documents/doc-a/ai-scan", nil)
	if resp.Code != http.StatusPaymentRequired || errorCode(t, resp) != "insufficient_credits" {
		t.Fatalf("no credits: got %d %s", resp.Code, resp.Body.String())
	}

	o, _ = newOrchestrator(t, 5, Unavailable{}, "doc-a")
	resp = post(t, newTestRouter(o), "/api/v1/documents/doc-a/ai-scan", nil)
	if resp.Code != http.StatusServiceUnavailable || errorCode(t, resp) != "extraction_unavailable" {
		t.Fatalf("unavailable: got %d %s", resp.Code, resp.Body.String())
	}
}

func TestBulkScanOverHTTP(t *testing.T) {
	o, _ := newOrchestrator(t, 10, &stubExtractor{fail: map[string]string{"doc-b": "unreadable"}}, "doc-a", "doc-b", "doc-c")
	router := newTestRouter(o)

	resp := post(t, router, "/api/v1/documents/bulk-ai-scan", gin.H{"documentIds": []string{"doc-c", "doc-b", "doc-a"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out BatchResult
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 3 || out.Results[0].DocumentID != "doc-c" || out.Results[1].Success {
		t.Fatalf("unexpected results %+v", out.Results)
	}
	if out.TotalCreditsUsed != 2 || out.CreditsRemaining != 8 {
		t.Fatalf("unexpected credits %+v", out)
	}

	resp = post(t, router, "/api/v1/documents/bulk-ai-scan", gin.H{"documentIds": []string{}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty ids: expected 400, got %d", resp.Code)
	}
}
