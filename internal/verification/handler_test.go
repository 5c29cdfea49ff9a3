package verification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(flow *Workflow) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("companyId", company)
		c.Set("role", "member")
		c.Next()
	})
	NewHandler(flow).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestOnboardingOverHTTP(t *testing.T) {
	fx := newFixture(t, 5, "doc-a")
	router := newTestRouter(fx.flow)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/onboarding/sessions", gin.H{"driverId": "drv-1", "documentIds": []string{"doc-a"}})
	if resp.Code != http.StatusCreated {
		t.Fatalf("start: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var s Session
	if err := json.Unmarshal(resp.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	base := "/api/v1/onboarding/sessions/" + s.ID

	resp = doJSON(t, router, http.MethodPost, base+"/complete", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("complete too early: expected 409, got %d", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPost, base+"/ai", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("ai: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, router, http.MethodGet, base+"/form", nil)
	var f Form
	if err := json.Unmarshal(resp.Body.Bytes(), &f); err != nil || !f.Prefilled || f.Type != "License" {
		t.Fatalf("form: %v %s", err, resp.Body.String())
	}

	resp = doJSON(t, router, http.MethodPut, base+"/documents/doc-a", gin.H{"type": "License"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("save without expiry: expected 400, got %d", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPut, base+"/documents/doc-a", gin.H{"type": "License", "expiryDate": "2028-01-31"})
	if resp.Code != http.StatusOK {
		t.Fatalf("save: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var saved struct {
		Document struct {
			StatusLabel string `json:"statusLabel"`
		} `json:"document"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &saved); err != nil || saved.Document.StatusLabel != "Verified" {
		t.Fatalf("saved document: %v %s", err, resp.Body.String())
	}

	resp = doJSON(t, router, http.MethodPost, base+"/complete", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, router, http.MethodGet, "/api/v1/onboarding/sessions/nope", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing session: expected 404, got %d", resp.Code)
	}
}
