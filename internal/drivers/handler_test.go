package drivers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(svc *Service, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("companyId", "co-1")
		c.Set("role", role)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postDriver(r http.Handler, email string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(validInput(email))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drivers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateDriverLimitIs403(t *testing.T) {
	f := newFixture(1)
	r := newTestRouter(f.svc, "member")

	if resp := postDriver(r, "a@x.io"); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	resp := postDriver(r, "b@x.io")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "limit_reached" || body.Message == "" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestGetDriverIncludesCompliance(t *testing.T) {
	f := newFixture(5)
	r := newTestRouter(f.svc, "member")
	resp := postDriver(r, "a@x.io")
	var created Driver
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/drivers/"+created.ID, nil)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", out.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(out.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["id"] != created.ID {
		t.Fatalf("expected driver fields inline, got %v", got)
	}
	if _, ok := got["complianceScore"]; !ok {
		t.Fatalf("expected complianceScore, got %v", got)
	}
}

func TestDeleteDriverRequiresAdmin(t *testing.T) {
	f := newFixture(5)
	r := newTestRouter(f.svc, "member")
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/drivers/any", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}
