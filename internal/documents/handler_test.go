package documents

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/storage/object"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("companyId", "co-1")
		c.Set("role", "member")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
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

func TestUploadProtocolOverHTTP(t *testing.T) {
	svc, bucket := newTestService()
	router := newTestRouter(svc)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/documents/presigned-urls/drv-1", gin.H{
		"files": []gin.H{{"filename": "license.pdf", "contentType": "application/pdf"}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("presign: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var grants []UploadGrant
	if err := json.Unmarshal(resp.Body.Bytes(), &grants); err != nil || len(grants) != 1 {
		t.Fatalf("decode grants: %v %s", err, resp.Body.String())
	}

	record := gin.H{"key": grants[0].Key, "filename": "license.pdf", "contentType": "application/pdf", "size": 4}
	resp = doJSON(t, router, http.MethodPost, "/api/v1/documents/drv-1", record)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("record before upload: expected 400, got %d", resp.Code)
	}

	bucket.objects[grants[0].Key] = object.Info{Key: grants[0].Key, Size: 4}
	resp = doJSON(t, router, http.MethodPost, "/api/v1/documents/drv-1", record)
	if resp.Code != http.StatusCreated {
		t.Fatalf("record: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created DocumentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if created.RawStatus != "PENDING" || created.StatusLabel != "Pending" {
		t.Fatalf("unexpected new document %+v", created)
	}

	resp = doJSON(t, router, http.MethodPut, "/api/v1/documents/"+created.ID, gin.H{
		"type": "License", "expiryDate": "2027-06-30", "rawStatus": "ACTIVE", "class": "B",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, router, http.MethodGet, "/api/v1/drivers/drv-1/documents", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.Code)
	}
	var listed struct {
		Documents []DocumentResponse `json:"documents"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Documents) != 1 || listed.Documents[0].StatusLabel != "Verified" {
		t.Fatalf("unexpected list %+v", listed.Documents)
	}
}

func TestUpdateReportsFieldProblems(t *testing.T) {
	svc, bucket := newTestService()
	doc := recorded(t, svc, bucket)
	router := newTestRouter(svc)

	resp := doJSON(t, router, http.MethodPut, "/api/v1/documents/"+doc.ID, gin.H{"type": "License", "class": "Q"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "invalid_fields" || body.Error.Details["class"] == "" {
		t.Fatalf("unexpected error body %s", resp.Body.String())
	}
}

func TestGetOtherCompanyDocumentIs404(t *testing.T) {
	svc, bucket := newTestService()
	doc := recorded(t, svc, bucket)
	doc.CompanyID = "co-2"
	doc.ID = "foreign"
	if err := svc.Repo.Create(t.Context(), doc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/v1/documents/foreign", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
