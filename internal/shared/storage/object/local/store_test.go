package local

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/shared/storage/object"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s := New(t.TempDir(), "http://localhost:8080", "test-secret")
	s.now = func() time.Time { return now }
	return s
}

func TestPresignPutRoundTripsThroughHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	grant, err := s.PresignPut(context.Background(), "co-1/drv-1/abc-license.pdf", "application/pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !grant.ExpiresAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", grant.ExpiresAt)
	}

	router := gin.New()
	s.RegisterRoutes(router.Group("/api/v1"))

	u, err := url.Parse(grant.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, u.RequestURI(), strings.NewReader("%PDF-1.4 test"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	info, err := s.Stat(context.Background(), "co-1/drv-1/abc-license.pdf")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size != int64(len("%PDF-1.4 test")) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	rc, err := s.Open(context.Background(), "co-1/drv-1/abc-license.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4 test" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestHandlerRejectsExpiredGrant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issued := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, issued)

	grant, err := s.PresignPut(context.Background(), "co-1/drv-1/a.pdf", "", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	s.now = func() time.Time { return issued.Add(2 * time.Minute) }

	router := gin.New()
	s.RegisterRoutes(router.Group("/api/v1"))
	u, _ := url.Parse(grant.URL)
	req := httptest.NewRequest(http.MethodPut, u.RequestURI(), strings.NewReader("data"))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if _, err := s.Stat(context.Background(), "co-1/drv-1/a.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}

func TestVerifyRejectsTamperedKey(t *testing.T) {
	s := newTestStore(t, time.Now())
	grant, err := s.PresignPut(context.Background(), "co-1/drv-1/a.pdf", "", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, _ := url.Parse(grant.URL)
	q := u.Query()
	if err := s.Verify("co-2/drv-1/a.pdf", q.Get("expires"), q.Get("sig")); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestCleanKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"../etc/passwd", "", "/", "a/../../b"} {
		if _, err := cleanKey(key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
	}
}

func TestPutKeepsPreviousObjectWhenBodyFails(t *testing.T) {
	s := newTestStore(t, time.Now())
	ctx := context.Background()
	key := "co-1/drv-1/a.pdf"

	if _, err := s.Put(ctx, key, strings.NewReader("original")); err != nil {
		t.Fatalf("put: %v", err)
	}
	broken := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(errors.New("connection reset")))
	if _, err := s.Put(ctx, key, broken); err == nil {
		t.Fatal("expected write error")
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "original" {
		t.Fatalf("expected previous object intact, got %q", b)
	}

	if _, err := s.Put(ctx, "co-1/drv-1/b.pdf", iotest.ErrReader(errors.New("connection reset"))); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := s.Stat(ctx, "co-1/drv-1/b.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected no object after failed put, got %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(s.baseDir, "co-1", "drv-1"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.pdf" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only a.pdf on disk, got %v", names)
	}
}
