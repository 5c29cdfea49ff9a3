// Package uploader is the client half of the upload protocol: it PUTs file
// bytes to a granted URL and drives a batch of files through grant, upload
// and record creation.
package uploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"compliance-backend/internal/documents"
	"compliance-backend/internal/shared/apperr"
)

var (
	// ErrGrantExpired means the grant must be requested again before uploading.
	ErrGrantExpired = apperr.New(apperr.KindTransport, "grant_expired", "upload grant expired")
	// ErrUploadFailed wraps a non-2xx response from the object store.
	ErrUploadFailed = apperr.New(apperr.KindTransport, "upload_failed", "upload failed")
)

// ProgressFunc receives monotonically increasing percentages in [0,100].
type ProgressFunc func(percent int)

// Uploader performs direct PUTs against presigned URLs.
type Uploader struct {
	HTTP *http.Client
	Now  func() time.Time
}

// New returns an Uploader using client, or a default client when nil.
func New(client *http.Client) *Uploader {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Uploader{HTTP: client}
}

func (u *Uploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// PerformUpload streams body to the grant URL. Content-Type is sent only when
// known. Cancelling ctx aborts the transfer.
func (u *Uploader) PerformUpload(ctx context.Context, grant documents.UploadGrant, body io.Reader, size int64, contentType string, onProgress ProgressFunc) error {
	if !grant.ExpiresAt.IsZero() && !u.now().Before(grant.ExpiresAt) {
		return ErrGrantExpired
	}

	tracker := &progressReader{r: body, total: size, report: onProgress}
	tracker.emit(0)

	var reqBody io.Reader = tracker
	if size == 0 {
		reqBody = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, grant.UploadURL, reqBody)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := u.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.Wrap(apperr.KindTransport, ErrUploadFailed.Code, err, "upload request")
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(snippet)), "expired") {
			return ErrGrantExpired
		}
		return apperr.Wrap(apperr.KindTransport, ErrUploadFailed.Code,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), "upload rejected")
	}
	tracker.emit(100)
	return nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	mu     sync.Mutex
	last   int
	report ProgressFunc
	sent   bool
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.total > 0 {
			pct := int(p.read * 100 / p.total)
			// 100 is reserved for the server's acknowledgement.
			if pct > 99 {
				pct = 99
			}
			p.emit(pct)
		}
	}
	return n, err
}

func (p *progressReader) emit(pct int) {
	if p.report == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent && pct <= p.last {
		return
	}
	p.sent = true
	p.last = pct
	p.report(pct)
}
