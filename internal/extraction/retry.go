package extraction

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"compliance-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retrying struct {
	base  Extractor
	delay time.Duration
}

// WithRetry retries a transient whole-batch failure once.
func WithRetry(base Extractor) Extractor {
	if base == nil {
		return nil
	}
	return retrying{base: base, delay: retryBaseDelay}
}

func (r retrying) Extract(ctx context.Context, sources []Source) ([]ScanResult, error) {
	out, err := r.base.Extract(ctx, sources)
	if err == nil || !ShouldRetry(err) {
		return out, err
	}

	telemetry.Warn("extraction.retry", map[string]any{"attempt": 1, "documents": len(sources), "err": err})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.base.Extract(ctx, sources)
}

// ShouldRetry reports whether err looks transient: timeouts, 5xx responses
// and dropped connections.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	for _, s := range []string{"connection reset", "connection refused", "connection closed", "broken pipe", "tls handshake timeout", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
