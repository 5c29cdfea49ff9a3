package extraction

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sources(ids ...string) []Source {
	out := make([]Source, len(ids))
	for i, id := range ids {
		out[i] = Source{DocumentID: id}
	}
	return out
}

func TestFanOutKeepsOrderAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	fn := func(ctx context.Context, src Source) (ExtractedData, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		if src.DocumentID == "d3" {
			return ExtractedData{}, errors.New("blurry image")
		}
		return ExtractedData{DocumentNumber: "N-" + src.DocumentID}, nil
	}

	out, err := FanOut(t.Context(), sources("d1", "d2", "d3", "d4", "d5", "d6"), 2, fn)
	require.NoError(t, err)
	require.Len(t, out, 6)
	for i, r := range out {
		assert.Equal(t, fmt.Sprintf("d%d", i+1), r.DocumentID)
	}
	assert.False(t, out[2].Success)
	assert.Equal(t, "blurry image", out[2].Error)
	assert.Equal(t, "N-d6", out[5].ExtractedData.DocumentNumber)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestFanOutAllTransientIsUnavailable(t *testing.T) {
	fn := func(ctx context.Context, src Source) (ExtractedData, error) {
		return ExtractedData{}, errors.New("upstream http status 503")
	}
	_, err := FanOut(t.Context(), sources("a", "b"), 4, fn)
	require.ErrorIs(t, err, ErrExtractionUnavailable)
}

func TestFanOutPartialTransientIsPerDocument(t *testing.T) {
	fn := func(ctx context.Context, src Source) (ExtractedData, error) {
		if src.DocumentID == "a" {
			return ExtractedData{}, errors.New("upstream http status 503")
		}
		return ExtractedData{Type: "Medical"}, nil
	}
	out, err := FanOut(t.Context(), sources("a", "b"), 4, fn)
	require.NoError(t, err)
	assert.False(t, out[0].Success)
	assert.True(t, out[1].Success)
}

type flakyExtractor struct {
	calls int
	errs  []error
}

func (f *flakyExtractor) Extract(ctx context.Context, src []Source) ([]ScanResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return []ScanResult{{DocumentID: src[0].DocumentID, Success: true, ExtractedData: &ExtractedData{}}}, nil
}

func TestWithRetry(t *testing.T) {
	t.Run("transient then success", func(t *testing.T) {
		base := &flakyExtractor{errs: []error{errors.New("read: connection reset by peer")}}
		r := retrying{base: base, delay: time.Millisecond}
		out, err := r.Extract(t.Context(), sources("a"))
		require.NoError(t, err)
		assert.Len(t, out, 1)
		assert.Equal(t, 2, base.calls)
	})

	t.Run("permanent is not retried", func(t *testing.T) {
		base := &flakyExtractor{errs: []error{errors.New("http status 400: bad request")}}
		r := retrying{base: base, delay: time.Millisecond}
		_, err := r.Extract(t.Context(), sources("a"))
		require.Error(t, err)
		assert.Equal(t, 1, base.calls)
	})

	t.Run("retries only once", func(t *testing.T) {
		transient := errors.New("http status 502")
		base := &flakyExtractor{errs: []error{transient, transient, transient}}
		r := retrying{base: base, delay: time.Millisecond}
		_, err := r.Extract(t.Context(), sources("a"))
		require.ErrorIs(t, err, transient)
		assert.Equal(t, 2, base.calls)
	})

	t.Run("nil base", func(t *testing.T) {
		assert.Nil(t, WithRetry(nil))
	})
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{errors.New("http status 500"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("http status 401: invalid key"), false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ShouldRetry(tc.err), "%v", tc.err)
	}
}
