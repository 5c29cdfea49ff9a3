package extraction

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ExtractFunc extracts a single document.
type ExtractFunc func(ctx context.Context, src Source) (ExtractedData, error)

// FanOut runs fn over sources with at most limit in flight. Each result
// lands at its source's index. Per-document errors become failed results;
// when every document fails with a transient error the batch reports
// ErrExtractionUnavailable instead.
func FanOut(ctx context.Context, sources []Source, limit int, fn ExtractFunc) ([]ScanResult, error) {
	results := make([]ScanResult, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			data, err := fn(ctx, src)
			if err != nil {
				errs[i] = err
				results[i] = failed(src.DocumentID, err.Error())
				return nil
			}
			results[i] = ScanResult{DocumentID: src.DocumentID, Success: true, ExtractedData: &data}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	transient := 0
	var last error
	for _, err := range errs {
		if err != nil && ShouldRetry(err) {
			transient++
			last = err
		}
	}
	if len(sources) > 0 && transient == len(sources) {
		return nil, errors.Join(ErrExtractionUnavailable, last)
	}
	return results, nil
}
