package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance-backend/internal/credits"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

const maxBatch = 50

// DocumentReader loads documents within a company.
type DocumentReader interface {
	Get(ctx context.Context, companyID, id string) (documents.Document, error)
}

// CreditBank is the slice of the credits service scans are metered by.
type CreditBank interface {
	Balance(ctx context.Context, companyID string) (int, error)
	Debit(ctx context.Context, companyID string, amount int, reason string) (credits.DebitResult, error)
}

// TypeCatalog supplies classification hints.
type TypeCatalog interface {
	RequiredTypeNames(ctx context.Context, companyID string) ([]string, error)
}

// Orchestrator runs credit-metered scans.
type Orchestrator struct {
	Documents DocumentReader
	Credits   CreditBank
	Extractor Extractor
	Types     TypeCatalog
}

// ScanOneResult is the outcome of a single-document scan.
type ScanOneResult struct {
	Result           ScanResult `json:"result"`
	CreditsUsed      int        `json:"creditsUsed"`
	CreditsRemaining int        `json:"creditsRemaining"`
}

// BatchResult is the outcome of a multi-document scan. Results follow the
// order of the requested IDs.
type BatchResult struct {
	Results          []ScanResult `json:"results"`
	TotalCreditsUsed int          `json:"totalCreditsUsed"`
	CreditsRemaining int          `json:"creditsRemaining"`
}

// Available reports whether a real extractor is configured.
func (o *Orchestrator) Available() bool {
	if o.Extractor == nil {
		return false
	}
	_, none := o.Extractor.(Unavailable)
	return !none
}

// ScanOne scans a single document.
func (o *Orchestrator) ScanOne(ctx context.Context, companyID, documentID string) (ScanOneResult, error) {
	batch, err := o.ScanMany(ctx, companyID, []string{documentID})
	if err != nil {
		return ScanOneResult{}, err
	}
	return ScanOneResult{
		Result:           batch.Results[0],
		CreditsUsed:      batch.TotalCreditsUsed,
		CreditsRemaining: batch.CreditsRemaining,
	}, nil
}

// ScanMany extracts every document in one extractor call and debits one
// credit per successful result. The balance must cover the whole request up
// front; a failed call debits nothing.
func (o *Orchestrator) ScanMany(ctx context.Context, companyID string, documentIDs []string) (BatchResult, error) {
	if len(documentIDs) == 0 {
		return BatchResult{}, ErrNoDocuments
	}
	if len(documentIDs) > maxBatch {
		return BatchResult{}, ErrTooManyDocuments
	}
	started := time.Now()

	balance, err := o.Credits.Balance(ctx, companyID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("check credits: %w", err)
	}
	if balance < len(documentIDs) {
		return BatchResult{}, ErrInsufficientCredits
	}

	var hints []string
	if o.Types != nil {
		if hints, err = o.Types.RequiredTypeNames(ctx, companyID); err != nil {
			telemetry.Warn("extraction.type_hints_unavailable", map[string]any{"company_id": companyID, "err": err})
		}
	}

	results := make([]ScanResult, len(documentIDs))
	sources := make([]Source, 0, len(documentIDs))
	slots := make([]int, 0, len(documentIDs))
	for i, id := range documentIDs {
		doc, err := o.Documents.Get(ctx, companyID, id)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				results[i] = failed(id, "document not found")
				continue
			}
			return BatchResult{}, fmt.Errorf("load document %s: %w", id, err)
		}
		sources = append(sources, Source{
			DocumentID:  doc.ID,
			Key:         doc.Key,
			FileName:    doc.FileName,
			ContentType: doc.ContentType,
			TypeHints:   hints,
		})
		slots = append(slots, i)
	}

	remaining := balance
	if len(sources) > 0 {
		extracted, err := o.extract(ctx, sources)
		if err != nil {
			telemetry.Error("extraction.unavailable", map[string]any{
				"company_id": companyID,
				"documents":  len(sources),
				"err":        err,
			})
			metrics.ObserveScan("unavailable")
			return BatchResult{}, err
		}
		for j, r := range extracted {
			results[slots[j]] = r
		}
	}

	used := 0
	for i := range results {
		r := &results[i]
		if !r.Success {
			metrics.ObserveScan("failed")
			continue
		}
		debit, err := o.Credits.Debit(ctx, companyID, 1, "ai_scan:"+r.DocumentID)
		switch {
		case err != nil:
			telemetry.Error("extraction.debit_failed", map[string]any{"company_id": companyID, "document_id": r.DocumentID, "err": err})
			*r = failed(r.DocumentID, "credit debit failed")
			metrics.ObserveScan("failed")
		case !debit.OK:
			*r = failed(r.DocumentID, "insufficient credits")
			remaining = debit.NewBalance
			metrics.ObserveScan("insufficient_credits")
		default:
			used++
			remaining = debit.NewBalance
			metrics.ObserveScan("success")
		}
	}

	metrics.ObserveScanBatchDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("extraction.complete", map[string]any{
		"company_id":        companyID,
		"documents":         len(documentIDs),
		"credits_used":      used,
		"credits_remaining": remaining,
	})
	return BatchResult{Results: results, TotalCreditsUsed: used, CreditsRemaining: remaining}, nil
}

func (o *Orchestrator) extract(ctx context.Context, sources []Source) ([]ScanResult, error) {
	if o.Extractor == nil {
		return nil, ErrExtractionUnavailable
	}
	out, err := o.Extractor.Extract(ctx, sources)
	if err != nil {
		if errors.Is(err, ErrExtractionUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	if len(out) != len(sources) {
		return nil, fmt.Errorf("%w: expected %d results, got %d", ErrExtractionUnavailable, len(sources), len(out))
	}
	for j := range out {
		// Results are keyed by position; the ID is restored in case a backend omits it.
		out[j].DocumentID = sources[j].DocumentID
		if out[j].Success && out[j].ExtractedData == nil {
			out[j] = failed(sources[j].DocumentID, "empty extraction result")
		}
	}
	return out, nil
}
