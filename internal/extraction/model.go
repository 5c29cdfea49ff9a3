// Package extraction sends stored documents to an extraction backend and
// meters successful results against the company's credits.
package extraction

import (
	"context"

	"compliance-backend/internal/shared/apperr"
)

var (
	ErrInsufficientCredits   = apperr.New(apperr.KindQuota, "insufficient_credits", "not enough credits for this scan")
	ErrExtractionUnavailable = apperr.New(apperr.KindTransport, "extraction_unavailable", "extraction service unavailable, retry or enter details manually")
	ErrExtractionFailed      = apperr.New(apperr.KindTransport, "extraction_failed", "document could not be read")
	ErrNoDocuments           = apperr.Validation("validation_error", "documentIds is required")
	ErrTooManyDocuments      = apperr.Validation("too_many_documents", "too many documents in one scan")
)

// ExtractedData is a suggestion for the document's metadata. It is never
// written to the document by this package.
type ExtractedData struct {
	Type           string            `json:"type,omitempty"`
	DocumentNumber string            `json:"documentNumber,omitempty"`
	IssuedDate     string            `json:"issuedDate,omitempty"`
	ExpiryDate     string            `json:"expiryDate,omitempty"`
	HolderName     string            `json:"holderName,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
}

// ScanResult is the per-document outcome of one extraction call.
type ScanResult struct {
	DocumentID    string         `json:"documentId"`
	Success       bool           `json:"success"`
	ExtractedData *ExtractedData `json:"extractedData,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// Source is one document handed to an extractor.
type Source struct {
	DocumentID  string
	Key         string
	FileName    string
	ContentType string
	// TypeHints lists the company's document type names for classification.
	TypeHints []string
}

// Extractor processes a batch in one logical call. Results must be aligned
// with sources. A returned error means nothing was extracted at all.
type Extractor interface {
	Extract(ctx context.Context, sources []Source) ([]ScanResult, error)
}

// Unavailable is the extractor used when none is configured.
type Unavailable struct{}

func (Unavailable) Extract(context.Context, []Source) ([]ScanResult, error) {
	return nil, ErrExtractionUnavailable
}

func failed(id, msg string) ScanResult {
	return ScanResult{DocumentID: id, Success: false, Error: msg}
}
