package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents. Every read is scoped to
// a company.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, companyID, id string) (Document, error)
	ListByDriver(ctx context.Context, companyID, driverID string) ([]Document, error)
	Update(ctx context.Context, doc Document) error
	DeleteByDriver(ctx context.Context, companyID, driverID string) error
	// ListExpiringBefore returns documents across all companies whose expiry
	// date is set and not after cutoff.
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]Document, error)
}
