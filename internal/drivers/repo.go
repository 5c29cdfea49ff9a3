package drivers

import "context"

// Repo defines persistence operations for drivers.
type Repo interface {
	// CreateWithinLimit inserts d unless the company already has limit
	// drivers. The count and insert are atomic per company.
	CreateWithinLimit(ctx context.Context, d Driver, limit int) (bool, error)
	Get(ctx context.Context, companyID, id string) (Driver, error)
	List(ctx context.Context, companyID string) ([]Driver, error)
	Delete(ctx context.Context, companyID, id string) error
}
