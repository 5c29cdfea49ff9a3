package companies

import "context"

// Repo persists companies and their document types.
type Repo interface {
	GetCompany(ctx context.Context, id string) (Company, error)
	// CreateCompanyIfAbsent reports whether this call created the row.
	CreateCompanyIfAbsent(ctx context.Context, c Company) (bool, error)
	UpdateSettings(ctx context.Context, id string, driverLimit int, reminderDays []int) error

	ListTypes(ctx context.Context, companyID string) ([]DocumentType, error)
	GetType(ctx context.Context, companyID, id string) (DocumentType, error)
	CreateType(ctx context.Context, t DocumentType) error
	UpdateType(ctx context.Context, t DocumentType) error
	DeleteType(ctx context.Context, companyID, id string) error
}
