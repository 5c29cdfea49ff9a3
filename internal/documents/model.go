package documents

import (
	"time"

	"compliance-backend/internal/compliance"
)

// Document is an uploaded compliance document owned by a driver.
type Document struct {
	ID             string
	DriverID       string
	CompanyID      string
	Type           string
	Key            string
	FileName       string
	ContentType    string
	Size           int64
	DocumentNumber *string
	IssuedDate     *time.Time
	ExpiryDate     *time.Time
	RawStatus      compliance.RawStatus
	Notes          string
	Fields         map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Scored returns the view of the document the compliance scorer reads.
func (d Document) Scored() compliance.ScoredDocument {
	return compliance.ScoredDocument{
		ID:         d.ID,
		Type:       d.Type,
		RawStatus:  d.RawStatus,
		ExpiryDate: d.ExpiryDate,
	}
}

// FileSpec describes one file the client intends to upload.
type FileSpec struct {
	FileName    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadGrant is a single-use, time-limited upload target. Not persisted.
type UploadGrant struct {
	FileName    string    `json:"filename"`
	ContentType string    `json:"contentType,omitempty"`
	Key         string    `json:"key"`
	UploadURL   string    `json:"uploadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// RecordInput registers an object that was uploaded with a grant.
type RecordInput struct {
	Key         string `json:"key"`
	FileName    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Update is a partial document edit. Nil pointers leave the field as is;
// an empty date string clears the date.
type Update struct {
	Type           *string
	DocumentNumber *string
	IssuedDate     *string
	ExpiryDate     *string
	Notes          *string
	RawStatus      *compliance.RawStatus
	Fields         map[string]string
}
