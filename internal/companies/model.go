package companies

import "time"

// Company owns drivers, document types and one credit ledger.
type Company struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DriverLimit  int       `json:"driverLimit"`
	ReminderDays []int     `json:"reminderDays"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DocumentType is a company-defined document category. Its Name is what
// documents reference; deleting a type never rewrites existing documents.
type DocumentType struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"companyId"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	SortOrder int        `json:"sortOrder"`
	Fields    []FieldDef `json:"fields"`
	CreatedAt time.Time  `json:"createdAt"`
}

// FieldDef describes one dynamic form field of a document type.
type FieldDef struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

// TypeUpdate is a partial update; nil fields are left unchanged.
type TypeUpdate struct {
	Name      *string     `json:"name"`
	Active    *bool       `json:"active"`
	SortOrder *int        `json:"sortOrder"`
	Fields    *[]FieldDef `json:"fields"`
}
