// Package verification runs the per-driver onboarding session: choose AI or
// manual entry, then review and save each uploaded document.
package verification

import (
	"time"

	"compliance-backend/internal/extraction"
	"compliance-backend/internal/shared/apperr"
)

// State is a step of the onboarding session.
type State string

const (
	StateChoosingMethod State = "CHOOSING_METHOD"
	StateScanning       State = "SCANNING"
	StateScanDone       State = "SCAN_DONE"
	StateScanFailed     State = "SCAN_FAILED"
	StateVerifying      State = "VERIFYING"
	StateManualEntry    State = "MANUAL_ENTRY"
	StateComplete       State = "COMPLETE"
)

var (
	ErrSessionNotFound     = apperr.New(apperr.KindNotFound, "session_not_found", "onboarding session not found")
	ErrNoDocuments         = apperr.Validation("validation_error", "documentIds is required")
	ErrForeignDocument     = apperr.Validation("invalid_document", "document does not belong to this driver")
	ErrUnknownDocument     = apperr.Validation("invalid_document", "document is not part of this session")
	ErrInvalidState        = apperr.Validation("invalid_state", "action not allowed in the current step")
	ErrUnverifiedDocuments = apperr.Validation("unverified_documents", "every document must be verified before completing")
	// ErrStale is returned when another request changed the session first.
	ErrStale = apperr.Validation("session_conflict", "session was changed by another request")
)

// Session is the persisted state of one onboarding run.
type Session struct {
	ID          string                           `json:"id"`
	DriverID    string                           `json:"driverId"`
	CompanyID   string                           `json:"companyId"`
	DocumentIDs []string                         `json:"documentIds"`
	State       State                            `json:"state"`
	Results     map[string]extraction.ScanResult `json:"results,omitempty"`
	Verified    map[string]bool                  `json:"verified"`
	Current     int                              `json:"current"`
	CreditsUsed int                              `json:"creditsUsed"`
	LastError   string                           `json:"lastError,omitempty"`
	Version     int                              `json:"version"`
	CreatedAt   time.Time                        `json:"createdAt"`
	UpdatedAt   time.Time                        `json:"updatedAt"`
}

func (s Session) has(documentID string) bool {
	for _, id := range s.DocumentIDs {
		if id == documentID {
			return true
		}
	}
	return false
}

func (s Session) allVerified() bool {
	for _, id := range s.DocumentIDs {
		if !s.Verified[id] {
			return false
		}
	}
	return true
}

// nextUnverified returns the index of the first unverified document at or
// after from, wrapping around. -1 when all are verified.
func (s Session) nextUnverified(from int) int {
	n := len(s.DocumentIDs)
	for i := 0; i < n; i++ {
		j := (from + i) % n
		if !s.Verified[s.DocumentIDs[j]] {
			return j
		}
	}
	return -1
}

// MethodOptions tells the client which branches are open.
type MethodOptions struct {
	AIAvailable   bool   `json:"aiAvailable"`
	Reason        string `json:"reason,omitempty"`
	Credits       int    `json:"credits"`
	DocumentCount int    `json:"documentCount"`
}

// Form is the editable view of one document.
type Form struct {
	DocumentID     string            `json:"documentId"`
	FileName       string            `json:"filename"`
	Type           string            `json:"type"`
	DocumentNumber string            `json:"documentNumber"`
	IssuedDate     string            `json:"issuedDate"`
	ExpiryDate     string            `json:"expiryDate"`
	Notes          string            `json:"notes"`
	Fields         map[string]string `json:"fields,omitempty"`
	Prefilled      bool              `json:"prefilled"`
	ScanError      string            `json:"scanError,omitempty"`
	Verified       bool              `json:"verified"`
}

// FormInput is what the reviewer submits for one document.
type FormInput struct {
	Type           string            `json:"type"`
	DocumentNumber string            `json:"documentNumber"`
	IssuedDate     string            `json:"issuedDate"`
	ExpiryDate     string            `json:"expiryDate"`
	Notes          string            `json:"notes"`
	Fields         map[string]string `json:"fields"`
}
