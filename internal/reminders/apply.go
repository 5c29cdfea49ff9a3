package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance-backend/internal/compliance"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/telemetry"
)

// DocumentStore reads and writes single documents.
type DocumentStore interface {
	Get(ctx context.Context, companyID, id string) (documents.Document, error)
	Update(ctx context.Context, doc documents.Document) error
}

// Applier consumes reminder messages. An expired reminder flips the stored
// status to EXPIRED, since compliance scoring trusts the stored status.
// Other thresholds are only announced.
type Applier struct {
	Documents DocumentStore
	Now       func() time.Time
}

func (a *Applier) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

// ApplyReminder handles one message. Stale messages (document deleted,
// renewed or no longer active) are dropped without error.
func (a *Applier) ApplyReminder(ctx context.Context, msg queue.Message) error {
	doc, err := a.Documents.Get(ctx, msg.CompanyID, msg.DocumentID)
	if errors.Is(err, documents.ErrNotFound) {
		telemetry.Info("reminders.stale", map[string]any{"document_id": msg.DocumentID, "reason": "deleted"})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.ExpiryDate == nil || doc.ExpiryDate.Format(time.DateOnly) != msg.ExpiryDate {
		telemetry.Info("reminders.stale", map[string]any{"document_id": doc.ID, "reason": "expiry_changed"})
		return nil
	}

	telemetry.Info("reminders.notify", map[string]any{
		"company_id":     doc.CompanyID,
		"driver_id":      doc.DriverID,
		"document_id":    doc.ID,
		"document_type":  doc.Type,
		"threshold_days": msg.ThresholdDays,
		"days_left":      msg.DaysLeft,
	})

	if msg.ThresholdDays != 0 || !doc.ExpiryDate.Before(a.now()) {
		return nil
	}
	if doc.RawStatus != compliance.RawActive && doc.RawStatus != compliance.RawExpiringSoon {
		return nil
	}
	doc.RawStatus = compliance.RawExpired
	doc.UpdatedAt = a.now()
	if err := a.Documents.Update(ctx, doc); err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	telemetry.Info("reminders.marked_expired", map[string]any{"company_id": doc.CompanyID, "document_id": doc.ID})
	return nil
}
