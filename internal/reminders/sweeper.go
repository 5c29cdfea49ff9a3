// Package reminders finds documents that crossed an expiry reminder
// threshold and publishes one message per document and threshold.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance-backend/internal/companies"
	"compliance-backend/internal/compliance"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

// DefaultHorizon bounds how far ahead expiry dates are loaded. Thresholds
// beyond it are never reached by a sweep.
const DefaultHorizon = 120 * 24 * time.Hour

// DocumentSource lists documents expiring up to a cutoff, across companies.
type DocumentSource interface {
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]documents.Document, error)
}

// CompanySource loads reminder settings.
type CompanySource interface {
	Get(ctx context.Context, companyID string) (companies.Company, error)
}

// Sweeper publishes expiry reminders.
type Sweeper struct {
	Documents DocumentSource
	Companies CompanySource
	Sent      SentLog
	Queue     queue.Client
	Horizon   time.Duration
	Now       func() time.Time
}

// Report summarizes one sweep.
type Report struct {
	Checked int
	Sent    int
	Skipped int
	Failed  int
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Sweep runs one pass. A failure on one document is logged and counted;
// the pass continues with the rest.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	now := s.now()
	horizon := s.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	docs, err := s.Documents.ListExpiringBefore(ctx, now.Add(horizon))
	if err != nil {
		return Report{}, fmt.Errorf("list expiring documents: %w", err)
	}

	settings := map[string][]int{}
	var rep Report
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Checked++

		days, ok := settings[doc.CompanyID]
		if !ok {
			c, err := s.Companies.Get(ctx, doc.CompanyID)
			if err != nil {
				telemetry.Warn("reminders.company_unavailable", map[string]any{"company_id": doc.CompanyID, "err": err})
				rep.Failed++
				continue
			}
			days = c.ReminderDays
			settings[doc.CompanyID] = days
		}

		msg, due := reminderFor(doc, days, now)
		if !due {
			rep.Skipped++
			continue
		}
		sent, err := s.publish(ctx, msg)
		if err != nil {
			telemetry.Error("reminders.publish_failed", map[string]any{
				"company_id":  doc.CompanyID,
				"document_id": doc.ID,
				"err":         err,
			})
			rep.Failed++
			continue
		}
		if sent {
			rep.Sent++
		} else {
			rep.Skipped++
		}
	}

	telemetry.Info("reminders.sweep", map[string]any{
		"checked": rep.Checked,
		"sent":    rep.Sent,
		"skipped": rep.Skipped,
		"failed":  rep.Failed,
	})
	return rep, nil
}

func (s *Sweeper) publish(ctx context.Context, msg queue.Message) (bool, error) {
	key := KeyFor(msg)
	seen, err := s.Sent.Seen(ctx, key)
	if err != nil {
		return false, err
	}
	if seen {
		return false, nil
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return false, err
	}
	// A failed mark means the reminder may go out twice, which beats losing it.
	if err := s.Sent.Mark(ctx, key); err != nil {
		return true, errors.Join(errors.New("reminder sent but not recorded"), err)
	}
	metrics.IncRemindersSent()
	return true, nil
}

// reminderFor decides whether a verified document is due a reminder and for
// which threshold. Expired documents use threshold 0.
func reminderFor(doc documents.Document, reminderDays []int, now time.Time) (queue.Message, bool) {
	if doc.ExpiryDate == nil {
		return queue.Message{}, false
	}
	switch doc.RawStatus {
	case compliance.RawActive, compliance.RawExpiringSoon, compliance.RawExpired:
	default:
		return queue.Message{}, false
	}
	window := compliance.ReminderWindowFromDays(reminderDays, doc.ExpiryDate, now)
	status := compliance.EffectiveStatus(compliance.StatusInput{RawStatus: doc.RawStatus, ExpiryDate: doc.ExpiryDate}, now, window)

	left := compliance.DaysUntil(*doc.ExpiryDate, now)
	var threshold int
	switch status {
	case compliance.StatusExpired:
		threshold = 0
	case compliance.StatusExpiringSoon:
		t, ok := compliance.NearestThreshold(reminderDays, left)
		if !ok {
			return queue.Message{}, false
		}
		threshold = t
	default:
		return queue.Message{}, false
	}

	return queue.Message{
		Kind:          queue.KindExpiryReminder,
		CompanyID:     doc.CompanyID,
		DriverID:      doc.DriverID,
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		ExpiryDate:    doc.ExpiryDate.Format(time.DateOnly),
		ThresholdDays: threshold,
		DaysLeft:      left,
		Status:        string(status),
		EnqueuedAt:    now.Format(time.RFC3339),
		Version:       queue.MessageVersion,
	}, true
}
