package reminders

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"compliance-backend/internal/queue"
)

// SentKey identifies one reminder. The expiry date is part of it so a
// renewed document starts its thresholds over.
type SentKey struct {
	DocumentID string
	ExpiryDate string
	Threshold  int
}

// KeyFor derives the dedupe key of a reminder message.
func KeyFor(msg queue.Message) SentKey {
	return SentKey{DocumentID: msg.DocumentID, ExpiryDate: msg.ExpiryDate, Threshold: msg.ThresholdDays}
}

// SentLog remembers which reminders went out already.
type SentLog interface {
	Seen(ctx context.Context, key SentKey) (bool, error)
	Mark(ctx context.Context, key SentKey) error
}

// MemorySentLog keeps the log in process memory.
type MemorySentLog struct {
	mu   sync.Mutex
	sent map[SentKey]struct{}
}

// NewMemorySentLog constructs an empty MemorySentLog.
func NewMemorySentLog() *MemorySentLog {
	return &MemorySentLog{sent: make(map[SentKey]struct{})}
}

func (m *MemorySentLog) Seen(ctx context.Context, key SentKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sent[key]
	return ok, nil
}

func (m *MemorySentLog) Mark(ctx context.Context, key SentKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[key] = struct{}{}
	return nil
}

// PGSentLog stores the log in the reminders_sent table.
type PGSentLog struct {
	DB *sql.DB
}

// NewPGSentLog constructs a PGSentLog.
func NewPGSentLog(db *sql.DB) *PGSentLog {
	return &PGSentLog{DB: db}
}

func (p *PGSentLog) Seen(ctx context.Context, key SentKey) (bool, error) {
	var exists bool
	err := p.DB.QueryRowContext(ctx, `SELECT EXISTS (
SELECT 1 FROM reminders_sent WHERE document_id = $1 AND expiry_date = $2 AND threshold_days = $3
)`, key.DocumentID, key.ExpiryDate, key.Threshold).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reminder: %w", err)
	}
	return exists, nil
}

func (p *PGSentLog) Mark(ctx context.Context, key SentKey) error {
	_, err := p.DB.ExecContext(ctx, `INSERT INTO reminders_sent (document_id, expiry_date, threshold_days)
VALUES ($1, $2, $3)
ON CONFLICT (document_id, expiry_date, threshold_days) DO NOTHING`, key.DocumentID, key.ExpiryDate, key.Threshold)
	if err != nil {
		return fmt.Errorf("mark reminder: %w", err)
	}
	return nil
}

var (
	_ SentLog = (*MemorySentLog)(nil)
	_ SentLog = (*PGSentLog)(nil)
)
