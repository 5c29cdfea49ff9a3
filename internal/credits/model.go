package credits

import (
	"context"
	"time"
)

// EntryKind distinguishes ledger movements.
type EntryKind string

const (
	EntryDebit  EntryKind = "DEBIT"
	EntryCredit EntryKind = "CREDIT"
)

// Entry is one audited balance movement.
type Entry struct {
	CompanyID    string
	Kind         EntryKind
	Amount       int
	Reason       string
	BalanceAfter int
	CreatedAt    time.Time
}

// DebitResult reports the outcome of a conditional debit. Insufficient
// funds is OK=false, never an error.
type DebitResult struct {
	OK         bool `json:"ok"`
	NewBalance int  `json:"newBalance"`
}

// Ledger is the per-company credit balance. TryDebit must be atomic with
// respect to concurrent callers for the same company and never drive the
// balance below zero.
type Ledger interface {
	Balance(ctx context.Context, companyID string) (int, error)
	TryDebit(ctx context.Context, companyID string, amount int, reason string) (DebitResult, error)
	Credit(ctx context.Context, companyID string, amount int, reason string) (int, error)
}
