package credits

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps balances in process memory.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	entries  map[string][]Entry
}

// NewMemoryLedger constructs an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int),
		entries:  make(map[string][]Entry),
	}
}

func (l *MemoryLedger) Balance(ctx context.Context, companyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[companyID], nil
}

func (l *MemoryLedger) TryDebit(ctx context.Context, companyID string, amount int, reason string) (DebitResult, error) {
	if amount <= 0 {
		return DebitResult{}, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return DebitResult{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[companyID]
	if bal < amount {
		return DebitResult{OK: false, NewBalance: bal}, nil
	}
	bal -= amount
	l.balances[companyID] = bal
	l.record(companyID, EntryDebit, amount, reason, bal)
	return DebitResult{OK: true, NewBalance: bal}, nil
}

func (l *MemoryLedger) Credit(ctx context.Context, companyID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[companyID] + amount
	l.balances[companyID] = bal
	l.record(companyID, EntryCredit, amount, reason, bal)
	return bal, nil
}

// Entries returns the audit trail for a company, oldest first.
func (l *MemoryLedger) Entries(companyID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries[companyID]))
	copy(out, l.entries[companyID])
	return out
}

func (l *MemoryLedger) record(companyID string, kind EntryKind, amount int, reason string, after int) {
	l.entries[companyID] = append(l.entries[companyID], Entry{
		CompanyID:    companyID,
		Kind:         kind,
		Amount:       amount,
		Reason:       reason,
		BalanceAfter: after,
		CreatedAt:    time.Now().UTC(),
	})
}

var _ Ledger = (*MemoryLedger)(nil)
