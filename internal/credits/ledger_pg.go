package credits

import (
	"context"
	"database/sql"
	"errors"
)

// PGLedger stores balances in Postgres. The debit is a single conditional
// UPDATE so the floor guard is enforced by the database under concurrency.
type PGLedger struct {
	DB *sql.DB
}

// NewPGLedger constructs a Postgres-backed ledger.
func NewPGLedger(db *sql.DB) *PGLedger {
	return &PGLedger{DB: db}
}

func (l *PGLedger) Balance(ctx context.Context, companyID string) (int, error) {
	var bal int
	err := l.DB.QueryRowContext(ctx, `
SELECT balance FROM credit_balances WHERE company_id = $1`, companyID).Scan(&bal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return bal, nil
}

func (l *PGLedger) TryDebit(ctx context.Context, companyID string, amount int, reason string) (res DebitResult, err error) {
	if amount <= 0 {
		return DebitResult{}, ErrInvalidAmount
	}
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return DebitResult{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var bal int
	err = tx.QueryRowContext(ctx, `
UPDATE credit_balances SET balance = balance - $2, updated_at = now()
WHERE company_id = $1 AND balance >= $2
RETURNING balance`, companyID, amount).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		if err = tx.Rollback(); err != nil {
			return DebitResult{}, err
		}
		current, balErr := l.Balance(ctx, companyID)
		if balErr != nil {
			return DebitResult{}, balErr
		}
		return DebitResult{OK: false, NewBalance: current}, nil
	}
	if err != nil {
		return DebitResult{}, err
	}
	if err = insertEntry(ctx, tx, companyID, EntryDebit, amount, reason, bal); err != nil {
		return DebitResult{}, err
	}
	if err = tx.Commit(); err != nil {
		return DebitResult{}, err
	}
	return DebitResult{OK: true, NewBalance: bal}, nil
}

func (l *PGLedger) Credit(ctx context.Context, companyID string, amount int, reason string) (bal int, err error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = tx.QueryRowContext(ctx, `
INSERT INTO credit_balances (company_id, balance, updated_at) VALUES ($1, $2, now())
ON CONFLICT (company_id) DO UPDATE SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = now()
RETURNING balance`, companyID, amount).Scan(&bal)
	if err != nil {
		return 0, err
	}
	if err = insertEntry(ctx, tx, companyID, EntryCredit, amount, reason, bal); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return bal, nil
}

// Entries lists the most recent ledger movements for a company, newest first.
func (l *PGLedger) Entries(ctx context.Context, companyID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := l.DB.QueryContext(ctx, `
SELECT company_id, kind, amount, reason, balance_after, created_at
FROM credit_ledger_entries
WHERE company_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.CompanyID, &kind, &e.Amount, &e.Reason, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = EntryKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertEntry(ctx context.Context, tx *sql.Tx, companyID string, kind EntryKind, amount int, reason string, after int) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO credit_ledger_entries (company_id, kind, amount, reason, balance_after)
VALUES ($1, $2, $3, $4, $5)`, companyID, string(kind), amount, reason, after)
	return err
}

var _ Ledger = (*PGLedger)(nil)
