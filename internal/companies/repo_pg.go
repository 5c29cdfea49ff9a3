package companies

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

func (r *PGRepo) GetCompany(ctx context.Context, id string) (Company, error) {
	const query = `
SELECT id, name, driver_limit, reminder_days, created_at
FROM companies
WHERE id = $1`
	var c Company
	var days []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.DriverLimit, &days, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, ErrNotFound
		}
		return Company{}, err
	}
	if len(days) > 0 {
		if err := json.Unmarshal(days, &c.ReminderDays); err != nil {
			return Company{}, fmt.Errorf("decode reminder_days: %w", err)
		}
	}
	return c, nil
}

func (r *PGRepo) CreateCompanyIfAbsent(ctx context.Context, c Company) (bool, error) {
	days, err := json.Marshal(nonNilInts(c.ReminderDays))
	if err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx, `
INSERT INTO companies (id, name, driver_limit, reminder_days, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`, c.ID, c.Name, c.DriverLimit, days, c.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepo) UpdateSettings(ctx context.Context, id string, driverLimit int, reminderDays []int) error {
	days, err := json.Marshal(nonNilInts(reminderDays))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE companies SET driver_limit = $2, reminder_days = $3 WHERE id = $1`, id, driverLimit, days)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *PGRepo) ListTypes(ctx context.Context, companyID string) ([]DocumentType, error) {
	const query = `
SELECT id, company_id, name, active, sort_order, fields, created_at
FROM document_types
WHERE company_id = $1
ORDER BY sort_order, name`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetType(ctx context.Context, companyID, id string) (DocumentType, error) {
	const query = `
SELECT id, company_id, name, active, sort_order, fields, created_at
FROM document_types
WHERE company_id = $1 AND id = $2`
	t, err := scanType(r.DB.QueryRowContext(ctx, query, companyID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentType{}, ErrNotFound
	}
	return t, err
}

func (r *PGRepo) CreateType(ctx context.Context, t DocumentType) error {
	fields, err := json.Marshal(nonNilFields(t.Fields))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
INSERT INTO document_types (id, company_id, name, active, sort_order, fields, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.CompanyID, t.Name, t.Active, t.SortOrder, fields, t.CreatedAt)
	return mapUnique(err)
}

func (r *PGRepo) UpdateType(ctx context.Context, t DocumentType) error {
	fields, err := json.Marshal(nonNilFields(t.Fields))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE document_types SET name = $3, active = $4, sort_order = $5, fields = $6
WHERE company_id = $1 AND id = $2`,
		t.CompanyID, t.ID, t.Name, t.Active, t.SortOrder, fields)
	if err != nil {
		return mapUnique(err)
	}
	return expectOneRow(res)
}

func (r *PGRepo) DeleteType(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `
DELETE FROM document_types WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanType(row rowScanner) (DocumentType, error) {
	var t DocumentType
	var fields []byte
	if err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Active, &t.SortOrder, &fields, &t.CreatedAt); err != nil {
		return DocumentType{}, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &t.Fields); err != nil {
			return DocumentType{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return t, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateName
	}
	return err
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilFields(v []FieldDef) []FieldDef {
	if v == nil {
		return []FieldDef{}
	}
	return v
}

var _ Repo = (*PGRepo)(nil)
