package drivers

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateWithinLimit locks the company row so concurrent creates for one
// company serialize on the count.
func (r *PGRepo) CreateWithinLimit(ctx context.Context, d Driver, limit int) (created bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil || !created {
			tx.Rollback()
		}
	}()

	var lockedID string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM companies WHERE id = $1 FOR UPDATE`, d.CompanyID).Scan(&lockedID); err != nil {
		return false, err
	}
	var count int
	if err = tx.QueryRowContext(ctx, `SELECT count(*) FROM drivers WHERE company_id = $1`, d.CompanyID).Scan(&count); err != nil {
		return false, err
	}
	if count >= limit {
		return false, nil
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO drivers (id, company_id, first_name, last_name, email, phone, location, employee_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.CompanyID, d.FirstName, d.LastName, d.Email, d.Phone, d.Location, d.EmployeeID, d.CreatedAt); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PGRepo) Get(ctx context.Context, companyID, id string) (Driver, error) {
	const query = `
SELECT id, company_id, first_name, last_name, email, phone, location, employee_id, created_at
FROM drivers
WHERE company_id = $1 AND id = $2`
	var d Driver
	err := r.DB.QueryRowContext(ctx, query, companyID, id).Scan(
		&d.ID, &d.CompanyID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Location, &d.EmployeeID, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Driver{}, ErrNotFound
		}
		return Driver{}, err
	}
	return d, nil
}

func (r *PGRepo) List(ctx context.Context, companyID string) ([]Driver, error) {
	const query = `
SELECT id, company_id, first_name, last_name, email, phone, location, employee_id, created_at
FROM drivers
WHERE company_id = $1
ORDER BY last_name, first_name`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Driver, 0)
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Location, &d.EmployeeID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes the driver; documents go with it via ON DELETE CASCADE.
func (r *PGRepo) Delete(ctx context.Context, companyID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM drivers WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
