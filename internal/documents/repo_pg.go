package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"compliance-backend/internal/compliance"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, driver_id, company_id, type, storage_key, file_name, content_type, size_bytes,
document_number, issued_date, expiry_date, raw_status, notes, fields, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    driver_id,
    company_id,
    type,
    storage_key,
    file_name,
    content_type,
    size_bytes,
    document_number,
    issued_date,
    expiry_date,
    raw_status,
    notes,
    fields,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	fields, err := encodeFields(doc.Fields)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.DriverID,
		doc.CompanyID,
		doc.Type,
		doc.Key,
		doc.FileName,
		doc.ContentType,
		doc.Size,
		nullString(doc.DocumentNumber),
		nullTime(doc.IssuedDate),
		nullTime(doc.ExpiryDate),
		string(doc.RawStatus),
		doc.Notes,
		fields,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get fetches a document by ID within a company.
func (r *PGRepo) Get(ctx context.Context, companyID, id string) (Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE company_id = $1 AND id = $2`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByDriver lists a driver's documents, oldest first.
func (r *PGRepo) ListByDriver(ctx context.Context, companyID, driverID string) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE company_id = $1 AND driver_id = $2
ORDER BY created_at, id`
	return r.list(ctx, query, companyID, driverID)
}

// Update overwrites the editable columns of a document.
func (r *PGRepo) Update(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents SET
    type = $3,
    document_number = $4,
    issued_date = $5,
    expiry_date = $6,
    raw_status = $7,
    notes = $8,
    fields = $9,
    updated_at = $10
WHERE company_id = $1 AND id = $2`

	fields, err := encodeFields(doc.Fields)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(
		ctx,
		query,
		doc.CompanyID,
		doc.ID,
		doc.Type,
		nullString(doc.DocumentNumber),
		nullTime(doc.IssuedDate),
		nullTime(doc.ExpiryDate),
		string(doc.RawStatus),
		doc.Notes,
		fields,
		doc.UpdatedAt,
	)
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

// DeleteByDriver removes a driver's documents. Deleting the driver row
// cascades the same way.
func (r *PGRepo) DeleteByDriver(ctx context.Context, companyID, driverID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE company_id = $1 AND driver_id = $2`, companyID, driverID)
	return err
}

// ListExpiringBefore lists documents with an expiry date on or before cutoff.
func (r *PGRepo) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE expiry_date IS NOT NULL AND expiry_date <= $1
ORDER BY created_at, id`
	return r.list(ctx, query, cutoff)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var docNumber sql.NullString
	var issued sql.NullTime
	var expiry sql.NullTime
	var rawStatus string
	var fields []byte
	err := row.Scan(
		&doc.ID,
		&doc.DriverID,
		&doc.CompanyID,
		&doc.Type,
		&doc.Key,
		&doc.FileName,
		&doc.ContentType,
		&doc.Size,
		&docNumber,
		&issued,
		&expiry,
		&rawStatus,
		&doc.Notes,
		&fields,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if docNumber.Valid {
		doc.DocumentNumber = &docNumber.String
	}
	if issued.Valid {
		t := issued.Time.UTC()
		doc.IssuedDate = &t
	}
	if expiry.Valid {
		t := expiry.Time.UTC()
		doc.ExpiryDate = &t
	}
	status, ok := compliance.ParseRawStatus(rawStatus)
	if !ok {
		status = compliance.RawPending
	}
	doc.RawStatus = status
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return Document{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return doc, nil
}

func encodeFields(fields map[string]string) ([]byte, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	return json.Marshal(fields)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
