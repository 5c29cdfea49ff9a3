package documents

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"compliance-backend/internal/compliance"
)

func documentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "driver_id", "company_id", "type", "storage_key", "file_name", "content_type", "size_bytes",
		"document_number", "issued_date", "expiry_date", "raw_status", "notes", "fields", "created_at", "updated_at",
	})
}

func TestPGRepoGetScansNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := documentRows().AddRow(
		"doc-1", "drv-1", "co-1", "License", "co-1/drv-1/k.pdf", "k.pdf", "application/pdf", int64(10),
		nil, nil, expiry, "ACTIVE", "", []byte(`{"class":"A"}`), now, now,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents\nWHERE company_id = $1 AND id = $2")).
		WithArgs("co-1", "doc-1").
		WillReturnRows(rows)

	doc, err := (&PGRepo{DB: db}).Get(context.Background(), "co-1", "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.DocumentNumber != nil || doc.IssuedDate != nil {
		t.Fatalf("expected nil optional fields, got %+v", doc)
	}
	if doc.ExpiryDate == nil || !doc.ExpiryDate.Equal(expiry) {
		t.Fatalf("unexpected expiry %v", doc.ExpiryDate)
	}
	if doc.RawStatus != compliance.RawActive || doc.Fields["class"] != "A" {
		t.Fatalf("unexpected doc %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetMissingIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("FROM documents").WithArgs("co-1", "missing").WillReturnRows(documentRows())

	if _, err := (&PGRepo{DB: db}).Get(context.Background(), "co-1", "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoUpdateNoRowsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE documents SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err = (&PGRepo{DB: db}).Update(context.Background(), Document{ID: "doc-1", CompanyID: "co-1", RawStatus: compliance.RawPending})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListExpiringBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cutoff := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	rows := documentRows().AddRow(
		"doc-1", "drv-1", "co-1", "Medical", "k", "k.pdf", "", int64(0),
		"M-1", now, cutoff, "ACTIVE", "note", []byte(`{}`), now, now,
	)
	mock.ExpectQuery("expiry_date IS NOT NULL AND expiry_date <= \\$1").WithArgs(cutoff).WillReturnRows(rows)

	docs, err := (&PGRepo{DB: db}).ListExpiringBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ListExpiringBefore: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentNumber == nil || *docs[0].DocumentNumber != "M-1" {
		t.Fatalf("unexpected docs %+v", docs)
	}
}
