package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateWithinLimitStopsAtLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM companies WHERE id = \\$1 FOR UPDATE").
		WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("co-1"))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM drivers").
		WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	created, err := (&PGRepo{DB: db}).CreateWithinLimit(context.Background(), Driver{ID: "d-1", CompanyID: "co-1"}, 3)
	if err != nil || created {
		t.Fatalf("expected refusal without error, got created=%v err=%v", created, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateWithinLimitInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	d := Driver{ID: "d-1", CompanyID: "co-1", FirstName: "Ana", LastName: "Diaz", Email: "a@x.io", CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("co-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("co-1"))
	mock.ExpectQuery("SELECT count").WithArgs("co-1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO drivers").
		WithArgs("d-1", "co-1", "Ana", "Diaz", "a@x.io", "", "", "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := (&PGRepo{DB: db}).CreateWithinLimit(context.Background(), d, 3)
	if err != nil || !created {
		t.Fatalf("expected insert, got created=%v err=%v", created, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
