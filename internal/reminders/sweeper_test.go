package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-backend/internal/companies"
	"compliance-backend/internal/compliance"
	"compliance-backend/internal/documents"
	"compliance-backend/internal/queue"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type fakeCompanies map[string][]int

func (f fakeCompanies) Get(ctx context.Context, companyID string) (companies.Company, error) {
	days, ok := f[companyID]
	if !ok {
		return companies.Company{}, errors.New("company lookup failed")
	}
	return companies.Company{ID: companyID, ReminderDays: days}, nil
}

type failingQueue struct{}

func (failingQueue) Send(context.Context, queue.Message) error { return errors.New("queue down") }

func doc(id, company string, raw compliance.RawStatus, daysLeft int) documents.Document {
	exp := fixedNow.Add(time.Duration(daysLeft) * 24 * time.Hour)
	return documents.Document{ID: id, CompanyID: company, DriverID: "drv-" + id, Type: "License", RawStatus: raw, ExpiryDate: &exp, CreatedAt: fixedNow}
}

func newSweeper(t *testing.T, docs ...documents.Document) (*Sweeper, *queue.MemoryClient) {
	t.Helper()
	repo := documents.NewMemoryRepo()
	for _, d := range docs {
		require.NoError(t, repo.Create(context.Background(), d))
	}
	q := queue.NewMemoryClient()
	return &Sweeper{
		Documents: repo,
		Companies: fakeCompanies{"co-1": {30, 7}},
		Sent:      NewMemorySentLog(),
		Queue:     q,
		Now:       func() time.Time { return fixedNow },
	}, q
}

func TestSweepPublishesOncePerThreshold(t *testing.T) {
	s, q := newSweeper(t,
		doc("soon", "co-1", compliance.RawActive, 20),
		doc("urgent", "co-1", compliance.RawActive, 5),
		doc("gone", "co-1", compliance.RawActive, -3),
		doc("later", "co-1", compliance.RawActive, 90),
		doc("unreviewed", "co-1", compliance.RawPending, 5),
	)

	rep, err := s.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Checked)
	assert.Equal(t, 3, rep.Sent)

	byDoc := map[string]queue.Message{}
	for _, m := range q.Messages() {
		byDoc[m.DocumentID] = m
	}
	assert.Equal(t, 30, byDoc["soon"].ThresholdDays)
	assert.Equal(t, 7, byDoc["urgent"].ThresholdDays)
	assert.Equal(t, 0, byDoc["gone"].ThresholdDays)
	assert.Equal(t, "EXPIRED", byDoc["gone"].Status)
	assert.NotContains(t, byDoc, "later")
	assert.NotContains(t, byDoc, "unreviewed")

	rep, err = s.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Sent)
	assert.Len(t, q.Messages(), 3)

	// Crossing into the next threshold sends again.
	s.Now = func() time.Time { return fixedNow.Add(14 * 24 * time.Hour) }
	rep, err = s.Sweep(t.Context())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rep.Sent, 1)
	var sevenDay bool
	for _, m := range q.Messages() {
		if m.DocumentID == "soon" && m.ThresholdDays == 7 {
			sevenDay = true
		}
	}
	assert.True(t, sevenDay)
}

func TestSweepIsolatesFailures(t *testing.T) {
	s, _ := newSweeper(t,
		doc("a", "co-1", compliance.RawActive, 5),
		doc("b", "co-unknown", compliance.RawActive, 5),
	)
	s.Queue = failingQueue{}

	rep, err := s.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Failed)

	seen, err := s.Sent.Seen(t.Context(), SentKey{DocumentID: "a", ExpiryDate: "2026-10-06", Threshold: 7})
	require.NoError(t, err)
	assert.False(t, seen, "unsent reminders must be retried next sweep")
}

func TestPGSentLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM reminders_sent WHERE document_id = \$1 AND expiry_date = \$2 AND threshold_days = \$3 \)`).
		WithArgs("doc-1", "2027-03-01", 7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO reminders_sent \(document_id, expiry_date, threshold_days\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(document_id, expiry_date, threshold_days\) DO NOTHING`).
		WithArgs("doc-1", "2027-03-01", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	log := NewPGSentLog(db)
	key := SentKey{DocumentID: "doc-1", ExpiryDate: "2027-03-01", Threshold: 7}
	seen, err := log.Seen(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, seen)
	require.NoError(t, log.Mark(context.Background(), key))
	require.NoError(t, mock.ExpectationsWereMet())
}
