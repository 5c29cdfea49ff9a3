package queue

import (
	"context"
	"errors"
	"testing"
)

func TestDecodeMessageKeepsThreshold(t *testing.T) {
	payload := []byte(`{"kind":"expiry_reminder","companyId":"co-1","driverId":"drv-1","documentId":"doc-1","expiryDate":"2026-10-20","thresholdDays":30,"daysLeft":19,"status":"EXPIRING_SOON","version":1}`)

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.ThresholdDays != 30 || got.DaysLeft != 19 || got.Kind != KindExpiryReminder {
		t.Fatalf("unexpected message %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestMemoryClientRejectsInvalid(t *testing.T) {
	q := NewMemoryClient()
	if err := q.Send(context.Background(), Message{Kind: KindExpiryReminder}); !errors.Is(err, ErrMissingDocumentID) {
		t.Fatalf("expected ErrMissingDocumentID, got %v", err)
	}
	if err := q.Send(context.Background(), Message{DocumentID: "doc-1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if n := len(q.Messages()); n != 1 {
		t.Fatalf("expected 1 message, got %d", n)
	}
}
