package credits

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoryLedgerConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	if _, err := ledger.Credit(ctx, "co-1", 10, "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.TryDebit(ctx, "co-1", 1, "ai_scan")
			if err != nil {
				t.Errorf("TryDebit: %v", err)
				return
			}
			if res.NewBalance < 0 {
				t.Errorf("negative balance %d", res.NewBalance)
			}
			if res.OK {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Fatalf("expected exactly 10 successful debits, got %d", ok)
	}
	bal, _ := ledger.Balance(ctx, "co-1")
	if bal != 0 {
		t.Fatalf("expected balance 0, got %d", bal)
	}
	debits := 0
	for _, e := range ledger.Entries("co-1") {
		if e.Kind == EntryDebit {
			debits++
		}
	}
	if debits != 10 {
		t.Fatalf("expected 10 debit entries, got %d", debits)
	}
}

func TestMemoryLedgerInsufficientIsNotAnError(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	_, _ = ledger.Credit(ctx, "co-1", 2, "seed")

	res, err := ledger.TryDebit(ctx, "co-1", 3, "ai_scan")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.OK || res.NewBalance != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMemoryLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	if _, err := ledger.TryDebit(ctx, "co-1", 0, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ledger.Credit(ctx, "co-1", -5, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMemoryLedgerIsolatesCompanies(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	_, _ = ledger.Credit(ctx, "co-1", 5, "seed")

	res, err := ledger.TryDebit(ctx, "co-2", 1, "ai_scan")
	if err != nil {
		t.Fatalf("TryDebit: %v", err)
	}
	if res.OK {
		t.Fatalf("expected co-2 debit to fail")
	}
	if bal, _ := ledger.Balance(ctx, "co-1"); bal != 5 {
		t.Fatalf("expected co-1 untouched, got %d", bal)
	}
}
