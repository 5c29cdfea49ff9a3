package credits

import (
	"context"
	"fmt"

	"compliance-backend/internal/shared/metrics"
)

// Service wraps a Ledger with the company-facing operations.
type Service struct {
	Ledger Ledger
}

// NewService constructs a Service.
func NewService(ledger Ledger) *Service {
	return &Service{Ledger: ledger}
}

// Balance returns the company's current credits.
func (s *Service) Balance(ctx context.Context, companyID string) (int, error) {
	bal, err := s.Ledger.Balance(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}
	return bal, nil
}

// Require fails with ErrInsufficient unless the balance covers n.
func (s *Service) Require(ctx context.Context, companyID string, n int) (int, error) {
	bal, err := s.Balance(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if bal < n {
		return bal, ErrInsufficient
	}
	return bal, nil
}

// Debit takes amount credits if available. OK=false leaves the balance untouched.
func (s *Service) Debit(ctx context.Context, companyID string, amount int, reason string) (DebitResult, error) {
	res, err := s.Ledger.TryDebit(ctx, companyID, amount, reason)
	if err != nil {
		return DebitResult{}, err
	}
	if res.OK {
		metrics.AddCreditsDebited(amount)
	} else {
		metrics.IncDebitRejected()
	}
	return res, nil
}

// Grant adds credits, e.g. on company creation or a purchase.
func (s *Service) Grant(ctx context.Context, companyID string, amount int, reason string) (int, error) {
	return s.Ledger.Credit(ctx, companyID, amount, reason)
}
