package credit

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	Statement(ctx context.Context, customerID int64, limit int) ([]Entry, error)
	Account(ctx context.Context, customerID int64) (Account, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles credit-ledger operations outside billing. The limit
// check on credit sales belongs to the billing orchestrator; this service
// only records movements that lower the balance.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// RecordPayment appends a PAYMENT entry for a customer paying down dues
// and returns the new balance. Payments above the outstanding balance are
// rejected so the ledger never records an advance.
func (s *Service) RecordPayment(ctx context.Context, customerID int64, amount decimal.Decimal, actorID int64, note string) (decimal.Decimal, error) {
	if customerID == 0 {
		return decimal.Zero, shared.NewError(shared.KindValidation, "customer is required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewError(shared.KindValidation, "payment amount must be positive")
	}

	var balance decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, ledger TxLedger) error {
		acc, err := ledger.GetAccountForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(acc.Balance) {
			return shared.NewErrorf(shared.KindValidation, "payment %s exceeds outstanding balance %s", amount, acc.Balance).
				WithMeta(map[string]any{"balance": acc.Balance.String(), "payment": amount.String()})
		}
		balance, err = ledger.Append(ctx, Entry{
			CustomerID: customerID,
			Kind:       EntryPayment,
			Amount:     amount.Neg(),
			Note:       note,
		})
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "credit:payment",
			Entity:   "customer",
			EntityID: fmt.Sprintf("%d", customerID),
			Meta:     map[string]any{"amount": amount.String(), "balance": balance.String()},
		})
	}
	return balance, nil
}

// Statement returns a customer's account and recent ledger entries.
func (s *Service) Statement(ctx context.Context, customerID int64, limit int) (Account, []Entry, error) {
	acc, err := s.repo.Account(ctx, customerID)
	if err != nil {
		return Account{}, nil, err
	}
	entries, err := s.repo.Statement(ctx, customerID, limit)
	if err != nil {
		return Account{}, nil, err
	}
	return acc, entries, nil
}
