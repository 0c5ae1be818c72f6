package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/tax"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	GetBatch(ctx context.Context, id int64) (Batch, error)
	List(ctx context.Context, filter ListFilter) ([]BatchWithMedicine, int, error)
	Movements(ctx context.Context, batchID int64, limit int) ([]Movement, error)
	Expiring(ctx context.Context, withinDays int) ([]BatchWithMedicine, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates batch and movement operations outside billing.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ReceiveInput describes an inbound batch.
type ReceiveInput struct {
	MedicineID  int64
	BatchNo     string
	Quantity    int64
	UnitPrice   decimal.Decimal
	PricingMode tax.PricingMode
	TaxRate     decimal.Decimal
	ExpiryDate  time.Time
	ActorID     int64
	Note        string
}

// Receive creates a batch and credits its opening quantity as a RECEIPT
// movement, atomically.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (Batch, error) {
	if input.MedicineID == 0 {
		return Batch{}, shared.NewError(shared.KindValidation, "medicine is required")
	}
	if input.Quantity <= 0 {
		return Batch{}, shared.NewError(shared.KindValidation, "quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return Batch{}, shared.NewError(shared.KindValidation, "unit price cannot be negative")
	}
	if input.TaxRate.IsNegative() {
		return Batch{}, shared.NewError(shared.KindValidation, "tax rate cannot be negative")
	}
	if input.PricingMode != tax.PricingInclusive && input.PricingMode != tax.PricingExclusive {
		return Batch{}, shared.NewError(shared.KindValidation, "pricing mode must be INCLUSIVE or EXCLUSIVE")
	}
	if input.ExpiryDate.IsZero() {
		return Batch{}, shared.NewError(shared.KindValidation, "expiry date is required")
	}

	var batchID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, ledger TxLedger) error {
		id, err := ledger.InsertBatch(ctx, Batch{
			MedicineID:  input.MedicineID,
			BatchNo:     input.BatchNo,
			UnitPrice:   input.UnitPrice,
			PricingMode: input.PricingMode,
			TaxRate:     input.TaxRate,
			ExpiryDate:  input.ExpiryDate,
		})
		if err != nil {
			return err
		}
		batchID = id
		_, err = ledger.ApplyDelta(ctx, id, input.Quantity, Movement{
			Kind:    MovementReceipt,
			ActorID: input.ActorID,
			Note:    input.Note,
			RefID:   uuid.NewString(),
		})
		return err
	})
	if err != nil {
		return Batch{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "stock:receive",
			Entity:   "batch",
			EntityID: fmt.Sprintf("%d", batchID),
			Meta:     map[string]any{"medicine_id": input.MedicineID, "qty": input.Quantity},
		})
	}

	return s.repo.GetBatch(ctx, batchID)
}

// AdjustInput describes a manual correction.
type AdjustInput struct {
	BatchID int64
	Qty     int64
	ActorID int64
	Note    string
}

// Adjust applies a signed manual correction. A negative adjustment can
// never drive the batch quantity below zero.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Batch, error) {
	if input.BatchID == 0 {
		return Batch{}, shared.NewError(shared.KindValidation, "batch is required")
	}
	if input.Qty == 0 {
		return Batch{}, shared.NewError(shared.KindValidation, "adjustment quantity cannot be zero")
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, ledger TxLedger) error {
		batch, err := ledger.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if input.Qty < 0 && batch.Quantity+input.Qty < 0 {
			return shared.NewErrorf(shared.KindInsufficientStock, "batch %d holds %d units, cannot remove %d", batch.ID, batch.Quantity, -input.Qty).
				WithMeta(map[string]any{"batch_id": batch.ID, "available": batch.Quantity, "requested": -input.Qty})
		}
		_, err = ledger.ApplyDelta(ctx, input.BatchID, input.Qty, Movement{
			Kind:    MovementAdjust,
			ActorID: input.ActorID,
			Note:    input.Note,
			RefID:   uuid.NewString(),
		})
		return err
	})
	if err != nil {
		return Batch{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "stock:adjust",
			Entity:   "batch",
			EntityID: fmt.Sprintf("%d", input.BatchID),
			Meta:     map[string]any{"qty": input.Qty, "note": input.Note},
		})
	}

	return s.repo.GetBatch(ctx, input.BatchID)
}

// Get returns one batch.
func (s *Service) Get(ctx context.Context, id int64) (Batch, error) {
	return s.repo.GetBatch(ctx, id)
}

// List returns batches matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]BatchWithMedicine, int, error) {
	return s.repo.List(ctx, filter)
}

// Movements returns a batch's movement history.
func (s *Service) Movements(ctx context.Context, batchID int64, limit int) ([]Movement, error) {
	return s.repo.Movements(ctx, batchID, limit)
}

// Expiring lists non-empty batches expiring within the window.
func (s *Service) Expiring(ctx context.Context, withinDays int) ([]BatchWithMedicine, error) {
	if withinDays <= 0 {
		withinDays = 30
	}
	return s.repo.Expiring(ctx, withinDays)
}
