package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/medbill/medbill/internal/credit"
	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/stock"
	"github.com/medbill/medbill/internal/tax"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Bill, error)
	GetByInvoiceNo(ctx context.Context, invoiceNo string) (Bill, error)
	List(ctx context.Context, req ListBillsRequest) ([]Bill, int, error)
	DailySummary(ctx context.Context, date time.Time) (DaySummary, error)
}

// TxRepository exposes every write the orchestrator performs, all bound
// to one transaction: either the whole bill commits or nothing does.
type TxRepository interface {
	GetBatchForUpdate(ctx context.Context, id int64) (stock.Batch, error)
	ApplyStockDelta(ctx context.Context, batchID, delta int64, mv stock.Movement) error
	GetAccountForUpdate(ctx context.Context, customerID int64) (credit.Account, error)
	AppendCreditEntry(ctx context.Context, entry credit.Entry) (decimal.Decimal, error)
	NextInvoiceNumber(ctx context.Context, now time.Time) (string, error)
	InsertBill(ctx context.Context, bill Bill) (int64, error)
	InsertItem(ctx context.Context, item BillItem) (int64, error)
	InsertPrescription(ctx context.Context, p Prescription) error
	GetBillForUpdate(ctx context.Context, id int64) (Bill, error)
	MarkCancelled(ctx context.Context, id, actorID int64, reason string) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort reserves submission keys so a retried request cannot
// produce a second bill.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service is the billing transaction orchestrator.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	summaries   *SummaryCache
	summaryOnce singleflight.Group
}

// NewService builds Service. Audit, idempotency and summary cache are
// optional.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, summaries *SummaryCache) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, summaries: summaries}
}

// LineInput is one requested batch/quantity pair. Discount is a flat
// rupee amount applied to that line before tax.
type LineInput struct {
	BatchID  int64
	Quantity int64
	Discount decimal.Decimal
}

// PaymentInput is the requested settlement. Cash and Online are only
// read for SPLIT mode; single modes settle the full payable amount.
type PaymentInput struct {
	Mode   PaymentMode
	Cash   decimal.Decimal
	Online decimal.Decimal
}

// PatientInfo carries the compliance details required for Schedule H
// sales.
type PatientInfo struct {
	Name         string
	Age          int
	Gender       string
	DoctorName   string
	Prescription string
}

// CreateBillInput is a proposed sale.
type CreateBillInput struct {
	CustomerID     *int64
	Lines          []LineInput
	DiscountKind   tax.DiscountKind
	DiscountValue  decimal.Decimal
	Payment        PaymentInput
	Patient        *PatientInfo
	ActorID        int64
	IdempotencyKey string
}

// Create validates the proposed sale and persists the bill, its items,
// the stock debits and any credit-ledger entry as one atomic unit. Any
// validation failure aborts before a single write; any write failure
// rolls back all of them.
func (s *Service) Create(ctx context.Context, input CreateBillInput) (Bill, error) {
	if err := s.validateInput(input); err != nil {
		return Bill{}, err
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "billing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Bill{}, shared.NewErrorf(shared.KindDuplicateSubmission,
					"a bill with idempotency key %q was already submitted", input.IdempotencyKey)
			}
			return Bill{}, err
		}
		insertedKey = true
	}

	// Lock batches in ascending id order so concurrent bills touching
	// the same batches cannot deadlock.
	locking := make([]LineInput, len(input.Lines))
	copy(locking, input.Lines)
	sort.Slice(locking, func(i, j int) bool { return locking[i].BatchID < locking[j].BatchID })

	var billID int64
	var billDate time.Time
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		now := time.Now()
		billDate = now

		// Step 1: resolve and validate every batch under its row lock.
		batches := make(map[int64]stock.Batch, len(locking))
		for _, line := range locking {
			batch, err := repo.GetBatchForUpdate(ctx, line.BatchID)
			if err != nil {
				return err
			}
			if batch.Expired(now) {
				return shared.NewErrorf(shared.KindExpiredStock, "batch %s expired on %s", batch.BatchNo, batch.ExpiryDate.Format("2006-01-02")).
					WithMeta(map[string]any{"batch_id": batch.ID, "expiry_date": batch.ExpiryDate.Format("2006-01-02")})
			}
			if line.Quantity > batch.Quantity {
				return shared.NewErrorf(shared.KindInsufficientStock, "batch %s has %d units, requested %d (short by %d)",
					batch.BatchNo, batch.Quantity, line.Quantity, line.Quantity-batch.Quantity).
					WithMeta(map[string]any{
						"batch_id":  batch.ID,
						"available": batch.Quantity,
						"requested": line.Quantity,
						"shortfall": line.Quantity - batch.Quantity,
					})
			}
			batches[line.BatchID] = batch
		}

		// Step 2: compute totals, snapshotting price and tax per line.
		items := make([]BillItem, len(input.Lines))
		lineResults := make([]tax.LineResult, len(input.Lines))
		for i, line := range input.Lines {
			batch := batches[line.BatchID]
			result := tax.CalculateLine(batch.UnitPrice, line.Quantity, batch.TaxRate, batch.PricingMode, line.Discount)
			lineResults[i] = result
			items[i] = BillItem{
				BatchID:        batch.ID,
				MedicineID:     batch.MedicineID,
				Quantity:       line.Quantity,
				UnitPrice:      batch.UnitPrice,
				PricingMode:    batch.PricingMode,
				TaxRate:        batch.TaxRate,
				DiscountAmount: line.Discount,
				Taxable:        result.Taxable,
				CGST:           result.CGST,
				SGST:           result.SGST,
				Total:          result.Total,
				ScheduleH:      batch.ScheduleH,
			}
		}
		totals := tax.CalculateBill(lineResults, input.DiscountKind, input.DiscountValue)

		// Step 3: resolve the payment split.
		cash, online, creditAmt, err := resolvePayment(input.Payment, totals.FinalAmount)
		if err != nil {
			return err
		}

		// Step 4: enforce the credit limit before anything is written.
		if creditAmt.IsPositive() {
			if input.CustomerID == nil {
				return shared.NewError(shared.KindCustomerRequired, "a customer must be specified for credit sales")
			}
			account, err := repo.GetAccountForUpdate(ctx, *input.CustomerID)
			if err != nil {
				return err
			}
			wouldBe := account.Balance.Add(creditAmt)
			if wouldBe.GreaterThan(account.CreditLimit) {
				return shared.NewErrorf(shared.KindCreditLimitExceeded, "credit limit %s would be exceeded: balance %s + %s = %s",
					account.CreditLimit, account.Balance, creditAmt, wouldBe).
					WithMeta(map[string]any{
						"credit_limit":     account.CreditLimit.String(),
						"balance":          account.Balance.String(),
						"credit_amount":    creditAmt.String(),
						"would_be_balance": wouldBe.String(),
					})
			}
		}

		// Step 5: compliance gate for Schedule H lines.
		if err := checkPatientInfo(items, input.Patient); err != nil {
			return err
		}

		// Step 6: issue the invoice number.
		invoiceNo, err := repo.NextInvoiceNumber(ctx, now)
		if err != nil {
			return err
		}

		// Step 7: persist everything.
		bill := Bill{
			InvoiceNo:      invoiceNo,
			BillDate:       now,
			CustomerID:     input.CustomerID,
			Subtotal:       totals.Subtotal,
			DiscountKind:   input.DiscountKind,
			DiscountValue:  input.DiscountValue,
			DiscountAmount: totals.Discount,
			CGST:           totals.TotalCGST,
			SGST:           totals.TotalSGST,
			GrandTotal:     totals.GrandTotal,
			RoundOff:       totals.RoundOff,
			FinalAmount:    totals.FinalAmount,
			PaymentMode:    input.Payment.Mode,
			CashAmount:     cash,
			OnlineAmount:   online,
			CreditAmount:   creditAmt,
			ItemCount:      len(items),
			CreatedBy:      input.ActorID,
		}
		billID, err = repo.InsertBill(ctx, bill)
		if err != nil {
			return err
		}

		for i := range items {
			items[i].BillID = billID
			itemID, err := repo.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			if items[i].ScheduleH {
				err = repo.InsertPrescription(ctx, Prescription{
					BillID:        billID,
					BillItemID:    itemID,
					PatientName:   input.Patient.Name,
					PatientAge:    input.Patient.Age,
					PatientGender: input.Patient.Gender,
					DoctorName:    input.Patient.DoctorName,
					Text:          input.Patient.Prescription,
				})
				if err != nil {
					return err
				}
			}
		}

		for _, line := range locking {
			err := repo.ApplyStockDelta(ctx, line.BatchID, -line.Quantity, stock.Movement{
				Kind:    stock.MovementSale,
				BillID:  &billID,
				ActorID: input.ActorID,
				Note:    invoiceNo,
			})
			if err != nil {
				return err
			}
		}

		if creditAmt.IsPositive() {
			_, err := repo.AppendCreditEntry(ctx, credit.Entry{
				CustomerID: *input.CustomerID,
				BillID:     &billID,
				Kind:       credit.EntrySale,
				Amount:     creditAmt,
				Note:       invoiceNo,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Bill{}, err
	}

	if s.summaries != nil {
		_ = s.summaries.Invalidate(ctx, billDate)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "billing:create",
			Entity:   "bill",
			EntityID: fmt.Sprintf("%d", billID),
			Meta:     map[string]any{"items": len(input.Lines)},
		})
	}

	return s.repo.Get(ctx, billID)
}

// Cancel reverses a bill: stock comes back, any credit component is
// negated on the ledger, and the bill becomes terminally cancelled.
func (s *Service) Cancel(ctx context.Context, billID, actorID int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewError(shared.KindValidation, "a cancellation reason is required")
	}

	var billDate time.Time
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo TxRepository) error {
		bill, err := repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if bill.Cancelled {
			return shared.NewErrorf(shared.KindAlreadyCancelled, "bill %s is already cancelled", bill.InvoiceNo)
		}
		billDate = bill.BillDate

		items := make([]BillItem, len(bill.Items))
		copy(items, bill.Items)
		sort.Slice(items, func(i, j int) bool { return items[i].BatchID < items[j].BatchID })
		for _, item := range items {
			err := repo.ApplyStockDelta(ctx, item.BatchID, item.Quantity, stock.Movement{
				Kind:    stock.MovementReversal,
				BillID:  &billID,
				ActorID: actorID,
				Note:    reason,
			})
			if err != nil {
				return err
			}
		}

		if bill.CreditAmount.IsPositive() && bill.CustomerID != nil {
			_, err := repo.AppendCreditEntry(ctx, credit.Entry{
				CustomerID: *bill.CustomerID,
				BillID:     &billID,
				Kind:       credit.EntryReversal,
				Amount:     bill.CreditAmount.Neg(),
				Note:       reason,
			})
			if err != nil {
				return err
			}
		}

		return repo.MarkCancelled(ctx, billID, actorID, reason)
	})
	if err != nil {
		return err
	}

	if s.summaries != nil {
		_ = s.summaries.Invalidate(ctx, billDate)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "billing:cancel",
			Entity:   "bill",
			EntityID: fmt.Sprintf("%d", billID),
			Meta:     map[string]any{"reason": reason},
		})
	}
	return nil
}

// Get returns one bill with its items.
func (s *Service) Get(ctx context.Context, id int64) (Bill, error) {
	return s.repo.Get(ctx, id)
}

// GetByInvoiceNo returns one bill by its invoice number.
func (s *Service) GetByInvoiceNo(ctx context.Context, invoiceNo string) (Bill, error) {
	return s.repo.GetByInvoiceNo(ctx, invoiceNo)
}

// List returns bills matching the request.
func (s *Service) List(ctx context.Context, req ListBillsRequest) ([]Bill, int, error) {
	return s.repo.List(ctx, req)
}

// Summary aggregates one day's sales, served from the cache when warm.
// Concurrent cold-cache requests for the same day share one aggregation.
func (s *Service) Summary(ctx context.Context, date time.Time) (DaySummary, error) {
	if s.summaries != nil {
		if summary, ok := s.summaries.Get(ctx, date); ok {
			return summary, nil
		}
	}
	value, err, _ := s.summaryOnce.Do(date.Format("2006-01-02"), func() (any, error) {
		summary, err := s.repo.DailySummary(ctx, date)
		if err != nil {
			return nil, err
		}
		if s.summaries != nil {
			_ = s.summaries.Set(ctx, date, summary)
		}
		return summary, nil
	})
	if err != nil {
		return DaySummary{}, err
	}
	return value.(DaySummary), nil
}

func (s *Service) validateInput(input CreateBillInput) error {
	if len(input.Lines) == 0 {
		return shared.NewError(shared.KindValidation, "a bill needs at least one line")
	}
	seen := make(map[int64]bool, len(input.Lines))
	for _, line := range input.Lines {
		if line.BatchID <= 0 {
			return shared.NewError(shared.KindValidation, "every line needs a batch")
		}
		if line.Quantity <= 0 {
			return shared.NewErrorf(shared.KindValidation, "quantity for batch %d must be positive", line.BatchID)
		}
		if line.Discount.IsNegative() {
			return shared.NewErrorf(shared.KindValidation, "discount for batch %d cannot be negative", line.BatchID)
		}
		if seen[line.BatchID] {
			return shared.NewErrorf(shared.KindValidation, "batch %d appears on more than one line", line.BatchID)
		}
		seen[line.BatchID] = true
	}
	switch input.Payment.Mode {
	case PaymentCash, PaymentOnline, PaymentCredit:
	case PaymentSplit:
		if input.Payment.Cash.IsNegative() || input.Payment.Online.IsNegative() {
			return shared.NewError(shared.KindValidation, "split amounts cannot be negative")
		}
	default:
		return shared.NewErrorf(shared.KindValidation, "unknown payment mode %q", input.Payment.Mode)
	}
	if input.DiscountValue.IsNegative() {
		return shared.NewError(shared.KindValidation, "bill discount cannot be negative")
	}
	return nil
}

// resolvePayment attributes the payable amount across cash, online and
// credit. For SPLIT the remainder after cash and online goes to credit;
// a negative remainder is a validation failure, never silently clamped.
func resolvePayment(payment PaymentInput, final decimal.Decimal) (cash, online, creditAmt decimal.Decimal, err error) {
	switch payment.Mode {
	case PaymentCash:
		return final, decimal.Zero, decimal.Zero, nil
	case PaymentOnline:
		return decimal.Zero, final, decimal.Zero, nil
	case PaymentCredit:
		return decimal.Zero, decimal.Zero, final, nil
	case PaymentSplit:
		creditAmt = final.Sub(payment.Cash).Sub(payment.Online)
		if creditAmt.IsNegative() {
			return decimal.Zero, decimal.Zero, decimal.Zero, shared.NewErrorf(shared.KindValidation,
				"cash %s plus online %s exceeds payable amount %s", payment.Cash, payment.Online, final)
		}
		return payment.Cash, payment.Online, creditAmt, nil
	default:
		return decimal.Zero, decimal.Zero, decimal.Zero, shared.NewErrorf(shared.KindValidation, "unknown payment mode %q", payment.Mode)
	}
}

func checkPatientInfo(items []BillItem, patient *PatientInfo) error {
	controlled := false
	for _, item := range items {
		if item.ScheduleH {
			controlled = true
			break
		}
	}
	if !controlled {
		return nil
	}
	if patient == nil ||
		strings.TrimSpace(patient.Name) == "" ||
		patient.Age <= 0 ||
		strings.TrimSpace(patient.Gender) == "" ||
		strings.TrimSpace(patient.DoctorName) == "" ||
		strings.TrimSpace(patient.Prescription) == "" {
		return shared.NewError(shared.KindPatientInfoRequired, "Schedule H items require patient name, age, gender, doctor and prescription")
	}
	return nil
}
