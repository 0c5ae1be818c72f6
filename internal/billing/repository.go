package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/credit"
	"github.com/medbill/medbill/internal/platform/db"
	"github.com/medbill/medbill/internal/sequence"
	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/stock"
)

const billColumns = `id, invoice_no, bill_date, customer_id, subtotal, discount_kind, discount_value, discount_amount,
	cgst, sgst, grand_total, round_off, final_amount, payment_mode, cash_amount, online_amount, credit_amount,
	item_count, cancelled, cancelled_by, cancelled_at, cancel_reason, created_by, created_at`

const itemColumns = `id, bill_id, batch_id, medicine_id, quantity, unit_price, pricing_mode, tax_rate,
	discount_amount, taxable, cgst, sgst, total, schedule_h`

// Repository is the Postgres bill store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// txRepository composes the stock, credit and sequence writes over one
// shared transaction.
type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn inside a transaction spanning bills, batches, the
// credit ledger and the invoice counter.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (t *txRepository) GetBatchForUpdate(ctx context.Context, id int64) (stock.Batch, error) {
	return stock.GetBatchForUpdate(ctx, t.tx, id)
}

func (t *txRepository) ApplyStockDelta(ctx context.Context, batchID, delta int64, mv stock.Movement) error {
	_, err := stock.ApplyDelta(ctx, t.tx, batchID, delta, mv)
	return err
}

func (t *txRepository) GetAccountForUpdate(ctx context.Context, customerID int64) (credit.Account, error) {
	return credit.GetAccountForUpdate(ctx, t.tx, customerID)
}

func (t *txRepository) AppendCreditEntry(ctx context.Context, entry credit.Entry) (decimal.Decimal, error) {
	return credit.Append(ctx, t.tx, entry)
}

func (t *txRepository) NextInvoiceNumber(ctx context.Context, now time.Time) (string, error) {
	return sequence.Next(ctx, t.tx, now)
}

func (t *txRepository) InsertBill(ctx context.Context, bill Bill) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO bills (invoice_no, bill_date, customer_id, subtotal, discount_kind,
			discount_value, discount_amount, cgst, sgst, grand_total, round_off, final_amount, payment_mode,
			cash_amount, online_amount, credit_amount, item_count, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`,
		bill.InvoiceNo, bill.BillDate, bill.CustomerID, bill.Subtotal, string(bill.DiscountKind),
		bill.DiscountValue, bill.DiscountAmount, bill.CGST, bill.SGST, bill.GrandTotal, bill.RoundOff,
		bill.FinalAmount, string(bill.PaymentMode), bill.CashAmount, bill.OnlineAmount, bill.CreditAmount,
		bill.ItemCount, bill.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert bill: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertItem(ctx context.Context, item BillItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO bill_items (bill_id, batch_id, medicine_id, quantity, unit_price,
			pricing_mode, tax_rate, discount_amount, taxable, cgst, sgst, total, schedule_h)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		item.BillID, item.BatchID, item.MedicineID, item.Quantity, item.UnitPrice, string(item.PricingMode),
		item.TaxRate, item.DiscountAmount, item.Taxable, item.CGST, item.SGST, item.Total, item.ScheduleH,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert bill item: %w", err)
	}
	return id, nil
}

func (t *txRepository) InsertPrescription(ctx context.Context, p Prescription) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO prescriptions (bill_id, bill_item_id, patient_name, patient_age,
			patient_gender, doctor_name, text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.BillID, p.BillItemID, p.PatientName, p.PatientAge, p.PatientGender, p.DoctorName, p.Text)
	if err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (t *txRepository) GetBillForUpdate(ctx context.Context, id int64) (Bill, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 FOR UPDATE`, id)
	bill, err := scanBill(row)
	if err != nil {
		return Bill{}, err
	}
	bill.Items, err = loadItems(ctx, t.tx, id)
	if err != nil {
		return Bill{}, err
	}
	return bill, nil
}

func (t *txRepository) MarkCancelled(ctx context.Context, id, actorID int64, reason string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bills
		SET cancelled = TRUE, cancelled_by = $2, cancelled_at = NOW(), cancel_reason = $3
		WHERE id = $1 AND NOT cancelled`, id, actorID, reason)
	if err != nil {
		return fmt.Errorf("mark bill cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewErrorf(shared.KindAlreadyCancelled, "bill %d is already cancelled", id)
	}
	return nil
}

// Get returns one bill with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	return r.hydrate(ctx, row)
}

// GetByInvoiceNo returns one bill by its invoice number.
func (r *Repository) GetByInvoiceNo(ctx context.Context, invoiceNo string) (Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE invoice_no = $1`, invoiceNo)
	return r.hydrate(ctx, row)
}

func (r *Repository) hydrate(ctx context.Context, row pgx.Row) (Bill, error) {
	bill, err := scanBill(row)
	if err != nil {
		return Bill{}, err
	}
	bill.Items, err = loadItems(ctx, r.pool, bill.ID)
	if err != nil {
		return Bill{}, err
	}
	return bill, nil
}

// List returns bills matching the request, newest first, plus the total
// match count.
func (r *Repository) List(ctx context.Context, req ListBillsRequest) ([]Bill, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	idx := 1
	if req.CustomerID != nil {
		where += fmt.Sprintf(` AND customer_id = $%d`, idx)
		args = append(args, *req.CustomerID)
		idx++
	}
	if req.DateFrom != nil {
		where += fmt.Sprintf(` AND bill_date >= $%d`, idx)
		args = append(args, *req.DateFrom)
		idx++
	}
	if req.DateTo != nil {
		where += fmt.Sprintf(` AND bill_date < $%d`, idx)
		args = append(args, *req.DateTo)
		idx++
	}
	if !req.IncludeCancelled {
		where += ` AND NOT cancelled`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bills`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bills: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + billColumns + ` FROM bills` + where +
		fmt.Sprintf(` ORDER BY id DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	bills := []Bill{}
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	return bills, total, nil
}

// DailySummary aggregates the given day's bills. Cancelled bills are
// counted but excluded from the money columns.
func (r *Repository) DailySummary(ctx context.Context, date time.Time) (DaySummary, error) {
	day := date.Format("2006-01-02")
	summary := DaySummary{Date: day}
	err := r.pool.QueryRow(ctx, `SELECT
			COUNT(*) FILTER (WHERE NOT cancelled),
			COUNT(*) FILTER (WHERE cancelled),
			COALESCE(SUM(final_amount) FILTER (WHERE NOT cancelled), 0),
			COALESCE(SUM(cash_amount) FILTER (WHERE NOT cancelled), 0),
			COALESCE(SUM(online_amount) FILTER (WHERE NOT cancelled), 0),
			COALESCE(SUM(credit_amount) FILTER (WHERE NOT cancelled), 0)
		FROM bills WHERE bill_date::date = $1`, day,
	).Scan(&summary.BillCount, &summary.CancelledCount, &summary.Total, &summary.Cash, &summary.Online, &summary.Credit)
	if err != nil {
		return DaySummary{}, fmt.Errorf("daily summary: %w", err)
	}
	return summary, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, billID int64) ([]BillItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, fmt.Errorf("load bill items: %w", err)
	}
	defer rows.Close()

	items := []BillItem{}
	for rows.Next() {
		var item BillItem
		err := rows.Scan(&item.ID, &item.BillID, &item.BatchID, &item.MedicineID, &item.Quantity,
			&item.UnitPrice, &item.PricingMode, &item.TaxRate, &item.DiscountAmount, &item.Taxable,
			&item.CGST, &item.SGST, &item.Total, &item.ScheduleH)
		if err != nil {
			return nil, fmt.Errorf("scan bill item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load bill items: %w", err)
	}
	return items, nil
}

func scanBill(row pgx.Row) (Bill, error) {
	var bill Bill
	err := row.Scan(&bill.ID, &bill.InvoiceNo, &bill.BillDate, &bill.CustomerID, &bill.Subtotal,
		&bill.DiscountKind, &bill.DiscountValue, &bill.DiscountAmount, &bill.CGST, &bill.SGST,
		&bill.GrandTotal, &bill.RoundOff, &bill.FinalAmount, &bill.PaymentMode, &bill.CashAmount,
		&bill.OnlineAmount, &bill.CreditAmount, &bill.ItemCount, &bill.Cancelled, &bill.CancelledBy,
		&bill.CancelledAt, &bill.CancelReason, &bill.CreatedBy, &bill.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, shared.NewError(shared.KindNotFound, "bill not found")
	}
	if err != nil {
		return Bill{}, fmt.Errorf("scan bill: %w", err)
	}
	return bill, nil
}
