package stock

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbill/medbill/internal/platform/db"
	"github.com/medbill/medbill/internal/shared"
)

const batchColumns = `b.id, b.medicine_id, b.batch_no, b.quantity, b.unit_price, b.pricing_mode, b.tax_rate, b.expiry_date, m.schedule_h, b.created_at, b.updated_at`

// DBTX is satisfied by both the pool and a pgx transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository persists batches and stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxLedger exposes the transactional operations used by the service.
type TxLedger interface {
	InsertBatch(ctx context.Context, batch Batch) (int64, error)
	GetBatchForUpdate(ctx context.Context, id int64) (Batch, error)
	ApplyDelta(ctx context.Context, batchID, delta int64, mv Movement) (int64, error)
}

type txLedger struct {
	tx pgx.Tx
}

// WithTx runs fn inside one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txLedger{tx: tx})
	})
}

func (l *txLedger) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	return InsertBatch(ctx, l.tx, batch)
}

func (l *txLedger) GetBatchForUpdate(ctx context.Context, id int64) (Batch, error) {
	return GetBatchForUpdate(ctx, l.tx, id)
}

func (l *txLedger) ApplyDelta(ctx context.Context, batchID, delta int64, mv Movement) (int64, error) {
	return ApplyDelta(ctx, l.tx, batchID, delta, mv)
}

// GetBatch loads one batch by id.
func (r *Repository) GetBatch(ctx context.Context, id int64) (Batch, error) {
	var b Batch
	err := r.pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches b JOIN medicines m ON b.medicine_id = m.id WHERE b.id = $1`, id).Scan(
		&b.ID, &b.MedicineID, &b.BatchNo, &b.Quantity, &b.UnitPrice, &b.PricingMode, &b.TaxRate, &b.ExpiryDate, &b.ScheduleH, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, shared.NewErrorf(shared.KindStockNotFound, "batch %d not found", id)
		}
		return Batch{}, fmt.Errorf("stock: get batch: %w", err)
	}
	return b, nil
}

// List returns batches matching the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]BatchWithMedicine, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 0

	if filter.MedicineID != nil {
		argPos++
		where += ` AND b.medicine_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.MedicineID)
	}
	if filter.Search != "" {
		argPos++
		where += ` AND (m.name ILIKE $` + strconv.Itoa(argPos) + ` OR m.generic_name ILIKE $` + strconv.Itoa(argPos) + ` OR b.batch_no ILIKE $` + strconv.Itoa(argPos) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if !filter.IncludeExpired {
		where += ` AND b.expiry_date >= CURRENT_DATE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM batches b JOIN medicines m ON b.medicine_id = m.id`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("stock: count batches: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + batchColumns + `, m.name, m.generic_name, m.unit FROM batches b JOIN medicines m ON b.medicine_id = m.id` + where +
		` ORDER BY b.expiry_date, b.id LIMIT $` + strconv.Itoa(argPos+1) + ` OFFSET $` + strconv.Itoa(argPos+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("stock: list batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchWithMedicine
	for rows.Next() {
		var b BatchWithMedicine
		if err := rows.Scan(&b.ID, &b.MedicineID, &b.BatchNo, &b.Quantity, &b.UnitPrice, &b.PricingMode, &b.TaxRate, &b.ExpiryDate, &b.ScheduleH, &b.CreatedAt, &b.UpdatedAt, &b.MedicineName, &b.GenericName, &b.Unit); err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

// Movements returns the movement history of one batch, newest first.
func (r *Repository) Movements(ctx context.Context, batchID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, batch_id, kind, qty, bill_id, actor_id, note, ref_id, created_at FROM stock_movements WHERE batch_id = $1 ORDER BY id DESC LIMIT $2`, batchID, limit)
	if err != nil {
		return nil, fmt.Errorf("stock: list movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.BatchID, &m.Kind, &m.Qty, &m.BillID, &m.ActorID, &m.Note, &m.RefID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Expiring returns non-empty batches whose expiry date falls within the
// given number of days (including already expired ones).
func (r *Repository) Expiring(ctx context.Context, withinDays int) ([]BatchWithMedicine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+batchColumns+`, m.name, m.generic_name, m.unit FROM batches b JOIN medicines m ON b.medicine_id = m.id WHERE b.quantity > 0 AND b.expiry_date <= CURRENT_DATE + $1::int ORDER BY b.expiry_date`, withinDays)
	if err != nil {
		return nil, fmt.Errorf("stock: expiring batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchWithMedicine
	for rows.Next() {
		var b BatchWithMedicine
		if err := rows.Scan(&b.ID, &b.MedicineID, &b.BatchNo, &b.Quantity, &b.UnitPrice, &b.PricingMode, &b.TaxRate, &b.ExpiryDate, &b.ScheduleH, &b.CreatedAt, &b.UpdatedAt, &b.MedicineName, &b.GenericName, &b.Unit); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// InsertBatch creates a batch row. Tx-bound so a receipt movement can be
// recorded in the same transaction.
func InsertBatch(ctx context.Context, dbtx DBTX, batch Batch) (int64, error) {
	var id int64
	err := dbtx.QueryRow(ctx, `INSERT INTO batches (medicine_id, batch_no, quantity, unit_price, pricing_mode, tax_rate, expiry_date, created_at, updated_at)
VALUES ($1, $2, 0, $3, $4, $5, $6, NOW(), NOW()) RETURNING id`,
		batch.MedicineID, batch.BatchNo, batch.UnitPrice, batch.PricingMode, batch.TaxRate, batch.ExpiryDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("stock: insert batch: %w", err)
	}
	return id, nil
}

// GetBatchForUpdate loads a batch and locks its row until the enclosing
// transaction ends. Billing uses this so the stock check and the later
// decrement cannot interleave with another sale of the same batch.
func GetBatchForUpdate(ctx context.Context, dbtx DBTX, id int64) (Batch, error) {
	var b Batch
	err := dbtx.QueryRow(ctx, `SELECT `+batchColumns+` FROM batches b JOIN medicines m ON b.medicine_id = m.id WHERE b.id = $1 FOR UPDATE OF b`, id).Scan(
		&b.ID, &b.MedicineID, &b.BatchNo, &b.Quantity, &b.UnitPrice, &b.PricingMode, &b.TaxRate, &b.ExpiryDate, &b.ScheduleH, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, shared.NewErrorf(shared.KindStockNotFound, "batch %d not found", id)
		}
		return Batch{}, fmt.Errorf("stock: lock batch: %w", err)
	}
	return b, nil
}

// ApplyDelta adds a signed quantity delta to a batch and records the
// movement, returning the new quantity. The guarded UPDATE refuses any
// delta that would drive the quantity negative, as a backstop behind the
// validation done under the row lock.
func ApplyDelta(ctx context.Context, dbtx DBTX, batchID, delta int64, mv Movement) (int64, error) {
	var newQty int64
	err := dbtx.QueryRow(ctx, `UPDATE batches SET quantity = quantity + $2, updated_at = NOW() WHERE id = $1 AND quantity + $2 >= 0 RETURNING quantity`, batchID, delta).Scan(&newQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.NewErrorf(shared.KindInsufficientStock, "batch %d cannot absorb delta %d", batchID, delta)
		}
		return 0, fmt.Errorf("stock: apply delta: %w", err)
	}

	_, err = dbtx.Exec(ctx, `INSERT INTO stock_movements (batch_id, kind, qty, bill_id, actor_id, note, ref_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		batchID, mv.Kind, delta, mv.BillID, mv.ActorID, mv.Note, mv.RefID)
	if err != nil {
		return 0, fmt.Errorf("stock: record movement: %w", err)
	}
	return newQty, nil
}
