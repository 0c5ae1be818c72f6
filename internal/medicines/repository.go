package medicines

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbill/medbill/internal/shared"
)

// Repository persists the medicine master catalogue.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Medicine, int, error)
	Get(ctx context.Context, id int64) (Medicine, error)
	Create(ctx context.Context, medicine Medicine) (Medicine, error)
	Update(ctx context.Context, id int64, medicine Medicine) error
	CountActive(ctx context.Context) (int64, error)
	LowStock(ctx context.Context) ([]LowStockEntry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const medicineColumns = `id, name, generic_name, manufacturer, hsn_code, category, drug_type, schedule_h, pack_size, unit, reorder_level, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Medicine, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 0

	if filter.Search != "" {
		argPos++
		where += ` AND (name ILIKE $` + strconv.Itoa(argPos) + ` OR generic_name ILIKE $` + strconv.Itoa(argPos) + `)`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Category != "" {
		argPos++
		where += ` AND category = $` + strconv.Itoa(argPos)
		args = append(args, filter.Category)
	}
	if filter.ActiveOnly {
		where += ` AND is_active`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM medicines`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("medicines: count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + medicineColumns + ` FROM medicines` + where + ` ORDER BY name LIMIT $` + strconv.Itoa(argPos+1) + ` OFFSET $` + strconv.Itoa(argPos+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("medicines: list: %w", err)
	}
	defer rows.Close()

	var meds []Medicine
	for rows.Next() {
		var m Medicine
		if err := scanMedicine(rows, &m); err != nil {
			return nil, 0, err
		}
		meds = append(meds, m)
	}
	return meds, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Medicine, error) {
	var m Medicine
	row := r.db.QueryRow(ctx, `SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)
	if err := scanMedicine(row, &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Medicine{}, shared.NewErrorf(shared.KindNotFound, "medicine %d not found", id)
		}
		return Medicine{}, fmt.Errorf("medicines: get: %w", err)
	}
	return m, nil
}

func (r *repository) Create(ctx context.Context, m Medicine) (Medicine, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO medicines (name, generic_name, manufacturer, hsn_code, category, drug_type, schedule_h, pack_size, unit, reorder_level, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()) RETURNING `+medicineColumns,
		m.Name, m.GenericName, m.Manufacturer, m.HSNCode, m.Category, m.DrugType, m.ScheduleH, m.PackSize, m.Unit, m.ReorderLevel, m.IsActive)
	if err := scanMedicine(row, &m); err != nil {
		return Medicine{}, fmt.Errorf("medicines: create: %w", err)
	}
	return m, nil
}

func (r *repository) Update(ctx context.Context, id int64, m Medicine) error {
	tag, err := r.db.Exec(ctx, `UPDATE medicines SET name = $2, generic_name = $3, manufacturer = $4, hsn_code = $5, category = $6, drug_type = $7, schedule_h = $8, pack_size = $9, unit = $10, reorder_level = $11, is_active = $12, updated_at = NOW() WHERE id = $1`,
		id, m.Name, m.GenericName, m.Manufacturer, m.HSNCode, m.Category, m.DrugType, m.ScheduleH, m.PackSize, m.Unit, m.ReorderLevel, m.IsActive)
	if err != nil {
		return fmt.Errorf("medicines: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewErrorf(shared.KindNotFound, "medicine %d not found", id)
	}
	return nil
}

func (r *repository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM medicines WHERE is_active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("medicines: count active: %w", err)
	}
	return count, nil
}

// LowStock lists active medicines whose summed batch quantity is at or
// below their reorder level.
func (r *repository) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT m.id, m.name, m.unit, m.reorder_level, COALESCE(SUM(b.quantity), 0) AS on_hand
FROM medicines m
LEFT JOIN batches b ON b.medicine_id = m.id AND b.expiry_date >= CURRENT_DATE
WHERE m.is_active AND m.reorder_level > 0
GROUP BY m.id, m.name, m.unit, m.reorder_level
HAVING COALESCE(SUM(b.quantity), 0) <= m.reorder_level
ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("medicines: low stock: %w", err)
	}
	defer rows.Close()

	var entries []LowStockEntry
	for rows.Next() {
		var e LowStockEntry
		if err := rows.Scan(&e.MedicineID, &e.Name, &e.Unit, &e.ReorderLevel, &e.OnHand); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanMedicine(row pgx.Row, m *Medicine) error {
	return row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Manufacturer, &m.HSNCode, &m.Category, &m.DrugType, &m.ScheduleH, &m.PackSize, &m.Unit, &m.ReorderLevel, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
}
