package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbill/medbill/internal/shared"
)

// Repository persists customers.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	GetByPhone(ctx context.Context, phone string) (Customer, error)
	Create(ctx context.Context, customer Customer) (Customer, error)
	Update(ctx context.Context, id int64, customer Customer) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, name, phone, address, credit_limit, balance, created_at, updated_at`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 0

	if filter.Search != "" {
		argPos++
		where += ` AND (name ILIKE $` + strconv.Itoa(argPos) + ` OR phone ILIKE $` + strconv.Itoa(argPos) + `)`
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY name LIMIT $` + strconv.Itoa(argPos+1) + ` OFFSET $` + strconv.Itoa(argPos+2)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreditLimit, &c.Balance, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreditLimit, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.NewErrorf(shared.KindNotFound, "customer %d not found", id)
		}
		return Customer{}, fmt.Errorf("customers: get: %w", err)
	}
	return c, nil
}

func (r *repository) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone).Scan(
		&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreditLimit, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.NewErrorf(shared.KindNotFound, "customer with phone %s not found", phone)
		}
		return Customer{}, fmt.Errorf("customers: get by phone: %w", err)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, customer Customer) (Customer, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO customers (name, phone, address, credit_limit, balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, NOW(), NOW()) RETURNING `+customerColumns,
		customer.Name, customer.Phone, customer.Address, customer.CreditLimit).Scan(
		&customer.ID, &customer.Name, &customer.Phone, &customer.Address, &customer.CreditLimit, &customer.Balance, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		return Customer{}, fmt.Errorf("customers: create: %w", err)
	}
	return customer, nil
}

func (r *repository) Update(ctx context.Context, id int64, customer Customer) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET name = $2, phone = $3, address = $4, credit_limit = $5, updated_at = NOW() WHERE id = $1`,
		id, customer.Name, customer.Phone, customer.Address, customer.CreditLimit)
	if err != nil {
		return fmt.Errorf("customers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewErrorf(shared.KindNotFound, "customer %d not found", id)
	}
	return nil
}
