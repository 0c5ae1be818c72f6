package credit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/platform/db"
	"github.com/medbill/medbill/internal/shared"
)

// DBTX is satisfied by both the pool and a pgx transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository persists the credit ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxLedger exposes the transactional operations used by the service.
type TxLedger interface {
	GetAccountForUpdate(ctx context.Context, customerID int64) (Account, error)
	Append(ctx context.Context, entry Entry) (decimal.Decimal, error)
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

func (l *txLedger) GetAccountForUpdate(ctx context.Context, customerID int64) (Account, error) {
	return GetAccountForUpdate(ctx, l.tx, customerID)
}

func (l *txLedger) Append(ctx context.Context, entry Entry) (decimal.Decimal, error) {
	return Append(ctx, l.tx, entry)
}

// Statement returns a customer's ledger entries, newest first.
func (r *Repository) Statement(ctx context.Context, customerID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, bill_id, kind, amount, balance_after, note, created_at FROM credit_ledger WHERE customer_id = $1 ORDER BY id DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("credit: list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.BillID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Account reads a customer's balance and limit without locking.
func (r *Repository) Account(ctx context.Context, customerID int64) (Account, error) {
	return getAccount(ctx, r.pool, customerID, false)
}

// GetAccountForUpdate loads the customer's balance and limit under a row
// lock, serializing competing credit movements for that customer.
func GetAccountForUpdate(ctx context.Context, dbtx DBTX, customerID int64) (Account, error) {
	return getAccount(ctx, dbtx, customerID, true)
}

func getAccount(ctx context.Context, dbtx DBTX, customerID int64, forUpdate bool) (Account, error) {
	query := `SELECT id, name, credit_limit, balance FROM customers WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var acc Account
	err := dbtx.QueryRow(ctx, query, customerID).Scan(&acc.ID, &acc.Name, &acc.CreditLimit, &acc.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NewErrorf(shared.KindNotFound, "customer %d not found", customerID)
		}
		return Account{}, fmt.Errorf("credit: get account: %w", err)
	}
	return acc, nil
}

// Append records one balance movement and advances the denormalized
// customer balance in the same transaction, returning the new balance.
// The entry's BalanceAfter snapshot is taken from the updated balance so
// the two can never diverge.
func Append(ctx context.Context, dbtx DBTX, entry Entry) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := dbtx.QueryRow(ctx, `UPDATE customers SET balance = balance + $2, updated_at = NOW() WHERE id = $1 RETURNING balance`, entry.CustomerID, entry.Amount).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, shared.NewErrorf(shared.KindNotFound, "customer %d not found", entry.CustomerID)
		}
		return decimal.Zero, fmt.Errorf("credit: update balance: %w", err)
	}

	_, err = dbtx.Exec(ctx, `INSERT INTO credit_ledger (customer_id, bill_id, kind, amount, balance_after, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		entry.CustomerID, entry.BillID, entry.Kind, entry.Amount, balance, entry.Note)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit: append entry: %w", err)
	}
	return balance, nil
}
