// Package sequence issues gap-free invoice numbers from a persisted
// per-fiscal-year counter.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medbill/medbill/internal/shared"
)

// DBTX is the slice of pgx that Next needs; both a pool and a transaction
// satisfy it. Inside createBill the billing transaction is passed so the
// counter advance commits or rolls back with the bill.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sequence mirrors one row of invoice_sequences.
type Sequence struct {
	Prefix     string    `json:"prefix"`
	FiscalYear string    `json:"fiscal_year"`
	CurrentNo  int64     `json:"current_no"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FiscalYearCode returns the Indian fiscal-year code for t, e.g. a date
// in June 2025 yields "2526" (FY April 2025 - March 2026).
func FiscalYearCode(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%02d%02d", start%100, (start+1)%100)
}

// Format renders an invoice number as {prefix}-{fiscalYearCode}{padded}.
func Format(prefix, fiscalYear string, n int64) string {
	return fmt.Sprintf("%s-%s%05d", prefix, fiscalYear, n)
}

// Next advances the fiscal-year counter by exactly one and returns the
// formatted invoice number. The UPDATE takes a row lock, so concurrent
// callers serialize on the counter row and every issued number is unique
// and gap-free. A missing counter row is fatal: Next never invents a
// starting value.
func Next(ctx context.Context, db DBTX, now time.Time) (string, error) {
	fy := FiscalYearCode(now)

	var prefix string
	var current int64
	err := db.QueryRow(ctx, `UPDATE invoice_sequences SET current_no = current_no + 1, updated_at = NOW() WHERE fiscal_year = $1 RETURNING prefix, current_no`, fy).Scan(&prefix, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.NewErrorf(shared.KindSequenceCorrupted, "invoice counter for fiscal year %s is missing", fy)
		}
		return "", fmt.Errorf("sequence: advance counter: %w", err)
	}

	return Format(prefix, fy, current), nil
}

// Current reads the counter without advancing it.
func Current(ctx context.Context, db DBTX, now time.Time) (Sequence, error) {
	fy := FiscalYearCode(now)

	var seq Sequence
	err := db.QueryRow(ctx, `SELECT prefix, fiscal_year, current_no, updated_at FROM invoice_sequences WHERE fiscal_year = $1`, fy).Scan(&seq.Prefix, &seq.FiscalYear, &seq.CurrentNo, &seq.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sequence{}, shared.NewErrorf(shared.KindSequenceCorrupted, "invoice counter for fiscal year %s is missing", fy)
		}
		return Sequence{}, fmt.Errorf("sequence: read counter: %w", err)
	}
	return seq, nil
}
