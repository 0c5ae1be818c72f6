package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/medbill/medbill/internal/shared"
)

func TestFiscalYearCode(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC), "2526"},
		{time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC), "2526"},
		{time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC), "2526"},
		{time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), "2627"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, FiscalYearCode(c.date), c.date.String())
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "INV-252600042", Format("INV", "2526", 42))
	require.Equal(t, "INV-252612345", Format("INV", "2526", 12345))
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	row fakeRow
}

func (db fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.row
}

func TestNextMissingCounterIsFatal(t *testing.T) {
	db := fakeDB{row: fakeRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}}

	_, err := Next(context.Background(), db, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	require.Equal(t, shared.KindSequenceCorrupted, shared.KindOf(err))
}

func TestNextFormatsIssuedNumber(t *testing.T) {
	db := fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "INV"
		*dest[1].(*int64) = 7
		return nil
	}}}

	got, err := Next(context.Background(), db, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "INV-252600007", got)
}
