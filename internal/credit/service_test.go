package credit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medbill/medbill/internal/shared"
)

type memoryRepo struct {
	accounts map[int64]*Account
	entries  []Entry
	nextID   int64
}

type memoryLedger struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]*Account)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return fn(ctx, &memoryLedger{repo: r})
}

func (r *memoryRepo) Statement(ctx context.Context, customerID int64, limit int) ([]Entry, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) Account(ctx context.Context, customerID int64) (Account, error) {
	if acc, ok := r.accounts[customerID]; ok {
		return *acc, nil
	}
	return Account{}, shared.NewErrorf(shared.KindNotFound, "customer %d not found", customerID)
}

func (l *memoryLedger) GetAccountForUpdate(ctx context.Context, customerID int64) (Account, error) {
	return l.repo.Account(ctx, customerID)
}

func (l *memoryLedger) Append(ctx context.Context, entry Entry) (decimal.Decimal, error) {
	acc, ok := l.repo.accounts[entry.CustomerID]
	if !ok {
		return decimal.Zero, shared.NewErrorf(shared.KindNotFound, "customer %d not found", entry.CustomerID)
	}
	acc.Balance = acc.Balance.Add(entry.Amount)
	l.repo.nextID++
	entry.ID = l.repo.nextID
	entry.BalanceAfter = acc.Balance
	l.repo.entries = append(l.repo.entries, entry)
	return acc.Balance, nil
}

func TestRecordPaymentLowersBalance(t *testing.T) {
	repo := newMemoryRepo()
	repo.accounts[1] = &Account{ID: 1, Name: "Asha", CreditLimit: decimal.RequireFromString("5000"), Balance: decimal.RequireFromString("1200")}
	svc := NewService(repo, nil)

	balance, err := svc.RecordPayment(context.Background(), 1, decimal.RequireFromString("700"), 9, "cash payment")
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("500")))

	entries, err := repo.Statement(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, EntryPayment, entries[0].Kind)
	require.True(t, entries[0].Amount.Equal(decimal.RequireFromString("-700")))
	require.True(t, entries[0].BalanceAfter.Equal(balance))
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryRepo()
	repo.accounts[1] = &Account{ID: 1, Balance: decimal.RequireFromString("300")}
	svc := NewService(repo, nil)

	_, err := svc.RecordPayment(context.Background(), 1, decimal.RequireFromString("500"), 9, "")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
	require.Empty(t, repo.entries)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, 0, decimal.RequireFromString("100"), 9, "")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.RecordPayment(ctx, 1, decimal.Zero, 9, "")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestLedgerSumMatchesBalance(t *testing.T) {
	repo := newMemoryRepo()
	repo.accounts[1] = &Account{ID: 1, Balance: decimal.RequireFromString("900")}
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, 1, decimal.RequireFromString("400"), 9, "")
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, 1, decimal.RequireFromString("200"), 9, "")
	require.NoError(t, err)

	sum := decimal.RequireFromString("900")
	for _, e := range repo.entries {
		sum = sum.Add(e.Amount)
	}
	acc, err := repo.Account(ctx, 1)
	require.NoError(t, err)
	require.True(t, sum.Equal(acc.Balance))
}
