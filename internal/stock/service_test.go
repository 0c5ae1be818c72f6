package stock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/tax"
)

type memoryRepo struct {
	batches   map[int64]*Batch
	movements []Movement
	nextID    int64
}

type memoryLedger struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{batches: make(map[int64]*Batch)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	return fn(ctx, &memoryLedger{repo: r})
}

func (r *memoryRepo) GetBatch(ctx context.Context, id int64) (Batch, error) {
	if b, ok := r.batches[id]; ok {
		return *b, nil
	}
	return Batch{}, shared.NewErrorf(shared.KindStockNotFound, "batch %d not found", id)
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]BatchWithMedicine, int, error) {
	return nil, 0, nil
}

func (r *memoryRepo) Movements(ctx context.Context, batchID int64, limit int) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.BatchID == batchID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryRepo) Expiring(ctx context.Context, withinDays int) ([]BatchWithMedicine, error) {
	return nil, nil
}

func (l *memoryLedger) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	l.repo.nextID++
	batch.ID = l.repo.nextID
	l.repo.batches[batch.ID] = &batch
	return batch.ID, nil
}

func (l *memoryLedger) GetBatchForUpdate(ctx context.Context, id int64) (Batch, error) {
	return l.repo.GetBatch(ctx, id)
}

func (l *memoryLedger) ApplyDelta(ctx context.Context, batchID, delta int64, mv Movement) (int64, error) {
	b, ok := l.repo.batches[batchID]
	if !ok {
		return 0, shared.NewErrorf(shared.KindStockNotFound, "batch %d not found", batchID)
	}
	if b.Quantity+delta < 0 {
		return 0, shared.NewErrorf(shared.KindInsufficientStock, "batch %d cannot absorb delta %d", batchID, delta)
	}
	b.Quantity += delta
	mv.BatchID = batchID
	mv.Qty = delta
	l.repo.movements = append(l.repo.movements, mv)
	return b.Quantity, nil
}

func validReceive() ReceiveInput {
	return ReceiveInput{
		MedicineID:  1,
		BatchNo:     "B-100",
		Quantity:    100,
		UnitPrice:   decimal.RequireFromString("10.00"),
		PricingMode: tax.PricingInclusive,
		TaxRate:     decimal.RequireFromString("12"),
		ExpiryDate:  time.Now().AddDate(1, 0, 0),
		ActorID:     7,
	}
}

func TestReceiveCreatesBatchWithReceiptMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	batch, err := svc.Receive(context.Background(), validReceive())
	require.NoError(t, err)
	require.Equal(t, int64(100), batch.Quantity)

	movements, err := repo.Movements(context.Background(), batch.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, MovementReceipt, movements[0].Kind)
	require.Equal(t, int64(100), movements[0].Qty)
}

func TestReceiveRejectsBadInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	input := validReceive()
	input.Quantity = 0
	_, err := svc.Receive(ctx, input)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	input = validReceive()
	input.PricingMode = "SOMETHING"
	_, err = svc.Receive(ctx, input)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	input = validReceive()
	input.UnitPrice = decimal.RequireFromString("-1")
	_, err = svc.Receive(ctx, input)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestAdjustCannotGoNegative(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	batch, err := svc.Receive(ctx, validReceive())
	require.NoError(t, err)

	_, err = svc.Adjust(ctx, AdjustInput{BatchID: batch.ID, Qty: -150, ActorID: 7})
	require.Equal(t, shared.KindInsufficientStock, shared.KindOf(err))

	// Quantity unchanged after the failed adjustment.
	got, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), got.Quantity)

	adjusted, err := svc.Adjust(ctx, AdjustInput{BatchID: batch.ID, Qty: -40, ActorID: 7, Note: "breakage"})
	require.NoError(t, err)
	require.Equal(t, int64(60), adjusted.Quantity)
}

func TestBatchExpired(t *testing.T) {
	now := time.Date(2025, time.August, 15, 10, 0, 0, 0, time.UTC)

	b := Batch{ExpiryDate: time.Date(2025, time.August, 14, 0, 0, 0, 0, time.UTC)}
	require.True(t, b.Expired(now))

	// The expiry date itself is still sellable.
	b.ExpiryDate = time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
	require.False(t, b.Expired(now))

	b.ExpiryDate = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.False(t, b.Expired(now))
}
