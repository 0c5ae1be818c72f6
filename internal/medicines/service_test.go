package medicines

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medbill/medbill/internal/shared"
)

type memoryRepo struct {
	medicines map[int64]Medicine
	lowStock  []LowStockEntry
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{medicines: make(map[int64]Medicine)}
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Medicine, int, error) {
	var out []Medicine
	for _, m := range r.medicines {
		out = append(out, m)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Medicine, error) {
	m, ok := r.medicines[id]
	if !ok {
		return Medicine{}, shared.NewErrorf(shared.KindNotFound, "medicine %d not found", id)
	}
	return m, nil
}

func (r *memoryRepo) Create(ctx context.Context, medicine Medicine) (Medicine, error) {
	r.nextID++
	medicine.ID = r.nextID
	r.medicines[medicine.ID] = medicine
	return medicine, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, medicine Medicine) error {
	if _, ok := r.medicines[id]; !ok {
		return shared.NewErrorf(shared.KindNotFound, "medicine %d not found", id)
	}
	medicine.ID = id
	r.medicines[id] = medicine
	return nil
}

func (r *memoryRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	for _, m := range r.medicines {
		if m.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	return r.lowStock, nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Medicine{Unit: "strip"})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.Create(ctx, Medicine{Name: "Paracetamol 500"})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.Create(ctx, Medicine{Name: "Paracetamol 500", Unit: "strip", ReorderLevel: -1})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	created, err := svc.Create(ctx, Medicine{Name: "Paracetamol 500", Unit: "strip", IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestCountActive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, Medicine{Name: "Paracetamol 500", Unit: "strip", IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Medicine{Name: "Discontinued syrup", Unit: "bottle"})
	require.NoError(t, err)

	n, err := svc.CountActive(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
