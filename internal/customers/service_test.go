package customers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/medbill/medbill/internal/shared"
)

type memoryRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[int64]Customer)}
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, shared.NewErrorf(shared.KindNotFound, "customer %d not found", id)
	}
	return c, nil
}

func (r *memoryRepo) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	for _, c := range r.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return Customer{}, shared.NewError(shared.KindNotFound, "customer not found")
}

func (r *memoryRepo) Create(ctx context.Context, customer Customer) (Customer, error) {
	r.nextID++
	customer.ID = r.nextID
	r.customers[customer.ID] = customer
	return customer, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, customer Customer) error {
	if _, ok := r.customers[id]; !ok {
		return shared.NewErrorf(shared.KindNotFound, "customer %d not found", id)
	}
	customer.ID = id
	r.customers[id] = customer
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Customer{Phone: "9876543210"})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.Create(ctx, Customer{Name: "Asha Traders"})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	limit, _ := decimal.NewFromString("-1")
	_, err = svc.Create(ctx, Customer{Name: "Asha Traders", Phone: "9876543210", CreditLimit: limit})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	created, err := svc.Create(ctx, Customer{Name: "Asha Traders", Phone: "9876543210"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestGetByPhone(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Customer{Name: "Asha Traders", Phone: "9876543210"})
	require.NoError(t, err)

	found, err := svc.GetByPhone(ctx, "9876543210")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.GetByPhone(ctx, "")
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.GetByPhone(ctx, "0000000000")
	require.True(t, shared.IsKind(err, shared.KindNotFound))
}
