package medicines

import (
	"context"

	"github.com/medbill/medbill/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Medicine, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Medicine, error) {
	if id <= 0 {
		return Medicine{}, shared.NewError(shared.KindValidation, "invalid medicine ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, medicine Medicine) (Medicine, error) {
	if err := s.validate(medicine); err != nil {
		return Medicine{}, err
	}
	return s.repo.Create(ctx, medicine)
}

func (s *Service) Update(ctx context.Context, id int64, medicine Medicine) error {
	if id <= 0 {
		return shared.NewError(shared.KindValidation, "invalid medicine ID")
	}
	if err := s.validate(medicine); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, medicine)
}

// CountActive returns how many medicines are marked active.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx)
}

// LowStock lists medicines at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	return s.repo.LowStock(ctx)
}
