package customers

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

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.NewError(shared.KindValidation, "invalid customer ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	if phone == "" {
		return Customer{}, shared.NewError(shared.KindValidation, "phone is required")
	}
	return s.repo.GetByPhone(ctx, phone)
}

func (s *Service) Create(ctx context.Context, customer Customer) (Customer, error) {
	if err := s.validate(customer); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, customer)
}

func (s *Service) Update(ctx context.Context, id int64, customer Customer) error {
	if id <= 0 {
		return shared.NewError(shared.KindValidation, "invalid customer ID")
	}
	if err := s.validate(customer); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, customer)
}
