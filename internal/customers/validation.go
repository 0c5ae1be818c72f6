package customers

import (
	"strings"

	"github.com/medbill/medbill/internal/shared"
)

func (s *Service) validate(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewError(shared.KindValidation, "customer name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return shared.NewError(shared.KindValidation, "customer phone is required")
	}
	if c.CreditLimit.IsNegative() {
		return shared.NewError(shared.KindValidation, "credit limit cannot be negative")
	}
	return nil
}
