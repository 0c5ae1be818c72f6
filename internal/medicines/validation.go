package medicines

import (
	"strings"

	"github.com/medbill/medbill/internal/shared"
)

func (s *Service) validate(m Medicine) error {
	if strings.TrimSpace(m.Name) == "" {
		return shared.NewError(shared.KindValidation, "medicine name is required")
	}
	if strings.TrimSpace(m.Unit) == "" {
		return shared.NewError(shared.KindValidation, "medicine unit is required")
	}
	if m.ReorderLevel < 0 {
		return shared.NewError(shared.KindValidation, "reorder level cannot be negative")
	}
	return nil
}
