package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer represents a customer entity. Balance is owned by the credit
// ledger: it only changes through ledger appends, never through this
// package's updates.
type Customer struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address,omitempty"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
