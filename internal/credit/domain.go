package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind enumerates balance movements.
type EntryKind string

const (
	// EntrySale raises the balance when part of a bill is taken on credit.
	EntrySale EntryKind = "SALE"
	// EntryPayment lowers the balance when the customer pays dues.
	EntryPayment EntryKind = "PAYMENT"
	// EntryReversal negates a sale entry on bill cancellation.
	EntryReversal EntryKind = "REVERSAL"
)

// Entry is one immutable credit-ledger record. Amount is the signed
// balance delta; BalanceAfter snapshots the running balance at append
// time. Entries are never updated or deleted, so the sum of Amounts per
// customer always equals that customer's balance.
type Entry struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customer_id"`
	BillID       *int64          `json:"bill_id,omitempty"`
	Kind         EntryKind       `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Account is the slice of a customer that credit decisions need.
type Account struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Balance     decimal.Decimal `json:"balance"`
}
