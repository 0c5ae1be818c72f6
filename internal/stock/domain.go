package stock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/tax"
)

// MovementKind enumerates supported stock movements.
type MovementKind string

const (
	// MovementSale debits a batch when a bill is finalized.
	MovementSale MovementKind = "SALE"
	// MovementReversal credits a batch back on bill cancellation.
	MovementReversal MovementKind = "REVERSAL"
	// MovementReceipt credits a batch on inbound stock.
	MovementReceipt MovementKind = "RECEIPT"
	// MovementAdjust records manual corrections.
	MovementAdjust MovementKind = "ADJUST"
)

// Batch is a priced, dated lot of one medicine. Quantity is held in the
// smallest sellable unit and only ever changes through signed-delta
// movements so every change traces back to a bill or an adjustment.
type Batch struct {
	ID          int64           `json:"id"`
	MedicineID  int64           `json:"medicine_id"`
	BatchNo     string          `json:"batch_no"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PricingMode tax.PricingMode `json:"pricing_mode"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	ExpiryDate  time.Time       `json:"expiry_date"`
	ScheduleH   bool            `json:"schedule_h"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Expired reports whether the batch may no longer be sold on the given
// day. The expiry date itself is still sellable.
func (b Batch) Expired(on time.Time) bool {
	y, m, d := on.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, on.Location())
	return b.ExpiryDate.Before(today)
}

// BatchWithMedicine joins display fields for listings.
type BatchWithMedicine struct {
	Batch
	MedicineName string `json:"medicine_name"`
	GenericName  string `json:"generic_name"`
	Unit         string `json:"unit"`
}

// Movement is one append-only signed quantity delta against a batch.
type Movement struct {
	ID        int64        `json:"id"`
	BatchID   int64        `json:"batch_id"`
	Kind      MovementKind `json:"kind"`
	Qty       int64        `json:"qty"`
	BillID    *int64       `json:"bill_id,omitempty"`
	ActorID   int64        `json:"actor_id"`
	Note      string       `json:"note,omitempty"`
	RefID     string       `json:"ref_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// ListFilter narrows batch listings.
type ListFilter struct {
	MedicineID     *int64
	Search         string
	IncludeExpired bool
	Limit          int
	Offset         int
}
