package medicines

import (
	"time"
)

// Medicine represents one entry of the medicine master catalogue.
// ScheduleH marks prescription-only drugs: selling a batch of a
// Schedule H medicine requires recorded patient and prescriber details.
type Medicine struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	GenericName  string    `json:"generic_name,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	HSNCode      string    `json:"hsn_code,omitempty"`
	Category     string    `json:"category,omitempty"`
	DrugType     string    `json:"drug_type,omitempty"`
	ScheduleH    bool      `json:"schedule_h"`
	PackSize     string    `json:"pack_size,omitempty"`
	Unit         string    `json:"unit"`
	ReorderLevel int64     `json:"reorder_level"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStockEntry reports a medicine whose total on-hand quantity fell to
// or below its reorder level.
type LowStockEntry struct {
	MedicineID   int64  `json:"medicine_id"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	ReorderLevel int64  `json:"reorder_level"`
	OnHand       int64  `json:"on_hand"`
}

// ListFilter narrows medicine listings.
type ListFilter struct {
	Search     string
	Category   string
	ActiveOnly bool
	Limit      int
	Offset     int
}
