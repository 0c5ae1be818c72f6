package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/tax"
)

// PaymentMode tags how a bill was settled.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "CASH"
	PaymentOnline PaymentMode = "ONLINE"
	PaymentCredit PaymentMode = "CREDIT"
	PaymentSplit  PaymentMode = "SPLIT"
)

// Bill is one finalized or cancelled sale. Totals are immutable once the
// bill exists; flipping Cancelled is the only permitted mutation.
type Bill struct {
	ID             int64            `json:"id"`
	InvoiceNo      string           `json:"invoice_no"`
	BillDate       time.Time        `json:"bill_date"`
	CustomerID     *int64           `json:"customer_id,omitempty"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountKind   tax.DiscountKind `json:"discount_kind,omitempty"`
	DiscountValue  decimal.Decimal  `json:"discount_value"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	CGST           decimal.Decimal  `json:"cgst"`
	SGST           decimal.Decimal  `json:"sgst"`
	GrandTotal     decimal.Decimal  `json:"grand_total"`
	RoundOff       decimal.Decimal  `json:"round_off"`
	FinalAmount    decimal.Decimal  `json:"final_amount"`
	PaymentMode    PaymentMode      `json:"payment_mode"`
	CashAmount     decimal.Decimal  `json:"cash_amount"`
	OnlineAmount   decimal.Decimal  `json:"online_amount"`
	CreditAmount   decimal.Decimal  `json:"credit_amount"`
	ItemCount      int              `json:"item_count"`
	Cancelled      bool             `json:"cancelled"`
	CancelledBy    *int64           `json:"cancelled_by,omitempty"`
	CancelledAt    *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason   *string          `json:"cancel_reason,omitempty"`
	CreatedBy      int64            `json:"created_by"`
	CreatedAt      time.Time        `json:"created_at"`
	Items          []BillItem       `json:"items,omitempty"`
}

// BillItem is one batch/quantity pair within a bill. Price, pricing mode
// and tax rate are snapshots taken at sale time and are never re-derived
// from the batch, whose values may change later.
type BillItem struct {
	ID             int64           `json:"id"`
	BillID         int64           `json:"bill_id"`
	BatchID        int64           `json:"batch_id"`
	MedicineID     int64           `json:"medicine_id"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	PricingMode    tax.PricingMode `json:"pricing_mode"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Taxable        decimal.Decimal `json:"taxable"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	Total          decimal.Decimal `json:"total"`
	ScheduleH      bool            `json:"schedule_h"`
}

// Prescription is the compliance record stored for each Schedule H line.
type Prescription struct {
	ID            int64     `json:"id"`
	BillID        int64     `json:"bill_id"`
	BillItemID    int64     `json:"bill_item_id"`
	PatientName   string    `json:"patient_name"`
	PatientAge    int       `json:"patient_age"`
	PatientGender string    `json:"patient_gender"`
	DoctorName    string    `json:"doctor_name"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

// DaySummary aggregates one day's sales by payment attribution.
type DaySummary struct {
	Date           string          `json:"date"`
	BillCount      int             `json:"bill_count"`
	CancelledCount int             `json:"cancelled_count"`
	Total          decimal.Decimal `json:"total"`
	Cash           decimal.Decimal `json:"cash"`
	Online         decimal.Decimal `json:"online"`
	Credit         decimal.Decimal `json:"credit"`
}

// ListBillsRequest narrows bill listings.
type ListBillsRequest struct {
	CustomerID       *int64
	DateFrom         *time.Time
	DateTo           *time.Time
	IncludeCancelled bool
	Limit            int
	Offset           int
}
