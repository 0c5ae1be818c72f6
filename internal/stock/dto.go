package stock

import "time"

type receiveBatchRequest struct {
	MedicineID  int64     `json:"medicine_id" validate:"required,gt=0"`
	BatchNo     string    `json:"batch_no" validate:"required,max=40"`
	Quantity    int64     `json:"quantity" validate:"required,gt=0"`
	UnitPrice   string    `json:"unit_price" validate:"required"`
	PricingMode string    `json:"pricing_mode" validate:"required,oneof=INCLUSIVE EXCLUSIVE"`
	TaxRate     string    `json:"tax_rate" validate:"required"`
	ExpiryDate  time.Time `json:"expiry_date" validate:"required"`
	Note        string    `json:"note" validate:"max=200"`
}

type adjustBatchRequest struct {
	Qty  int64  `json:"qty" validate:"required"`
	Note string `json:"note" validate:"max=200"`
}
