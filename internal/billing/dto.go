package billing

type createBillRequest struct {
	CustomerID    *int64            `json:"customer_id,omitempty"`
	Lines         []billLineRequest `json:"lines" validate:"required,min=1,dive"`
	DiscountKind  string            `json:"discount_kind" validate:"omitempty,oneof=PERCENT FLAT"`
	DiscountValue string            `json:"discount_value"`
	Payment       paymentRequest    `json:"payment" validate:"required"`
	Patient       *patientRequest   `json:"patient,omitempty"`
}

type billLineRequest struct {
	BatchID  int64  `json:"batch_id" validate:"required,gt=0"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
	Discount string `json:"discount"`
}

type paymentRequest struct {
	Mode         string `json:"mode" validate:"required,oneof=CASH ONLINE CREDIT SPLIT"`
	CashAmount   string `json:"cash_amount"`
	OnlineAmount string `json:"online_amount"`
}

type patientRequest struct {
	Name         string `json:"name" validate:"max=120"`
	Age          int    `json:"age" validate:"gte=0,lte=150"`
	Gender       string `json:"gender" validate:"max=20"`
	DoctorName   string `json:"doctor_name" validate:"max=120"`
	Prescription string `json:"prescription" validate:"max=2000"`
}

type cancelBillRequest struct {
	Reason string `json:"reason" validate:"required,max=300"`
}
