package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/tax"
)

// Handler wires HTTP endpoints for the billing module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the billing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/bills", h.List)
	r.Get("/bills/summary", h.Summary)
	r.Get("/bills/by-invoice/{invoiceNo}", h.ShowByInvoice)
	r.Get("/bills/{id}", h.Show)
	r.Post("/bills", h.Create)
	r.Post("/bills/{id}/cancel", h.Cancel)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.NewErrorf(shared.KindValidation, "invalid bill: %v", err))
		return
	}

	input, err := req.toInput()
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	input.ActorID = shared.ActorFromContext(r.Context())
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")

	bill, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create bill failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	h.logger.Info("bill created",
		slog.String("invoice_no", bill.InvoiceNo),
		slog.String("final_amount", bill.FinalAmount.String()),
		slog.Int("items", bill.ItemCount))
	shared.RespondJSON(w, http.StatusCreated, bill)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid bill id"))
		return
	}
	var req cancelBillRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "a cancellation reason is required"))
		return
	}

	actorID := shared.ActorFromContext(r.Context())
	if err := h.service.Cancel(r.Context(), id, actorID, req.Reason); err != nil {
		h.logger.Error("cancel bill failed", slog.Int64("bill_id", id), slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	bill, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	h.logger.Info("bill cancelled", slog.String("invoice_no", bill.InvoiceNo), slog.String("reason", req.Reason))
	shared.RespondJSON(w, http.StatusOK, bill)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid bill id"))
		return
	}
	bill, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, bill)
}

func (h *Handler) ShowByInvoice(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.GetByInvoiceNo(r.Context(), chi.URLParam(r, "invoiceNo"))
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, bill)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListBillsRequest{IncludeCancelled: q.Get("include_cancelled") == "1"}
	if v := q.Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			req.DateFrom = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			// Exclusive upper bound: include the whole "to" day.
			end := t.AddDate(0, 0, 1)
			req.DateTo = &end
		}
	}
	if v := q.Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}

	bills, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list bills failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"bills":      bills,
		"pagination": shared.NewPagination(req.Limit, req.Offset, total),
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			shared.RespondError(w, shared.NewError(shared.KindValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = t
	}
	summary, err := h.service.Summary(r.Context(), date)
	if err != nil {
		h.logger.Error("daily summary failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, summary)
}

func (r createBillRequest) toInput() (CreateBillInput, error) {
	input := CreateBillInput{
		CustomerID:   r.CustomerID,
		DiscountKind: tax.DiscountKind(r.DiscountKind),
	}

	var err error
	if input.DiscountValue, err = parseAmount(r.DiscountValue, "discount_value"); err != nil {
		return CreateBillInput{}, err
	}
	for _, line := range r.Lines {
		discount, err := parseAmount(line.Discount, "line discount")
		if err != nil {
			return CreateBillInput{}, err
		}
		input.Lines = append(input.Lines, LineInput{
			BatchID:  line.BatchID,
			Quantity: line.Quantity,
			Discount: discount,
		})
	}

	input.Payment.Mode = PaymentMode(r.Payment.Mode)
	if input.Payment.Cash, err = parseAmount(r.Payment.CashAmount, "cash_amount"); err != nil {
		return CreateBillInput{}, err
	}
	if input.Payment.Online, err = parseAmount(r.Payment.OnlineAmount, "online_amount"); err != nil {
		return CreateBillInput{}, err
	}

	if r.Patient != nil {
		input.Patient = &PatientInfo{
			Name:         r.Patient.Name,
			Age:          r.Patient.Age,
			Gender:       r.Patient.Gender,
			DoctorName:   r.Patient.DoctorName,
			Prescription: r.Patient.Prescription,
		}
	}
	return input, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, shared.NewErrorf(shared.KindValidation, "%s is not a valid amount", field)
	}
	return d, nil
}
