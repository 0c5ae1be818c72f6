package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/shared"
	"github.com/medbill/medbill/internal/tax"
)

// Handler wires HTTP endpoints for the stock module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/batches", h.List)
	r.Get("/batches/expiring", h.Expiring)
	r.Get("/batches/{id}", h.Show)
	r.Get("/batches/{id}/movements", h.Movements)
	r.Post("/batches", h.Receive)
	r.Post("/batches/{id}/adjust", h.Adjust)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	if v := q.Get("medicine_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.MedicineID = &id
		}
	}
	filter.IncludeExpired = q.Get("include_expired") == "1"
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	batches, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list batches failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"batches":    batches,
		"pagination": shared.NewPagination(filter.Limit, filter.Offset, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid batch id"))
		return
	}
	batch, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, batch)
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid batch id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (h *Handler) Expiring(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	batches, err := h.service.Expiring(r.Context(), days)
	if err != nil {
		h.logger.Error("expiring batches failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var req receiveBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.NewErrorf(shared.KindValidation, "invalid batch: %v", err))
		return
	}
	price, err := decimal.NewFromString(req.UnitPrice)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid unit price"))
		return
	}
	rate, err := decimal.NewFromString(req.TaxRate)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid tax rate"))
		return
	}

	batch, err := h.service.Receive(r.Context(), ReceiveInput{
		MedicineID:  req.MedicineID,
		BatchNo:     req.BatchNo,
		Quantity:    req.Quantity,
		UnitPrice:   price,
		PricingMode: tax.PricingMode(req.PricingMode),
		TaxRate:     rate,
		ExpiryDate:  req.ExpiryDate,
		ActorID:     shared.ActorFromContext(r.Context()),
		Note:        req.Note,
	})
	if err != nil {
		h.logger.Error("receive batch failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, batch)
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid batch id"))
		return
	}
	var req adjustBatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.NewErrorf(shared.KindValidation, "invalid adjustment: %v", err))
		return
	}

	batch, err := h.service.Adjust(r.Context(), AdjustInput{
		BatchID: id,
		Qty:     req.Qty,
		ActorID: shared.ActorFromContext(r.Context()),
		Note:    req.Note,
	})
	if err != nil {
		h.logger.Error("adjust batch failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, batch)
}
