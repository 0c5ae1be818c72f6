package credit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/shared"
)

type paymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	Note   string `json:"note" validate:"max=200"`
}

// Handler wires HTTP endpoints for the credit ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the credit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers/{id}/ledger", h.Statement)
	r.Post("/customers/{id}/payments", h.RecordPayment)
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid customer id"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	account, entries, err := h.service.Statement(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("credit statement failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"account": account, "entries": entries})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid customer id"))
		return
	}
	var req paymentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, shared.NewErrorf(shared.KindValidation, "invalid payment: %v", err))
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid payment amount"))
		return
	}

	balance, err := h.service.RecordPayment(r.Context(), id, amount, shared.ActorFromContext(r.Context()), req.Note)
	if err != nil {
		h.logger.Error("record payment failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, map[string]any{"balance": balance})
}
