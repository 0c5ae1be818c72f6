package customers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/medbill/medbill/internal/shared"
)

type customerRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Phone       string `json:"phone" validate:"required,max=20"`
	Address     string `json:"address" validate:"max=300"`
	CreditLimit string `json:"credit_limit"`
}

// Handler wires HTTP endpoints for customer master data.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the customers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers", h.List)
	r.Get("/customers/{id}", h.Show)
	r.Post("/customers", h.Create)
	r.Put("/customers/{id}", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: q.Get("search")}
	if phone := q.Get("phone"); phone != "" {
		customer, err := h.service.GetByPhone(r.Context(), phone)
		if err != nil {
			shared.RespondError(w, err)
			return
		}
		shared.RespondJSON(w, http.StatusOK, map[string]any{"customers": []Customer{customer}, "total": 1})
		return
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	customers, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list customers failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"customers":  customers,
		"pagination": shared.NewPagination(filter.Limit, filter.Offset, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid customer id"))
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, customer)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	customer, err := h.decode(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), customer)
	if err != nil {
		h.logger.Error("create customer failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid customer id"))
		return
	}
	customer, err := h.decode(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), id, customer); err != nil {
		h.logger.Error("update customer failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	updated, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, updated)
}

func (h *Handler) decode(r *http.Request) (Customer, error) {
	var req customerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		return Customer{}, err
	}
	if err := h.validate.Struct(req); err != nil {
		return Customer{}, shared.NewErrorf(shared.KindValidation, "invalid customer: %v", err)
	}
	limit := decimal.Zero
	if req.CreditLimit != "" {
		var err error
		limit, err = decimal.NewFromString(req.CreditLimit)
		if err != nil {
			return Customer{}, shared.NewError(shared.KindValidation, "invalid credit limit")
		}
	}
	return Customer{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		CreditLimit: limit,
	}, nil
}
