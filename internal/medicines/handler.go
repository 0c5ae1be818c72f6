package medicines

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medbill/medbill/internal/shared"
)

type medicineRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	GenericName  string `json:"generic_name" validate:"max=200"`
	Manufacturer string `json:"manufacturer" validate:"max=200"`
	HSNCode      string `json:"hsn_code" validate:"max=20"`
	Category     string `json:"category" validate:"max=60"`
	DrugType     string `json:"drug_type" validate:"max=60"`
	ScheduleH    bool   `json:"schedule_h"`
	PackSize     string `json:"pack_size" validate:"max=40"`
	Unit         string `json:"unit" validate:"required,max=20"`
	ReorderLevel int64  `json:"reorder_level" validate:"gte=0"`
	IsActive     bool   `json:"is_active"`
}

// Handler wires HTTP endpoints for the medicine catalogue.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the medicines handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers medicine routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/medicines", h.List)
	r.Get("/medicines/stats", h.Stats)
	r.Get("/medicines/low-stock", h.LowStock)
	r.Get("/medicines/{id}", h.Show)
	r.Post("/medicines", h.Create)
	r.Put("/medicines/{id}", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:     q.Get("search"),
		Category:   q.Get("category"),
		ActiveOnly: q.Get("active") == "1",
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	meds, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list medicines failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{
		"medicines":  meds,
		"pagination": shared.NewPagination(filter.Limit, filter.Offset, total),
	})
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock listing failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"medicines": entries})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	active, err := h.service.CountActive(r.Context())
	if err != nil {
		h.logger.Error("medicine stats failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"active_medicines": active})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid medicine id"))
		return
	}
	medicine, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, medicine)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	medicine, err := h.decode(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), medicine)
	if err != nil {
		h.logger.Error("create medicine failed", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, shared.NewError(shared.KindValidation, "invalid medicine id"))
		return
	}
	medicine, err := h.decode(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), id, medicine); err != nil {
		h.logger.Error("update medicine failed", slog.Any("error", err))
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

func (h *Handler) decode(r *http.Request) (Medicine, error) {
	var req medicineRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		return Medicine{}, err
	}
	if err := h.validate.Struct(req); err != nil {
		return Medicine{}, shared.NewErrorf(shared.KindValidation, "invalid medicine: %v", err)
	}
	return Medicine{
		Name:         req.Name,
		GenericName:  req.GenericName,
		Manufacturer: req.Manufacturer,
		HSNCode:      req.HSNCode,
		Category:     req.Category,
		DrugType:     req.DrugType,
		ScheduleH:    req.ScheduleH,
		PackSize:     req.PackSize,
		Unit:         req.Unit,
		ReorderLevel: req.ReorderLevel,
		IsActive:     req.IsActive,
	}, nil
}
