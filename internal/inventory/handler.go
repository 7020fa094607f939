package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/loomworks-erp/loomworks-erp/internal/platform/httpx"
)

// Handler wires the JSON endpoints for inventory reconciliation and import.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs an inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pending", h.handlePending)
	r.Get("/items", h.handleItems)
	r.Post("/import", h.handleImport)
}

type pendingItemDTO struct {
	Source      string  `json:"source"`
	ProductKind string  `json:"product_kind"`
	Name        string  `json:"name"`
	Color       string  `json:"color,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

type itemDTO struct {
	ID          int64   `json:"id"`
	ProductKind string  `json:"product_kind"`
	Name        string  `json:"name"`
	Color       string  `json:"color,omitempty"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
}

type absorptionErrorDTO struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

type importRequest struct {
	Sources []string `json:"sources" validate:"required,min=1,dive,required"`
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingItems(r.Context())
	if err != nil {
		h.logger.Error("reconcile pending items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": toPendingDTOs(pending),
		"count": len(pending),
	})
}

func (h *Handler) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Items(r.Context())
	if err != nil {
		h.logger.Error("list inventory items", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	dtos := make([]itemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toItemDTO(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": dtos})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	refs := make([]SourceRef, 0, len(req.Sources))
	for _, raw := range req.Sources {
		ref, err := ParseSourceRef(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Reference", err.Error())
			return
		}
		refs = append(refs, ref)
	}

	result, pending, err := h.service.Import(r.Context(), refs)
	if err != nil {
		h.logger.Error("inventory import", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	imported := make([]itemDTO, 0, len(result.Imported))
	for _, item := range result.Imported {
		imported = append(imported, toItemDTO(item))
	}
	failures := make([]absorptionErrorDTO, 0, len(result.Errors))
	for _, absErr := range result.Errors {
		failures = append(failures, absorptionErrorDTO{
			Source: absErr.Source.String(),
			Error:  absErr.Cause.Error(),
		})
	}
	h.logger.Info("inventory import finished",
		slog.Int("imported", len(imported)),
		slog.Int("failed", len(failures)))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"imported": imported,
		"errors":   failures,
		"pending":  toPendingDTOs(pending),
	})
}

func toPendingDTOs(pending []PendingItem) []pendingItemDTO {
	dtos := make([]pendingItemDTO, 0, len(pending))
	for _, item := range pending {
		dtos = append(dtos, pendingItemDTO{
			Source:      item.Source.String(),
			ProductKind: string(item.ProductKind),
			Name:        item.Name,
			Color:       item.Color,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
		})
	}
	return dtos
}

func toItemDTO(item Item) itemDTO {
	return itemDTO{
		ID:          item.ID,
		ProductKind: string(item.ProductKind),
		Name:        item.Name,
		Color:       item.Color,
		Unit:        item.Unit,
		Quantity:    item.Quantity,
	}
}
