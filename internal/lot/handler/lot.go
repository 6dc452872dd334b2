// Package handler exposes the lot engine over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowlytix/distribution-backend/internal/lot/domain"
	"github.com/flowlytix/distribution-backend/internal/lot/service"
	"github.com/flowlytix/distribution-backend/pkg/httputil"
	"github.com/flowlytix/distribution-backend/pkg/logger"
)

// LotHandler handles lot/batch endpoints
type LotHandler struct {
	service *service.LotService
	logger  *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(svc *service.LotService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: svc,
		logger:  log,
	}
}

// Routes mounts the lot endpoints on a router
func (h *LotHandler) Routes(r chi.Router) {
	r.Route("/lots", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/search", h.Search)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/history", h.History)
			r.Post("/reserve", h.Reserve)
			r.Post("/release", h.Release)
			r.Post("/consume", h.Consume)
			r.Post("/adjust", h.Adjust)
			r.Post("/expire", h.Expire)
		})
	})
	r.Get("/products/{id}/lots", h.ListByProduct)
	r.Get("/products/{id}/lots/{lotNumber}", h.GetByLotNumber)
}

// Create receives a new lot into inventory
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.CreateLot(r.Context(), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, summary)
}

// Get gets a lot by ID. ?include=history,related expands the detail view.
func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opts := service.GetOptions{}
	for _, part := range r.URL.Query()["include"] {
		switch part {
		case "history":
			opts.IncludeHistory = true
		case "related":
			opts.IncludeRelated = true
		}
	}

	detail, err := h.service.GetLot(r.Context(), id, opts)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Update applies a partial metadata and/or status update
func (h *LotHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.UpdateLotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.UpdateLot(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// Delete tombstones a lot, or removes it permanently when hard is set
func (h *LotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.DeleteLotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteLot(r.Context(), id, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Reserve earmarks stock for a pending order
func (h *LotHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.stockMovement(w, r, h.service.Reserve)
}

// Release returns reserved stock to the available pool
func (h *LotHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.stockMovement(w, r, h.service.Release)
}

// Consume fulfills reserved stock
func (h *LotHandler) Consume(w http.ResponseWriter, r *http.Request) {
	h.stockMovement(w, r, h.service.Consume)
}

// Adjust corrects the remaining quantity after a physical count
func (h *LotHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.AdjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := h.service.Adjust(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// Expire transitions a lot past its expiry date to EXPIRED
func (h *LotHandler) Expire(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, err := h.service.MarkLotExpired(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// GetByLotNumber resolves a lot by its business key within a product.
// ?batch= selects a specific batch of the lot.
func (h *LotHandler) GetByLotNumber(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	lotNumber := chi.URLParam(r, "lotNumber")

	var batchNumber *string
	if batch := r.URL.Query().Get("batch"); batch != "" {
		batchNumber = &batch
	}

	summary, err := h.service.GetLotByNumber(r.Context(), productID, lotNumber, batchNumber)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// History returns the quantity ledger of a lot, oldest first. ?type= filters
// to one change type.
func (h *LotHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	changeType := domain.ChangeType(r.URL.Query().Get("type"))
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	result, err := h.service.GetHistory(r.Context(), id, changeType, limit, offset)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, result.Items, &httputil.Meta{
		Total:   result.Total,
		Limit:   result.Limit,
		Offset:  result.Offset,
		HasMore: result.HasMore,
	})
}

// ListByProduct returns the lots of one product in FIFO order
func (h *LotHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	result, err := h.service.ListLots(r.Context(), productID, limit, offset)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, result.Items, &httputil.Meta{
		Total:   result.Total,
		Limit:   result.Limit,
		Offset:  result.Offset,
		HasMore: result.HasMore,
	})
}

// SearchLotsRequest is the JSON shape of a lot search
type SearchLotsRequest struct {
	ProductIDs  []string `json:"product_ids,omitempty"`
	AgencyIDs   []string `json:"agency_ids,omitempty"`
	SupplierIDs []string `json:"supplier_ids,omitempty"`
	CreatedBy   []string `json:"created_by,omitempty"`

	SearchTerm      string `json:"search_term,omitempty"`
	LotNumber       string `json:"lot_number,omitempty"`
	BatchNumber     string `json:"batch_number,omitempty"`
	SupplierLotCode string `json:"supplier_lot_code,omitempty"`

	Statuses        []string `json:"statuses,omitempty"`
	IncludeInactive bool     `json:"include_inactive,omitempty"`
	IncludeDeleted  bool     `json:"include_deleted,omitempty"`

	MinQuantity *int64 `json:"min_quantity,omitempty"`
	MaxQuantity *int64 `json:"max_quantity,omitempty"`

	ManufacturedAfter  *time.Time `json:"manufactured_after,omitempty"`
	ManufacturedBefore *time.Time `json:"manufactured_before,omitempty"`
	ExpiresAfter       *time.Time `json:"expires_after,omitempty"`
	ExpiresBefore      *time.Time `json:"expires_before,omitempty"`
	CreatedAfter       *time.Time `json:"created_after,omitempty"`
	CreatedBefore      *time.Time `json:"created_before,omitempty"`
	UpdatedAfter       *time.Time `json:"updated_after,omitempty"`
	UpdatedBefore      *time.Time `json:"updated_before,omitempty"`

	ExpiringWithinDays *int `json:"expiring_within_days,omitempty"`
	NearExpiryDays     int  `json:"near_expiry_days,omitempty"`

	FIFO      bool   `json:"fifo,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Search runs a filtered, paginated lot search
func (h *LotHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchLotsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.SearchLots(r.Context(), toSearchRequest(&req))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, map[string]interface{}{
		"items":        result.Items,
		"sort_by":      result.SortBy,
		"sort_order":   result.SortOrder,
		"fifo_applied": result.FIFOApplied,
	}, &httputil.Meta{
		Total:   result.Total,
		Limit:   result.Limit,
		Offset:  result.Offset,
		HasMore: result.HasMore,
	})
}

func toSearchRequest(req *SearchLotsRequest) domain.SearchRequest {
	statuses := make([]domain.Status, 0, len(req.Statuses))
	for _, s := range req.Statuses {
		statuses = append(statuses, domain.Status(s))
	}

	return domain.SearchRequest{
		ProductIDs:  req.ProductIDs,
		AgencyIDs:   req.AgencyIDs,
		SupplierIDs: req.SupplierIDs,
		CreatedBy:   req.CreatedBy,

		SearchTerm:      req.SearchTerm,
		LotNumber:       req.LotNumber,
		BatchNumber:     req.BatchNumber,
		SupplierLotCode: req.SupplierLotCode,

		Statuses:        statuses,
		IncludeInactive: req.IncludeInactive,
		IncludeDeleted:  req.IncludeDeleted,

		MinQuantity: req.MinQuantity,
		MaxQuantity: req.MaxQuantity,

		ManufacturedAfter:  req.ManufacturedAfter,
		ManufacturedBefore: req.ManufacturedBefore,
		ExpiresAfter:       req.ExpiresAfter,
		ExpiresBefore:      req.ExpiresBefore,
		CreatedAfter:       req.CreatedAfter,
		CreatedBefore:      req.CreatedBefore,
		UpdatedAfter:       req.UpdatedAfter,
		UpdatedBefore:      req.UpdatedBefore,

		ExpiringWithinDays: req.ExpiringWithinDays,
		NearExpiryDays:     req.NearExpiryDays,

		FIFO:      req.FIFO,
		SortBy:    domain.SortField(req.SortBy),
		SortOrder: domain.SortOrder(req.SortOrder),

		Limit:  req.Limit,
		Offset: req.Offset,
	}
}

func (h *LotHandler) stockMovement(w http.ResponseWriter, r *http.Request, move func(ctx context.Context, id string, req *service.StockRequest) (*domain.Summary, error)) {
	id := chi.URLParam(r, "id")

	var req service.StockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	summary, err := move(r.Context(), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
