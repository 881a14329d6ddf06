// Package handlers provides HTTP handlers for the product catalog.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricewise/pricewise/internal/domain"
	"github.com/pricewise/pricewise/internal/modules/catalog"
)

// Handler handles catalog HTTP requests
type Handler struct {
	products *catalog.ProductRepository
	log      zerolog.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(products *catalog.ProductRepository, log zerolog.Logger) *Handler {
	return &Handler{
		products: products,
		log:      log.With().Str("handler", "catalog").Logger(),
	}
}

// HandleListProducts returns all products
func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)

	if r.URL.Query().Get("in_stock") == "true" {
		products, err = h.products.GetAllInStock()
	} else {
		products, err = h.products.GetAll()
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

// HandleGetProduct returns one product by ID
func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.products.GetByID(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

// createProductRequest is the payload for product creation. Prices arrive as
// strings so no precision is lost in transit.
type createProductRequest struct {
	Title               string `json:"title"`
	BasePrice           string `json:"base_price"`
	MaxPrice            string `json:"max_price"`
	PriceAdjustmentStep string `json:"price_adjustment_step"`
	StockCount          string `json:"stock_count"`
	InStock             *bool  `json:"in_stock"`
	DemandThresholdHigh int    `json:"demand_threshold_high"`
	DemandThresholdLow  int    `json:"demand_threshold_low"`
}

// HandleCreateProduct creates a new product
func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Title == "" {
		h.writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	basePrice, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid base_price")
		return
	}
	maxPrice, err := decimal.NewFromString(req.MaxPrice)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid max_price")
		return
	}
	if maxPrice.LessThan(basePrice) {
		h.writeError(w, http.StatusBadRequest, "max_price must not be below base_price")
		return
	}

	product := &domain.Product{
		Title:      req.Title,
		BasePrice:  basePrice,
		MaxPrice:   maxPrice,
		StockCount: req.StockCount,
		InStock:    req.InStock == nil || *req.InStock,
	}

	if req.PriceAdjustmentStep != "" {
		step, err := decimal.NewFromString(req.PriceAdjustmentStep)
		if err != nil || step.LessThanOrEqual(decimal.Zero) {
			h.writeError(w, http.StatusBadRequest, "invalid price_adjustment_step")
			return
		}
		product.PriceAdjustmentStep = step
	}
	if req.DemandThresholdHigh != 0 {
		product.DemandThresholdHigh = req.DemandThresholdHigh
	}
	if req.DemandThresholdLow != 0 {
		product.DemandThresholdLow = req.DemandThresholdLow
	}

	if err := h.products.Create(product); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Str("product_id", product.ID).Str("title", product.Title).Msg("Product created")
	h.writeJSON(w, http.StatusCreated, product)
}

// HandleRecordSale increments a product's weekly sales counter
func (h *Handler) HandleRecordSale(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	if err := h.products.RecordSale(id, req.Quantity); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id,
		"quantity":   req.Quantity,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
