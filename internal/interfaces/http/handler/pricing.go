package handler

import (
	pricingapp "github.com/erp/pricing/internal/application/pricing"
	"github.com/gin-gonic/gin"
)

// PricingHandler handles pricing API endpoints
type PricingHandler struct {
	BaseHandler
	service *pricingapp.Service
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service *pricingapp.Service) *PricingHandler {
	return &PricingHandler{service: service}
}

// Quote serves POST /api/v1/pricing/quote: price a single product.
// Resolves the markup rule for the product and computes B2B and retail prices.
// Without rules in the body the loaded rule snapshot is used.
func (h *PricingHandler) Quote(c *gin.Context) {
	var req pricingapp.QuoteRequest
	if !h.Bind(c, &req) {
		return
	}

	resp, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Batch serves POST /api/v1/pricing/batch: price many products.
// Prices every product against one rule snapshot. Items keep the request order;
// a product that cannot be priced is reported in its item and does not fail the batch.
func (h *PricingHandler) Batch(c *gin.Context) {
	var req pricingapp.BatchRequest
	if !h.Bind(c, &req) {
		return
	}

	resp, err := h.service.Batch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Validate serves POST /api/v1/pricing/validate: check a markup and price bounds.
// Reports errors and warnings for a cost, markup and optional bounds. Findings are advisory.
func (h *PricingHandler) Validate(c *gin.Context) {
	var req pricingapp.ValidateRequest
	if !h.Bind(c, &req) {
		return
	}

	resp, err := h.service.ValidateConstraints(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ValidateRule serves POST /api/v1/pricing/rules/validate: checks both channels
// of a rule against a reference cost.
func (h *PricingHandler) ValidateRule(c *gin.Context) {
	var req pricingapp.RuleValidationRequest
	if !h.Bind(c, &req) {
		return
	}

	resp, err := h.service.ValidateRule(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// SellingPrice serves POST /api/v1/pricing/selling-price. Exactly one of
// markup_percent, margin_percent or selling_price must be set.
func (h *PricingHandler) SellingPrice(c *gin.Context) {
	var req pricingapp.SellingPriceRequest
	if !h.Bind(c, &req) {
		return
	}

	resp, err := h.service.SellingPrice(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
