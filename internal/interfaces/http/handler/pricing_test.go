package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pricingapp "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/erp/pricing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

type staticSource struct {
	rules []pricing.MarkupRule
	err   error
}

func (s staticSource) Rules(_ context.Context) ([]pricing.MarkupRule, error) {
	return s.rules, s.err
}

func newPricingRouter(t *testing.T, source pricing.RuleSource) *gin.Engine {
	t.Helper()

	metrics, err := telemetry.NewPricingMetrics(noop.NewMeterProvider().Meter("test"), zap.NewNop())
	require.NoError(t, err)
	service := pricingapp.NewService(config.PricingConfig{BatchWorkers: 2, MaxBatchItems: 3}, source, metrics)
	h := NewPricingHandler(service)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.BodyLimit(4096))
	group := router.Group("/pricing")
	group.POST("/quote", h.Quote)
	group.POST("/batch", h.Batch)
	group.POST("/validate", h.Validate)
	group.POST("/rules/validate", h.ValidateRule)
	group.POST("/selling-price", h.SellingPrice)
	return router
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// envelope is the typed view of dto.Response used to decode handler output
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestPricingHandler_Quote(t *testing.T) {
	snapshot := staticSource{rules: []pricing.MarkupRule{{
		ID:                  "snapshot-global",
		Scope:               pricing.GlobalScope{},
		B2BMarkupPercent:    decimal.NewFromInt(10),
		RetailMarkupPercent: decimal.NewFromInt(20),
		IsActive:            true,
	}}}
	router := newPricingRouter(t, snapshot)

	t.Run("request rules", func(t *testing.T) {
		w := post(router, "/pricing/quote", `{
			"product": {"id": "p1", "cost": "100", "brand_id": "acme"},
			"rules": [
				{"id": "global", "scope": "global", "b2b_markup_percent": "15", "retail_markup_percent": "30"},
				{"id": "acme", "scope": "brand", "target_id": "acme", "priority": 10, "b2b_markup_percent": "25", "retail_markup_percent": "40"}
			]
		}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeData[pricingapp.QuoteResponse](t, w)
		assert.Equal(t, "p1", data.ProductID)
		assert.False(t, data.RulesFromSource)
		assert.Equal(t, "acme", data.Outcome.AppliedRuleID)
		assertDecimal(t, "125", data.Outcome.B2BPrice)
		assertDecimal(t, "140", data.Outcome.RetailPrice)
		assertDecimal(t, "20", data.Outcome.B2BMarginPercent)
	})

	t.Run("snapshot rules", func(t *testing.T) {
		w := post(router, "/pricing/quote", `{"product": {"id": "p2", "cost": 50}}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeData[pricingapp.QuoteResponse](t, w)
		assert.True(t, data.RulesFromSource)
		assert.Equal(t, "snapshot-global", data.Outcome.AppliedRuleID)
		assertDecimal(t, "55", data.Outcome.B2BPrice)
		assertDecimal(t, "60", data.Outcome.RetailPrice)
	})

	t.Run("missing cost", func(t *testing.T) {
		w := post(router, "/pricing/quote", `{"product": {"id": "p3"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "product.cost", resp.Error.Details[0].Field)
		assert.NotEmpty(t, resp.Error.RequestID)
	})

	t.Run("negative cost", func(t *testing.T) {
		w := post(router, "/pricing/quote", `{"product": {"id": "p4", "cost": "-1"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})

	t.Run("unknown scope", func(t *testing.T) {
		w := post(router, "/pricing/quote", `{
			"product": {"id": "p5", "cost": "10"},
			"rules": [{"id": "r", "scope": "supplier", "target_id": "x"}]
		}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := post(router, "/pricing/quote", `{"product": `)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})
}

func TestPricingHandler_QuoteRuleSourceDown(t *testing.T) {
	router := newPricingRouter(t, staticSource{err: assert.AnError})

	w := post(router, "/pricing/quote", `{"product": {"id": "p1", "cost": "10"}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, dto.ErrCodeRuleSource, decodeResponse(t, w).Error.Code)
}

func TestPricingHandler_Batch(t *testing.T) {
	router := newPricingRouter(t, nil)

	t.Run("per item failures keep order", func(t *testing.T) {
		w := post(router, "/pricing/batch", `{
			"products": [
				{"id": "a", "cost": "100"},
				{"id": "b", "cost": "-5"},
				{"id": "c", "cost": "10", "manual_retail_price": "99"}
			],
			"rules": [{"id": "g", "scope": "global", "b2b_markup_percent": "10", "retail_markup_percent": "50"}],
			"workers": 2
		}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeData[pricingapp.BatchResponse](t, w)
		assert.NotEmpty(t, data.BatchID)
		assert.Equal(t, 3, data.Total)
		assert.Equal(t, 1, data.Failed)
		require.Len(t, data.Items, 3)

		assert.Equal(t, "a", data.Items[0].ProductID)
		require.NotNil(t, data.Items[0].Outcome)
		assertDecimal(t, "110", data.Items[0].Outcome.B2BPrice)

		assert.Equal(t, "b", data.Items[1].ProductID)
		assert.Nil(t, data.Items[1].Outcome)
		assert.Equal(t, "INVALID_INPUT", data.Items[1].ErrorCode)

		require.NotNil(t, data.Items[2].Outcome)
		assertDecimal(t, "99", data.Items[2].Outcome.RetailPrice)
		assert.Equal(t, string(pricing.PriceSourceManual), data.Items[2].Outcome.RetailSource)
	})

	t.Run("limit exceeded", func(t *testing.T) {
		w := post(router, "/pricing/batch", `{"products": [
			{"cost": "1"}, {"cost": "2"}, {"cost": "3"}, {"cost": "4"}
		]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeLimitExceeded, decodeResponse(t, w).Error.Code)
	})

	t.Run("empty products", func(t *testing.T) {
		w := post(router, "/pricing/batch", `{"products": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "products", resp.Error.Details[0].Field)
	})

	t.Run("body too large", func(t *testing.T) {
		body := `{"products": [{"id": "` + strings.Repeat("x", 5000) + `", "cost": "1"}]}`
		w := post(router, "/pricing/batch", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, decodeResponse(t, w).Error.Code)
	})
}

func TestPricingHandler_Validate(t *testing.T) {
	router := newPricingRouter(t, nil)

	tests := []struct {
		name     string
		body     string
		valid    bool
		errors   int
		warnings int
	}{
		{
			name:  "valid",
			body:  `{"cost": "100", "markup_percent": "25", "min_price": "110", "max_price": "200"}`,
			valid: true,
		},
		{
			name:   "min above max",
			body:   `{"cost": "100", "markup_percent": "25", "min_price": "300", "max_price": "200"}`,
			valid:    false,
			errors:   1,
			warnings: 1,
		},
		{
			name:     "excessive markup",
			body:     `{"cost": "100", "markup_percent": "1500"}`,
			valid:    true,
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(router, "/pricing/validate", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			data := decodeData[pricingapp.ValidationResponse](t, w)
			assert.Equal(t, tt.valid, data.IsValid)
			assert.Len(t, data.Errors, tt.errors)
			assert.Len(t, data.Warnings, tt.warnings)
		})
	}

	t.Run("missing markup", func(t *testing.T) {
		w := post(router, "/pricing/validate", `{"cost": "100"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPricingHandler_ValidateRule(t *testing.T) {
	router := newPricingRouter(t, nil)

	w := post(router, "/pricing/rules/validate", `{
		"rule": {"id": "r1", "scope": "category", "target_id": "tools",
			"b2b_markup_percent": "10", "retail_markup_percent": "20",
			"min_b2b_price": "300", "max_b2b_price": "200"},
		"reference_cost": "100"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData[pricingapp.RuleValidation](t, w)
	assert.Equal(t, "r1", data.RuleID)
	assert.False(t, data.IsValid)
	assert.False(t, data.B2B.IsValid)
	assert.True(t, data.Retail.IsValid)
}

func TestPricingHandler_SellingPrice(t *testing.T) {
	router := newPricingRouter(t, nil)

	t.Run("from margin", func(t *testing.T) {
		w := post(router, "/pricing/selling-price", `{"cost": "80", "margin_percent": "20"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		data := decodeData[pricingapp.SellingPriceResponse](t, w)
		assert.Equal(t, pricingapp.ModeMargin, data.Mode)
		assertDecimal(t, "100", data.SellingPrice)
		assertDecimal(t, "25", data.MarkupPercent)
	})

	t.Run("margin of 100 is a computation error", func(t *testing.T) {
		w := post(router, "/pricing/selling-price", `{"cost": "80", "margin_percent": "100"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeComputation, decodeResponse(t, w).Error.Code)
	})

	t.Run("two modes", func(t *testing.T) {
		w := post(router, "/pricing/selling-price", `{"cost": "80", "margin_percent": "20", "markup_percent": "25"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}
