package pricing

import (
	"fmt"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RuleInput represents a markup rule supplied with a request
type RuleInput struct {
	ID                  string           `json:"id" binding:"required,max=100"`
	Scope               string           `json:"scope" binding:"required,max=20"`
	TargetID            string           `json:"target_id" binding:"max=100"`
	Priority            int              `json:"priority"`
	B2BMarkupPercent    decimal.Decimal  `json:"b2b_markup_percent"`
	RetailMarkupPercent decimal.Decimal  `json:"retail_markup_percent"`
	MinB2BPrice         *decimal.Decimal `json:"min_b2b_price"`
	MaxB2BPrice         *decimal.Decimal `json:"max_b2b_price"`
	MinRetailPrice      *decimal.Decimal `json:"min_retail_price"`
	MaxRetailPrice      *decimal.Decimal `json:"max_retail_price"`
	IsActive            *bool            `json:"is_active"` // Defaults to true
}

// ToDomain converts the input to a domain rule
func (r RuleInput) ToDomain() (pricing.MarkupRule, error) {
	scope, err := pricing.ParseScope(r.Scope, r.TargetID)
	if err != nil {
		return pricing.MarkupRule{}, fmt.Errorf("rule '%s': %w", r.ID, err)
	}

	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return pricing.MarkupRule{
		ID:                  r.ID,
		Scope:               scope,
		Priority:            r.Priority,
		B2BMarkupPercent:    r.B2BMarkupPercent,
		RetailMarkupPercent: r.RetailMarkupPercent,
		MinB2BPrice:         nullable(r.MinB2BPrice),
		MaxB2BPrice:         nullable(r.MaxB2BPrice),
		MinRetailPrice:      nullable(r.MinRetailPrice),
		MaxRetailPrice:      nullable(r.MaxRetailPrice),
		IsActive:            active,
	}, nil
}

// ProductInput represents one product to price
type ProductInput struct {
	ID                string           `json:"id" binding:"max=100"`
	Cost              *decimal.Decimal `json:"cost" binding:"required"`
	BrandID           string           `json:"brand_id" binding:"max=100"`
	ManufacturerID    string           `json:"manufacturer_id" binding:"max=100"`
	CategoryID        string           `json:"category_id" binding:"max=100"`
	ManualB2BPrice    *decimal.Decimal `json:"manual_b2b_price"`
	ManualRetailPrice *decimal.Decimal `json:"manual_retail_price"`
}

// ToDomain converts the input to a domain pricing input. A missing cost is invalid input.
func (p ProductInput) ToDomain() (pricing.ProductPricingInput, error) {
	if p.Cost == nil {
		return pricing.ProductPricingInput{}, fmt.Errorf("%w: product '%s' has no cost", shared.ErrInvalidInput, p.ID)
	}
	return pricing.ProductPricingInput{
		ID:                p.ID,
		Cost:              *p.Cost,
		BrandID:           p.BrandID,
		ManufacturerID:    p.ManufacturerID,
		CategoryID:        p.CategoryID,
		ManualB2BPrice:    nullable(p.ManualB2BPrice),
		ManualRetailPrice: nullable(p.ManualRetailPrice),
	}, nil
}

// QuoteRequest represents a request to price a single product.
// Without rules the configured rule snapshot is used.
type QuoteRequest struct {
	Product ProductInput `json:"product" binding:"required"`
	Rules   []RuleInput  `json:"rules" binding:"omitempty,dive"`
}

// QuoteResponse represents the pricing of a single product
type QuoteResponse struct {
	ProductID       string          `json:"product_id"`
	Outcome         OutcomeResponse `json:"outcome"`
	RulesFromSource bool            `json:"rules_from_source"`
}

// BatchRequest represents a request to price many products against one rule snapshot
type BatchRequest struct {
	Products []ProductInput `json:"products" binding:"required,min=1,dive"`
	Rules    []RuleInput    `json:"rules" binding:"omitempty,dive"`
	Workers  int            `json:"workers" binding:"omitempty,min=1,max=256"`
}

// BatchResponse represents the result of a batch, one item per product in request order
type BatchResponse struct {
	BatchID         string              `json:"batch_id"`
	Items           []BatchItemResponse `json:"items"`
	Total           int                 `json:"total"`
	Failed          int                 `json:"failed"`
	RulesFromSource bool                `json:"rules_from_source"`
	RuleWarnings    []RuleValidation    `json:"rule_warnings,omitempty"`
}

// BatchItemResponse is the outcome or the error for one product of a batch
type BatchItemResponse struct {
	ProductID string           `json:"product_id"`
	Outcome   *OutcomeResponse `json:"outcome,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorCode string           `json:"error_code,omitempty"`
}

// OutcomeResponse represents the computed prices of both channels
type OutcomeResponse struct {
	Cost                decimal.Decimal `json:"cost"`
	B2BPrice            decimal.Decimal `json:"b2b_price"`
	RetailPrice         decimal.Decimal `json:"retail_price"`
	B2BMarginPercent    decimal.Decimal `json:"b2b_margin_percent"`
	RetailMarginPercent decimal.Decimal `json:"retail_margin_percent"`
	AppliedRuleID       string          `json:"applied_rule_id,omitempty"`
	B2BSource           string          `json:"b2b_source"`
	RetailSource        string          `json:"retail_source"`
	B2BClamp            string          `json:"b2b_clamp"`
	RetailClamp         string          `json:"retail_clamp"`
}

// ValidateRequest represents a cost/markup/bounds combination to check
type ValidateRequest struct {
	Cost          *decimal.Decimal `json:"cost" binding:"required"`
	MarkupPercent *decimal.Decimal `json:"markup_percent" binding:"required"`
	MinPrice      *decimal.Decimal `json:"min_price"`
	MaxPrice      *decimal.Decimal `json:"max_price"`
}

// ValidationResponse represents advisory validation findings
type ValidationResponse struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// RuleValidationRequest represents a rule to check against a reference cost
type RuleValidationRequest struct {
	Rule          RuleInput        `json:"rule" binding:"required"`
	ReferenceCost *decimal.Decimal `json:"reference_cost" binding:"required"`
}

// RuleValidation holds the findings for both channels of a rule
type RuleValidation struct {
	RuleID        string             `json:"rule_id"`
	ReferenceCost decimal.Decimal    `json:"reference_cost"`
	IsValid       bool               `json:"is_valid"`
	B2B           ValidationResponse `json:"b2b"`
	Retail        ValidationResponse `json:"retail"`
}

// HasFindings reports whether either channel produced an error or a warning
func (v RuleValidation) HasFindings() bool {
	return !v.IsValid || len(v.B2B.Warnings) > 0 || len(v.Retail.Warnings) > 0
}

// Selling price modes
const (
	ModeMarkup = "markup"
	ModeMargin = "margin"
	ModePrice  = "price"
)

// SellingPriceRequest derives a price from a markup or a margin, or the percents
// from a known selling price. Exactly one of the three must be set.
type SellingPriceRequest struct {
	Cost          *decimal.Decimal `json:"cost" binding:"required"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
	MarginPercent *decimal.Decimal `json:"margin_percent"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
}

// SellingPriceResponse represents a price with its markup and margin
type SellingPriceResponse struct {
	Mode          string          `json:"mode"`
	Cost          decimal.Decimal `json:"cost"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	MarkupPercent decimal.Decimal `json:"markup_percent"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// ToOutcomeResponse converts a domain outcome to a response DTO
func ToOutcomeResponse(o pricing.PricingOutcome) OutcomeResponse {
	resp := OutcomeResponse{
		Cost:                o.Cost,
		B2BPrice:            o.B2BPrice,
		RetailPrice:         o.RetailPrice,
		B2BMarginPercent:    o.B2BMarginPercent,
		RetailMarginPercent: o.RetailMarginPercent,
		B2BSource:           string(o.B2BSource),
		RetailSource:        string(o.RetailSource),
		B2BClamp:            string(o.B2BClamp),
		RetailClamp:         string(o.RetailClamp),
	}
	if o.AppliedRule != nil {
		resp.AppliedRuleID = o.AppliedRule.ID
	}
	return resp
}

// ToValidationResponse converts a domain report to a response DTO
func ToValidationResponse(r pricing.ValidationReport) ValidationResponse {
	return ValidationResponse{
		IsValid:  r.IsValid,
		Errors:   r.Errors,
		Warnings: r.Warnings,
	}
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return pricing.NoPrice
	}
	return pricing.Price(*v)
}
