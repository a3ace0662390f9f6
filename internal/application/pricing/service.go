package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const serviceName = "pricing"

// Service runs the pricing engine for the HTTP and command line surfaces
type Service struct {
	cfg     config.PricingConfig
	source  pricing.RuleSource
	metrics *telemetry.PricingMetrics
}

// NewService creates a new Service. source may be nil, in which case requests
// without rules are priced against an empty snapshot.
func NewService(cfg config.PricingConfig, source pricing.RuleSource, metrics *telemetry.PricingMetrics) *Service {
	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	return &Service{
		cfg:     cfg,
		source:  source,
		metrics: metrics,
	}
}

// Quote prices a single product
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "quote",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.Product.ID),
	)
	defer span.End()

	product, err := req.Product.ToDomain()
	if err == nil {
		err = product.Check()
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rules, fromSource, err := s.rules(ctx, req.Rules)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := pricing.PriceProduct(product, rules)
	s.metrics.RecordOutcome(ctx, result.Outcome)

	resp := &QuoteResponse{
		ProductID:       product.ID,
		Outcome:         ToOutcomeResponse(result.Outcome),
		RulesFromSource: fromSource,
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrRules, len(rules),
		telemetry.SpanAttrRuleID, resp.Outcome.AppliedRuleID,
		telemetry.SpanAttrRuleSource, fromSource,
	)
	telemetry.SetOK(span)

	logger.L(ctx).Debug("Product quoted",
		zap.String("product_id", product.ID),
		zap.String("rule_id", resp.Outcome.AppliedRuleID),
		zap.String("b2b_price", resp.Outcome.B2BPrice.String()),
		zap.String("retail_price", resp.Outcome.RetailPrice.String()),
	)
	return resp, nil
}

// Batch prices every product of the request against one rule snapshot. Items that
// cannot be priced are reported individually and never fail the batch.
func (s *Service) Batch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if s.cfg.MaxBatchItems > 0 && len(req.Products) > s.cfg.MaxBatchItems {
		return nil, fmt.Errorf("%w: batch of %d products exceeds the limit of %d",
			shared.ErrLimitExceeded, len(req.Products), s.cfg.MaxBatchItems)
	}

	batchID := uuid.NewString()
	ctx = logger.WithBatchID(ctx, batchID)
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "batch",
		telemetry.WithAttribute(telemetry.SpanAttrBatchID, batchID),
		telemetry.WithAttribute(telemetry.SpanAttrItems, len(req.Products)),
	)
	defer span.End()

	rules, fromSource, err := s.rules(ctx, req.Rules)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &BatchResponse{
		BatchID:         batchID,
		Items:           make([]BatchItemResponse, len(req.Products)),
		Total:           len(req.Products),
		RulesFromSource: fromSource,
	}

	// Items that do not convert keep their error; the rest go to the engine
	products := make([]pricing.ProductPricingInput, 0, len(req.Products))
	positions := make([]int, 0, len(req.Products))
	for i, p := range req.Products {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		product, err := p.ToDomain()
		if err != nil {
			resp.Items[i] = itemError(p.ID, err)
			continue
		}
		products = append(products, product)
		positions = append(positions, i)
	}

	if s.cfg.RuleDiagnostics && !fromSource {
		resp.RuleWarnings = s.diagnoseRules(ctx, rules, meanCost(products))
	}

	workers := s.workers(req.Workers)
	start := time.Now()
	results, err := pricing.BatchComputeConcurrent(ctx, products, rules, workers)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.L(ctx).Warn("Batch interrupted", zap.Error(err))
		return nil, err
	}

	for i, result := range results {
		pos := positions[i]
		if result.Err != nil {
			resp.Items[pos] = itemError(result.ProductID, result.Err)
			continue
		}
		s.metrics.RecordOutcome(ctx, result.Outcome)
		outcome := ToOutcomeResponse(result.Outcome)
		resp.Items[pos] = BatchItemResponse{
			ProductID: result.ProductID,
			Outcome:   &outcome,
		}
	}
	for _, item := range resp.Items {
		if item.Outcome == nil {
			resp.Failed++
		}
	}

	elapsed := time.Since(start)
	s.metrics.RecordBatch(ctx, resp.Total, resp.Failed, elapsed)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrRules, len(rules),
		telemetry.SpanAttrRuleSource, fromSource,
		telemetry.SpanAttrWorkers, workers,
		telemetry.SpanAttrFailures, resp.Failed,
		telemetry.SpanAttrRuleWarnings, len(resp.RuleWarnings),
	)
	telemetry.SetOK(span)

	logger.L(ctx).Info("Batch priced",
		zap.Int("items", resp.Total),
		zap.Int("failed", resp.Failed),
		zap.Int("rules", len(rules)),
		zap.Int("workers", workers),
		zap.Bool("rules_from_source", fromSource),
		zap.Duration("duration", elapsed),
	)
	return resp, nil
}

// ValidateConstraints reports errors and warnings for a cost/markup/bounds combination
func (s *Service) ValidateConstraints(ctx context.Context, req ValidateRequest) (*ValidationResponse, error) {
	if req.Cost == nil || req.MarkupPercent == nil {
		return nil, fmt.Errorf("%w: cost and markup_percent are required", shared.ErrInvalidInput)
	}

	report := pricing.Validate(*req.Cost, *req.MarkupPercent, nullable(req.MinPrice), nullable(req.MaxPrice))
	s.metrics.RecordValidation(ctx, "constraints", report.IsValid)

	resp := ToValidationResponse(report)
	return &resp, nil
}

// ValidateRule checks both channels of a rule against a reference cost
func (s *Service) ValidateRule(ctx context.Context, req RuleValidationRequest) (*RuleValidation, error) {
	if req.ReferenceCost == nil {
		return nil, fmt.Errorf("%w: reference_cost is required", shared.ErrInvalidInput)
	}
	rule, err := req.Rule.ToDomain()
	if err != nil {
		return nil, err
	}

	result := ValidateRule(rule, *req.ReferenceCost)
	s.metrics.RecordValidation(ctx, "rule", result.IsValid)
	return &result, nil
}

// SellingPrice derives a selling price from a markup or a margin, or the markup and
// margin of a known selling price
func (s *Service) SellingPrice(ctx context.Context, req SellingPriceRequest) (*SellingPriceResponse, error) {
	if req.Cost == nil {
		return nil, fmt.Errorf("%w: cost is required", shared.ErrInvalidInput)
	}
	set := 0
	for _, v := range []*decimal.Decimal{req.MarkupPercent, req.MarginPercent, req.SellingPrice} {
		if v != nil {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of markup_percent, margin_percent or selling_price is required", shared.ErrInvalidInput)
	}

	cost := *req.Cost
	resp := &SellingPriceResponse{Cost: cost}

	switch {
	case req.MarkupPercent != nil:
		resp.Mode = ModeMarkup
		resp.SellingPrice = pricing.PriceFromMarkup(cost, *req.MarkupPercent)
	case req.MarginPercent != nil:
		resp.Mode = ModeMargin
		price, err := pricing.PriceFromMargin(cost, *req.MarginPercent)
		if err != nil {
			var compErr *pricing.ComputationError
			if errors.As(err, &compErr) {
				s.metrics.RecordComputationError(ctx, compErr.Operation)
			}
			logger.L(ctx).Warn("Selling price rejected", zap.Error(err))
			return nil, err
		}
		resp.SellingPrice = price
	default:
		resp.Mode = ModePrice
		resp.SellingPrice = *req.SellingPrice
	}

	resp.MarkupPercent = pricing.MarkupPercentFromPrices(cost, resp.SellingPrice)
	resp.MarginPercent = pricing.MarginPercentFromPrices(cost, resp.SellingPrice)
	return resp, nil
}

// ValidateRule runs Validate for each channel of rule at the given cost
func ValidateRule(rule pricing.MarkupRule, referenceCost decimal.Decimal) RuleValidation {
	b2b := rule.Policy(pricing.ChannelB2B)
	retail := rule.Policy(pricing.ChannelRetail)

	b2bReport := pricing.Validate(referenceCost, b2b.MarkupPercent, b2b.MinPrice, b2b.MaxPrice)
	retailReport := pricing.Validate(referenceCost, retail.MarkupPercent, retail.MinPrice, retail.MaxPrice)

	return RuleValidation{
		RuleID:        rule.ID,
		ReferenceCost: referenceCost,
		IsValid:       b2bReport.IsValid && retailReport.IsValid,
		B2B:           ToValidationResponse(b2bReport),
		Retail:        ToValidationResponse(retailReport),
	}
}

// rules returns the request rules, or the configured snapshot when there are none
func (s *Service) rules(ctx context.Context, inputs []RuleInput) ([]pricing.MarkupRule, bool, error) {
	if len(inputs) > 0 {
		rules := make([]pricing.MarkupRule, 0, len(inputs))
		for _, in := range inputs {
			rule, err := in.ToDomain()
			if err != nil {
				return nil, false, err
			}
			rules = append(rules, rule)
		}
		return rules, false, nil
	}

	if s.source == nil {
		return nil, false, nil
	}
	rules, err := s.source.Rules(ctx)
	if err != nil {
		logger.L(ctx).Error("Failed to load rule snapshot", zap.Error(err))
		return nil, false, fmt.Errorf("%w: %w", shared.ErrRuleSource, err)
	}
	return rules, true, nil
}

// diagnoseRules returns the rules with findings. Diagnostics never block pricing.
func (s *Service) diagnoseRules(ctx context.Context, rules []pricing.MarkupRule, referenceCost decimal.Decimal) []RuleValidation {
	var findings []RuleValidation
	for _, rule := range rules {
		result := ValidateRule(rule, referenceCost)
		s.metrics.RecordValidation(ctx, "rule", result.IsValid)
		if !result.HasFindings() {
			continue
		}
		findings = append(findings, result)
		logger.L(ctx).Warn("Rule has validation findings",
			zap.String("rule_id", rule.ID),
			zap.Bool("valid", result.IsValid),
			zap.Strings("b2b_errors", result.B2B.Errors),
			zap.Strings("retail_errors", result.Retail.Errors),
		)
	}
	return findings
}

func (s *Service) workers(requested int) int {
	if requested > 0 && requested < s.cfg.BatchWorkers {
		return requested
	}
	return s.cfg.BatchWorkers
}

// meanCost is the average non-negative cost of the products, zero for none
func meanCost(products []pricing.ProductPricingInput) decimal.Decimal {
	sum := decimal.Zero
	n := 0
	for _, p := range products {
		if p.Cost.IsNegative() {
			continue
		}
		sum = sum.Add(p.Cost)
		n++
	}
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}

func itemError(productID string, err error) BatchItemResponse {
	item := BatchItemResponse{
		ProductID: productID,
		Error:     err.Error(),
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		item.ErrorCode = domainErr.Code
	}
	return item
}
