package pricing

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ProductPricingInput is a per-item pricing request
type ProductPricingInput struct {
	ID             string
	Cost           decimal.Decimal
	BrandID        string
	ManufacturerID string
	CategoryID     string

	// Manual overrides, also used for prices supplied by an external ERP
	ManualB2BPrice    decimal.NullDecimal
	ManualRetailPrice decimal.NullDecimal
}

// ScopeKeys returns the product's scope identifiers
func (p ProductPricingInput) ScopeKeys() ScopeKeys {
	return ScopeKeys{
		BrandID:        p.BrandID,
		ManufacturerID: p.ManufacturerID,
		CategoryID:     p.CategoryID,
	}
}

// Check reports input that cannot be priced
func (p ProductPricingInput) Check() error {
	if p.Cost.IsNegative() {
		return fmt.Errorf("%w: product '%s' has negative cost %s", shared.ErrInvalidInput, p.ID, p.Cost.String())
	}
	if p.ManualB2BPrice.Valid && p.ManualB2BPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: product '%s' has negative manual b2b price", shared.ErrInvalidInput, p.ID)
	}
	if p.ManualRetailPrice.Valid && p.ManualRetailPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: product '%s' has negative manual retail price", shared.ErrInvalidInput, p.ID)
	}
	return nil
}

// BatchResult is the outcome for one product of a batch. Err is set when the item
// could not be priced; Outcome is then the zero value.
type BatchResult struct {
	ProductID string
	Outcome   PricingOutcome
	Err       error
}

// PriceProduct resolves the rule for one product against the snapshot and prices it
func PriceProduct(product ProductPricingInput, rules []MarkupRule) BatchResult {
	result := BatchResult{ProductID: product.ID}
	if err := product.Check(); err != nil {
		result.Err = err
		return result
	}

	rule := ResolveRuleForKeys(rules, product.ScopeKeys())
	result.Outcome = ComputePricing(product.Cost, rule, product.ManualB2BPrice, product.ManualRetailPrice)
	return result
}

// BatchCompute prices every product against the same rule snapshot. The output has the
// same length and order as products, and a failing item never affects the others.
func BatchCompute(products []ProductPricingInput, rules []MarkupRule) []BatchResult {
	results := make([]BatchResult, len(products))
	for i, p := range products {
		results[i] = PriceProduct(p, rules)
	}
	return results
}

// BatchComputeConcurrent is BatchCompute fanned out over at most workers goroutines.
// If ctx is cancelled, items not yet started carry ctx.Err() and the partial results
// are returned together with that error.
func BatchComputeConcurrent(ctx context.Context, products []ProductPricingInput, rules []MarkupRule, workers int) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(products))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	var skipped atomic.Bool
	submitted := 0
	for i := range products {
		if ctx.Err() != nil {
			break
		}
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[idx] = BatchResult{ProductID: products[idx].ID, Err: err}
				skipped.Store(true)
				return nil
			}
			results[idx] = PriceProduct(products[idx], rules)
			return nil
		})
		submitted++
	}
	_ = g.Wait()

	if submitted < len(products) || skipped.Load() {
		err := ctx.Err()
		for i := submitted; i < len(products); i++ {
			results[i] = BatchResult{ProductID: products[i].ID, Err: err}
		}
		return results, err
	}
	return results, nil
}
