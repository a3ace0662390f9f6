package pricing

import (
	"fmt"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputationError is returned when a formula is mathematically undefined for its input
type ComputationError struct {
	Operation     string
	MarginPercent decimal.Decimal
}

// Error implements the error interface
func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: margin percent %s must be below 100", e.Operation, e.MarginPercent.String())
}

// Unwrap lets callers match the error against shared.ErrComputation
func (e *ComputationError) Unwrap() error {
	return shared.ErrComputation
}

// PriceFromMarkup returns cost × (1 + markup/100). Non-positive cost yields zero,
// and the result is never negative.
func PriceFromMarkup(cost, markupPercent decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	price := cost.Mul(decimal.NewFromInt(1).Add(markupPercent.Div(hundred)))
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// PriceFromMargin returns cost / (1 − margin/100). A margin of 100 or more has no
// finite positive price and fails with a *ComputationError.
func PriceFromMargin(cost, marginPercent decimal.Decimal) (decimal.Decimal, error) {
	if marginPercent.GreaterThanOrEqual(hundred) {
		return decimal.Zero, &ComputationError{
			Operation:     "price_from_margin",
			MarginPercent: marginPercent,
		}
	}
	if !cost.IsPositive() {
		return decimal.Zero, nil
	}
	denominator := decimal.NewFromInt(1).Sub(marginPercent.Div(hundred))
	return cost.Div(denominator), nil
}

// MarkupPercentFromPrices returns (selling − cost) / cost × 100, zero for non-positive cost
func MarkupPercentFromPrices(cost, sellingPrice decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return sellingPrice.Sub(cost).Div(cost).Mul(hundred)
}

// MarginPercentFromPrices returns (selling − cost) / selling × 100, zero for non-positive selling price
func MarginPercentFromPrices(cost, sellingPrice decimal.Decimal) decimal.Decimal {
	if !sellingPrice.IsPositive() {
		return decimal.Zero
	}
	return sellingPrice.Sub(cost).Div(sellingPrice).Mul(hundred)
}
