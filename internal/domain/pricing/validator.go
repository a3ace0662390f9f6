package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MarkupWarningThreshold is the markup percent above which Validate warns
var MarkupWarningThreshold = decimal.NewFromInt(1000)

// ValidationReport holds advisory diagnostics for a cost/markup/bounds combination
type ValidationReport struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

// NewValidationReport returns an empty, valid report
func NewValidationReport() ValidationReport {
	return ValidationReport{
		IsValid:  true,
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}
}

// AddError adds an error and marks the report invalid
func (r *ValidationReport) AddError(message string) {
	r.Errors = append(r.Errors, message)
	r.IsValid = false
}

// AddWarning adds a warning; warnings never affect validity
func (r *ValidationReport) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Validate checks a cost, markup and optional price bounds. It is advisory: nothing
// in the pricing path calls it, and callers decide what to do with the findings.
func Validate(cost, markupPercent decimal.Decimal, minPrice, maxPrice decimal.NullDecimal) ValidationReport {
	report := NewValidationReport()

	if cost.IsNegative() {
		report.AddError(fmt.Sprintf("cost cannot be negative (got %s)", cost.String()))
	}
	if markupPercent.IsNegative() {
		report.AddError(fmt.Sprintf("markup percent cannot be negative (got %s)", markupPercent.String()))
	}
	if minPrice.Valid && maxPrice.Valid && minPrice.Decimal.GreaterThan(maxPrice.Decimal) {
		report.AddError(fmt.Sprintf("minimum price %s cannot exceed maximum price %s",
			minPrice.Decimal.String(), maxPrice.Decimal.String()))
	}

	if markupPercent.GreaterThan(MarkupWarningThreshold) {
		report.AddWarning(fmt.Sprintf("markup percent %s exceeds %s",
			markupPercent.String(), MarkupWarningThreshold.String()))
	}
	if minPrice.Valid && minPrice.Decimal.LessThanOrEqual(cost) {
		report.AddWarning(fmt.Sprintf("minimum price %s is not above cost %s",
			minPrice.Decimal.String(), cost.String()))
	}

	price := PriceFromMarkup(cost, markupPercent)
	if minPrice.Valid && price.LessThan(minPrice.Decimal) {
		report.AddWarning(fmt.Sprintf("markup price %s is below minimum price %s",
			price.String(), minPrice.Decimal.String()))
	}
	if maxPrice.Valid && price.GreaterThan(maxPrice.Decimal) {
		report.AddWarning(fmt.Sprintf("markup price %s is above maximum price %s",
			price.String(), maxPrice.Decimal.String()))
	}

	return report
}
