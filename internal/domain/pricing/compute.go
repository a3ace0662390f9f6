package pricing

import (
	"github.com/shopspring/decimal"
)

// PriceSource tells where a channel's final price came from
type PriceSource string

const (
	PriceSourceManual PriceSource = "manual"
	PriceSourceRule   PriceSource = "rule"
	PriceSourceNone   PriceSource = "none"
)

// ClampResult tells which bound, if any, changed a rule-derived price
type ClampResult string

const (
	ClampNone ClampResult = "none"
	ClampMin  ClampResult = "min"
	ClampMax  ClampResult = "max"
)

// PricingOutcome is the computed pricing for one item
type PricingOutcome struct {
	Cost                decimal.Decimal
	B2BPrice            decimal.Decimal
	RetailPrice         decimal.Decimal
	B2BMarginPercent    decimal.Decimal
	RetailMarginPercent decimal.Decimal
	AppliedRule         *MarkupRule // Nil only when no rule was resolved

	B2BSource    PriceSource
	RetailSource PriceSource
	B2BClamp     ClampResult
	RetailClamp  ClampResult
}

// ChannelPrice is the result of pricing a single channel
type ChannelPrice struct {
	Price         decimal.Decimal
	MarginPercent decimal.Decimal
	Source        PriceSource
	Clamp         ClampResult
}

// ComputePricing prices both channels of an item independently.
//
// A manual price is used verbatim. Otherwise the rule's markup is applied and the
// result is raised to the minimum, then lowered to the maximum; when a rule's minimum
// exceeds its maximum the maximum wins. Without a rule or a manual price the channel
// is priced at zero.
func ComputePricing(cost decimal.Decimal, rule *MarkupRule, manualB2B, manualRetail decimal.NullDecimal) PricingOutcome {
	b2b := ComputeChannel(ChannelB2B, cost, rule, manualB2B)
	retail := ComputeChannel(ChannelRetail, cost, rule, manualRetail)

	outcome := PricingOutcome{
		Cost:                cost,
		B2BPrice:            b2b.Price,
		RetailPrice:         retail.Price,
		B2BMarginPercent:    b2b.MarginPercent,
		RetailMarginPercent: retail.MarginPercent,
		B2BSource:           b2b.Source,
		RetailSource:        retail.Source,
		B2BClamp:            b2b.Clamp,
		RetailClamp:         retail.Clamp,
	}
	if rule != nil {
		applied := *rule
		outcome.AppliedRule = &applied
	}
	return outcome
}

// ComputeChannel prices one channel
func ComputeChannel(channel Channel, cost decimal.Decimal, rule *MarkupRule, manual decimal.NullDecimal) ChannelPrice {
	result := ChannelPrice{
		Price:  decimal.Zero,
		Source: PriceSourceNone,
		Clamp:  ClampNone,
	}

	switch {
	case manual.Valid:
		result.Price = manual.Decimal
		result.Source = PriceSourceManual
	case rule != nil:
		policy := rule.Policy(channel)
		result.Price, result.Clamp = clamp(PriceFromMarkup(cost, policy.MarkupPercent), policy.MinPrice, policy.MaxPrice)
		result.Source = PriceSourceRule
	}

	result.MarginPercent = MarginPercentFromPrices(cost, result.Price)
	return result
}

// clamp applies min first and then max to the value produced by the min step
func clamp(raw decimal.Decimal, minPrice, maxPrice decimal.NullDecimal) (decimal.Decimal, ClampResult) {
	price := raw
	applied := ClampNone

	if minPrice.Valid && price.LessThan(minPrice.Decimal) {
		price = minPrice.Decimal
		applied = ClampMin
	}
	if maxPrice.Valid && maxPrice.Decimal.LessThan(price) {
		price = maxPrice.Decimal
		applied = ClampMax
	}
	// a negative bound never produces a negative price
	if price.IsNegative() {
		price = decimal.Zero
	}

	return price, applied
}
