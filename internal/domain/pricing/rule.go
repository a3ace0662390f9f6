package pricing

import (
	"github.com/shopspring/decimal"
)

// Channel is one of the two independent pricing tracks
type Channel string

const (
	ChannelB2B    Channel = "b2b"
	ChannelRetail Channel = "retail"
)

// String returns the string representation of the channel
func (c Channel) String() string {
	return string(c)
}

// AllChannels returns the channels in evaluation order
func AllChannels() []Channel {
	return []Channel{ChannelB2B, ChannelRetail}
}

// MarkupRule is a pricing policy bound to a scope
type MarkupRule struct {
	ID       string
	Scope    Scope
	Priority int // Higher wins, regardless of scope specificity

	B2BMarkupPercent    decimal.Decimal
	RetailMarkupPercent decimal.Decimal

	MinB2BPrice    decimal.NullDecimal
	MaxB2BPrice    decimal.NullDecimal
	MinRetailPrice decimal.NullDecimal
	MaxRetailPrice decimal.NullDecimal

	IsActive bool
}

// ChannelPolicy is the markup and clamp bounds of a rule for one channel
type ChannelPolicy struct {
	MarkupPercent decimal.Decimal
	MinPrice      decimal.NullDecimal
	MaxPrice      decimal.NullDecimal
}

// Policy returns the rule's settings for the given channel
func (r MarkupRule) Policy(channel Channel) ChannelPolicy {
	if channel == ChannelRetail {
		return ChannelPolicy{
			MarkupPercent: r.RetailMarkupPercent,
			MinPrice:      r.MinRetailPrice,
			MaxPrice:      r.MaxRetailPrice,
		}
	}
	return ChannelPolicy{
		MarkupPercent: r.B2BMarkupPercent,
		MinPrice:      r.MinB2BPrice,
		MaxPrice:      r.MaxB2BPrice,
	}
}

// Matches reports whether the rule is active and its scope covers the keys
func (r MarkupRule) Matches(keys ScopeKeys) bool {
	return r.IsActive && r.Scope != nil && r.Scope.Matches(keys)
}

// Price returns a NullDecimal holding v
func Price(v decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: v, Valid: true}
}

// NoPrice is the absent optional price
var NoPrice = decimal.NullDecimal{}
