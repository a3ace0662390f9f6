package pricing

import (
	"sort"
)

// ResolveRule selects the rule that applies to a product with the given scope identifiers.
//
// Inactive rules are discarded and the rest are ordered by priority descending, keeping
// input order among equal priorities. The first rule whose scope matches wins, so a
// global rule with a higher priority beats a brand rule with a lower one.
// Returns nil when nothing matches. The rules slice is not modified.
func ResolveRule(rules []MarkupRule, brandID, manufacturerID, categoryID string) *MarkupRule {
	return ResolveRuleForKeys(rules, ScopeKeys{
		BrandID:        brandID,
		ManufacturerID: manufacturerID,
		CategoryID:     categoryID,
	})
}

// ResolveRuleForKeys is ResolveRule with the identifiers grouped in ScopeKeys
func ResolveRuleForKeys(rules []MarkupRule, keys ScopeKeys) *MarkupRule {
	active := make([]MarkupRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority > active[j].Priority
	})

	for i := range active {
		if active[i].Matches(keys) {
			rule := active[i]
			return &rule
		}
	}

	return nil
}
