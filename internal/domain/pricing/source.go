package pricing

import "context"

// RuleSource supplies a snapshot of markup rules. The host's rule store implements it;
// the returned slice is treated as read-only for the duration of a pricing call.
type RuleSource interface {
	Rules(ctx context.Context) ([]MarkupRule, error)
}
