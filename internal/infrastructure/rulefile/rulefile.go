// Package rulefile loads a read-only snapshot of markup rules from a JSON document.
package rulefile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Record is the JSON form of a markup rule. Absent or null bounds are unset.
type Record struct {
	ID                  string              `json:"id"`
	Scope               string              `json:"scope"`
	TargetID            string              `json:"target_id,omitempty"`
	Priority            int                 `json:"priority"`
	B2BMarkupPercent    decimal.Decimal     `json:"b2b_markup_percent"`
	RetailMarkupPercent decimal.Decimal     `json:"retail_markup_percent"`
	MinB2BPrice         decimal.NullDecimal `json:"min_b2b_price"`
	MaxB2BPrice         decimal.NullDecimal `json:"max_b2b_price"`
	MinRetailPrice      decimal.NullDecimal `json:"min_retail_price"`
	MaxRetailPrice      decimal.NullDecimal `json:"max_retail_price"`
	IsActive            *bool               `json:"is_active,omitempty"` // Defaults to true
}

// Document is the top-level JSON layout of a rules file
type Document struct {
	Rules []Record `json:"rules"`
}

// ToRule converts the record to a domain rule
func (r Record) ToRule() (pricing.MarkupRule, error) {
	if r.ID == "" {
		return pricing.MarkupRule{}, fmt.Errorf("%w: rule id is required", shared.ErrInvalidInput)
	}
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
		MinB2BPrice:         r.MinB2BPrice,
		MaxB2BPrice:         r.MaxB2BPrice,
		MinRetailPrice:      r.MinRetailPrice,
		MaxRetailPrice:      r.MaxRetailPrice,
		IsActive:            active,
	}, nil
}

// Parse decodes a rules document. Rule order is kept, since it breaks priority ties.
func Parse(r io.Reader) ([]pricing.MarkupRule, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode rules: %v", shared.ErrInvalidInput, err)
	}

	rules := make([]pricing.MarkupRule, 0, len(doc.Rules))
	seen := make(map[string]struct{}, len(doc.Rules))
	for i, rec := range doc.Rules {
		rule, err := rec.ToRule()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, fmt.Errorf("rules[%d]: %w: duplicate rule id '%s'", i, shared.ErrInvalidInput, rule.ID)
		}
		seen[rule.ID] = struct{}{}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Snapshot is an immutable rule set loaded once from a file. It implements
// pricing.RuleSource.
type Snapshot struct {
	path  string
	rules []pricing.MarkupRule
}

// NewSnapshot wraps rules that are already in memory
func NewSnapshot(rules []pricing.MarkupRule) *Snapshot {
	return &Snapshot{rules: append([]pricing.MarkupRule(nil), rules...)}
}

// Load reads and parses the rules file at path
func Load(path string, logger *zap.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	rules, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	active := 0
	for _, r := range rules {
		if r.IsActive {
			active++
		}
	}
	logger.Info("Rule snapshot loaded",
		zap.String("path", path),
		zap.Int("rules", len(rules)),
		zap.Int("active", active),
	)

	return &Snapshot{path: path, rules: rules}, nil
}

// Rules returns a copy of the snapshot
func (s *Snapshot) Rules(_ context.Context) ([]pricing.MarkupRule, error) {
	return append([]pricing.MarkupRule(nil), s.rules...), nil
}

// Path returns the file the snapshot was loaded from, empty for in-memory snapshots
func (s *Snapshot) Path() string {
	return s.path
}

// Len returns the number of rules
func (s *Snapshot) Len() int {
	return len(s.rules)
}

var _ pricing.RuleSource = (*Snapshot)(nil)
