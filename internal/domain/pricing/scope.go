// Package pricing implements the markup/margin pricing engine: rule resolution,
// per-channel price computation, batch pricing and constraint diagnostics.
package pricing

import (
	"fmt"
	"strings"

	"github.com/erp/pricing/internal/domain/shared"
)

// ScopeKind identifies the dimension a markup rule applies to
type ScopeKind string

const (
	ScopeKindBrand        ScopeKind = "brand"
	ScopeKindManufacturer ScopeKind = "manufacturer"
	ScopeKindCategory     ScopeKind = "category"
	ScopeKindGlobal       ScopeKind = "global"
)

// String returns the string representation of the scope kind
func (k ScopeKind) String() string {
	return string(k)
}

// IsValid returns true if the scope kind is known
func (k ScopeKind) IsValid() bool {
	switch k {
	case ScopeKindBrand, ScopeKindManufacturer, ScopeKindCategory, ScopeKindGlobal:
		return true
	default:
		return false
	}
}

// ScopeKeys holds the scope identifiers of a product. An empty string means absent.
type ScopeKeys struct {
	BrandID        string
	ManufacturerID string
	CategoryID     string
}

// Scope is the closed set of rule scopes. Only the types in this package implement it.
type Scope interface {
	Kind() ScopeKind
	// TargetID returns the identifier the scope is bound to, empty for the global scope
	TargetID() string
	Matches(keys ScopeKeys) bool
	isScope()
}

// BrandScope applies a rule to products of one brand
type BrandScope struct {
	BrandID string
}

func (s BrandScope) Kind() ScopeKind {
	return ScopeKindBrand
}

func (s BrandScope) TargetID() string {
	return s.BrandID
}

func (s BrandScope) Matches(keys ScopeKeys) bool {
	return keys.BrandID != "" && keys.BrandID == s.BrandID
}

func (BrandScope) isScope() {}

// ManufacturerScope applies a rule to products of one manufacturer
type ManufacturerScope struct {
	ManufacturerID string
}

func (s ManufacturerScope) Kind() ScopeKind {
	return ScopeKindManufacturer
}

func (s ManufacturerScope) TargetID() string {
	return s.ManufacturerID
}

func (s ManufacturerScope) Matches(keys ScopeKeys) bool {
	return keys.ManufacturerID != "" && keys.ManufacturerID == s.ManufacturerID
}

func (ManufacturerScope) isScope() {}

// CategoryScope applies a rule to products of one category
type CategoryScope struct {
	CategoryID string
}

func (s CategoryScope) Kind() ScopeKind {
	return ScopeKindCategory
}

func (s CategoryScope) TargetID() string {
	return s.CategoryID
}

func (s CategoryScope) Matches(keys ScopeKeys) bool {
	return keys.CategoryID != "" && keys.CategoryID == s.CategoryID
}

func (CategoryScope) isScope() {}

// GlobalScope applies a rule to every product
type GlobalScope struct{}

func (GlobalScope) Kind() ScopeKind {
	return ScopeKindGlobal
}

func (GlobalScope) TargetID() string {
	return ""
}

func (GlobalScope) Matches(_ ScopeKeys) bool {
	return true
}

func (GlobalScope) isScope() {}

// ParseScope builds a Scope from its wire form. Specific scopes require a target,
// the global scope must not carry one.
func ParseScope(kind, targetID string) (Scope, error) {
	k := ScopeKind(strings.ToLower(strings.TrimSpace(kind)))
	target := strings.TrimSpace(targetID)

	if !k.IsValid() {
		return nil, fmt.Errorf("%w: unknown scope '%s'", shared.ErrInvalidInput, kind)
	}

	if k == ScopeKindGlobal {
		if target != "" {
			return nil, fmt.Errorf("%w: global scope cannot have a target id", shared.ErrInvalidInput)
		}
		return GlobalScope{}, nil
	}

	if target == "" {
		return nil, fmt.Errorf("%w: %s scope requires a target id", shared.ErrInvalidInput, k)
	}

	switch k {
	case ScopeKindBrand:
		return BrandScope{BrandID: target}, nil
	case ScopeKindManufacturer:
		return ManufacturerScope{ManufacturerID: target}, nil
	default:
		return CategoryScope{CategoryID: target}, nil
	}
}
