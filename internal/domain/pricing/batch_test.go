package pricing

import (
	"context"
	"fmt"
	"testing"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchFixture() ([]ProductPricingInput, []MarkupRule) {
	rules := []MarkupRule{
		rule("global", GlobalScope{}, 1, "10"),
		rule("brand-b1", BrandScope{BrandID: "B1"}, 5, "30"),
		rule("category-c1", CategoryScope{CategoryID: "C1"}, 3, "20"),
	}

	products := []ProductPricingInput{
		{ID: "p1", Cost: dec("100"), BrandID: "B1"},
		{ID: "p2", Cost: dec("100"), CategoryID: "C1"},
		{ID: "p3", Cost: dec("100")},
		{ID: "p4", Cost: dec("-1"), BrandID: "B1"},
		{ID: "p5", Cost: dec("100"), ManualRetailPrice: Price(dec("99"))},
	}
	return products, rules
}

func TestBatchCompute(t *testing.T) {
	products, rules := batchFixture()

	results := BatchCompute(products, rules)
	require.Len(t, results, len(products))

	for i, r := range results {
		assert.Equal(t, products[i].ID, r.ProductID)
	}

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "brand-b1", results[0].Outcome.AppliedRule.ID)
	assert.True(t, results[0].Outcome.B2BPrice.Equal(dec("130")))

	assert.Equal(t, "category-c1", results[1].Outcome.AppliedRule.ID)
	assert.True(t, results[1].Outcome.B2BPrice.Equal(dec("120")))

	assert.Equal(t, "global", results[2].Outcome.AppliedRule.ID)
	assert.True(t, results[2].Outcome.B2BPrice.Equal(dec("110")))

	assert.ErrorIs(t, results[3].Err, shared.ErrInvalidInput)
	assert.Nil(t, results[3].Outcome.AppliedRule)

	assert.NoError(t, results[4].Err)
	assert.True(t, results[4].Outcome.RetailPrice.Equal(dec("99")))
	assert.Equal(t, PriceSourceManual, results[4].Outcome.RetailSource)
}

func TestBatchCompute_Empty(t *testing.T) {
	assert.Empty(t, BatchCompute(nil, nil))
}

func TestProductPricingInput_Check(t *testing.T) {
	tests := []struct {
		name    string
		input   ProductPricingInput
		wantErr bool
	}{
		{"valid", ProductPricingInput{ID: "a", Cost: dec("1")}, false},
		{"zero cost", ProductPricingInput{ID: "a", Cost: dec("0")}, false},
		{"negative cost", ProductPricingInput{ID: "a", Cost: dec("-0.01")}, true},
		{"negative manual b2b", ProductPricingInput{ID: "a", Cost: dec("1"), ManualB2BPrice: Price(dec("-1"))}, true},
		{"negative manual retail", ProductPricingInput{ID: "a", Cost: dec("1"), ManualRetailPrice: Price(dec("-1"))}, true},
		{"zero manual price", ProductPricingInput{ID: "a", Cost: dec("1"), ManualRetailPrice: Price(dec("0"))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Check()
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBatchComputeConcurrent_MatchesSequential(t *testing.T) {
	_, rules := batchFixture()
	products := make([]ProductPricingInput, 0, 200)
	for i := 0; i < 200; i++ {
		p := ProductPricingInput{ID: fmt.Sprintf("p%03d", i), Cost: dec(fmt.Sprintf("%d.50", i))}
		switch i % 4 {
		case 0:
			p.BrandID = "B1"
		case 1:
			p.CategoryID = "C1"
		case 2:
			p.Cost = dec("-3")
		}
		products = append(products, p)
	}

	want := BatchCompute(products, rules)

	for _, workers := range []int{0, 1, 4, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := BatchComputeConcurrent(context.Background(), products, rules, workers)
			require.NoError(t, err)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].ProductID, got[i].ProductID)
				assert.Equal(t, want[i].Err == nil, got[i].Err == nil)
				assert.True(t, want[i].Outcome.B2BPrice.Equal(got[i].Outcome.B2BPrice))
				assert.True(t, want[i].Outcome.RetailPrice.Equal(got[i].Outcome.RetailPrice))
			}
		})
	}
}

func TestBatchComputeConcurrent_Cancelled(t *testing.T) {
	products, rules := batchFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := BatchComputeConcurrent(ctx, products, rules, 2)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, len(products))

	for i, r := range results {
		assert.Equal(t, products[i].ID, r.ProductID)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
