package stock

import (
	"testing"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFixture() map[uint]*model.Product {
	return map[uint]*model.Product{
		1: {
			ID:       1,
			Name:     "Linen Duvet Cover",
			Variants: []model.ProductVariant{{Size: "Queen", Price: 100}},
			Colors:   []model.ProductColor{{Name: "White"}},
			VariantStock: []model.VariantStock{
				{VariantKey: "Queen-White", Quantity: 2},
			},
		},
		2: {
			ID:    2,
			Name:  "Ceramic Vase",
			Stock: 10,
		},
	}
}

func TestValidateOrderItemsAllGood(t *testing.T) {
	problems := ValidateOrderItems(catalogFixture(), []ItemRequest{
		{ProductID: 1, Qty: 2, Size: "Queen", Color: "White"},
		{ProductID: 2, Qty: 1},
	})
	assert.Empty(t, problems)
}

func TestValidateOrderItemsCollectsEveryProblem(t *testing.T) {
	problems := ValidateOrderItems(catalogFixture(), []ItemRequest{
		{ProductID: 0, Qty: 1},  // missing product id
		{ProductID: 99, Qty: 1}, // unknown product
		{ProductID: 1, Qty: 1, Size: "Twin", Color: "Chartreuse"}, // size and color not offered
		{ProductID: 1, Qty: 5, Size: "Queen", Color: "White"},     // more than in stock
	})

	// Not fail-fast: every item's problems are reported together
	require.Len(t, problems, 5)
	assert.Contains(t, problems[0], "missing product id")
	assert.Contains(t, problems[1], "not found")
	assert.Contains(t, problems[2], "color")
	assert.Contains(t, problems[3], "size")
	assert.Contains(t, problems[4], "in stock")
}

func TestValidateOrderItemsOutOfStock(t *testing.T) {
	products := catalogFixture()
	products[1].VariantStock[0].Quantity = 0

	problems := ValidateOrderItems(products, []ItemRequest{
		{ProductID: 1, Qty: 1, Size: "Queen", Color: "White"},
	})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "out of stock")
}

func TestValidateOrderItemsRejectsZeroQty(t *testing.T) {
	problems := ValidateOrderItems(catalogFixture(), []ItemRequest{
		{ProductID: 2, Qty: 0},
	})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "quantity")
}

func TestValidatePosItemsIgnoresOptionLists(t *testing.T) {
	// The counter does not care that "Chartreuse" is not a declared color:
	// the size-only fallback still finds Queen-White stock
	problems := ValidatePosItems(catalogFixture(), []ItemRequest{
		{ProductID: 1, Qty: 1, Size: "Queen", Color: "Chartreuse"},
	})
	assert.Empty(t, problems)
}

func TestValidatePosItemsDefaultsToFirstVariant(t *testing.T) {
	// Omitted size and color resolve to the first declared variant/color
	problems := ValidatePosItems(catalogFixture(), []ItemRequest{
		{ProductID: 1, Qty: 2},
	})
	assert.Empty(t, problems)

	problems = ValidatePosItems(catalogFixture(), []ItemRequest{
		{ProductID: 1, Qty: 3},
	})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "in stock")
}
