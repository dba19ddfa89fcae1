// Package coupon computes discount applications for coupon codes against a
// cart. The computation is pure; persistence and lookup stay in the handlers.
package coupon

import (
	"errors"
	"fmt"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
)

// Application errors
var (
	ErrNotActive   = errors.New("coupon is not active")
	ErrNoEligible  = errors.New("coupon does not apply to any item in the cart")
	ErrUnknownType = errors.New("unknown coupon type")
)

// CartItem is one cart line as seen by the validator
type CartItem struct {
	ProductID  uint    `json:"product_id"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Qty        int     `json:"qty"`
	IsPreOrder bool    `json:"is_pre_order"`
}

// Result is a successful coupon application
type Result struct {
	Discount         float64 `json:"discount"`
	EligibleSubtotal float64 `json:"eligible_subtotal"`
	EligibleCount    int     `json:"eligible_count"`
	TotalCount       int     `json:"total_count"`
	Message          string  `json:"message,omitempty"`
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsID(values []uint, v uint) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Apply computes the discount a coupon yields on a cart.
//
// Eligibility: pre-order items are excluded unless the coupon allows them;
// category- and product-scoped coupons keep only matching items; store scope
// keeps everything not already excluded. Zero eligible items fails the whole
// application. A flat discount is capped at the eligible subtotal so the
// discount never exceeds what it applies to. When only part of the cart was
// eligible the result carries an informational message.
func Apply(c *model.Coupon, items []CartItem) (Result, error) {
	if c.Status != model.CouponStatusActive {
		return Result{}, ErrNotActive
	}

	var eligible []CartItem
	for _, item := range items {
		if item.IsPreOrder && !c.AllowPreOrder {
			continue
		}
		switch c.Scope {
		case model.CouponScopeCategory:
			if !contains(c.CategoryNames(), item.Category) {
				continue
			}
		case model.CouponScopeProduct:
			if !containsID(c.ProductIDs(), item.ProductID) {
				continue
			}
		}
		eligible = append(eligible, item)
	}

	if len(eligible) == 0 {
		return Result{}, ErrNoEligible
	}

	var eligibleSubtotal float64
	for _, item := range eligible {
		eligibleSubtotal += item.Price * float64(item.Qty)
	}

	var discount float64
	switch c.Type {
	case model.CouponTypePercentage:
		discount = eligibleSubtotal * c.Discount / 100
	case model.CouponTypeFlat:
		discount = c.Discount
		if discount > eligibleSubtotal {
			discount = eligibleSubtotal
		}
	default:
		return Result{}, ErrUnknownType
	}

	result := Result{
		Discount:         discount,
		EligibleSubtotal: eligibleSubtotal,
		EligibleCount:    len(eligible),
		TotalCount:       len(items),
	}
	if len(eligible) < len(items) {
		result.Message = fmt.Sprintf("coupon %s applied to %d of %d items", c.Code, len(eligible), len(items))
	}

	return result, nil
}
