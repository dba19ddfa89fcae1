package model

import (
	"time"

	"gorm.io/gorm"
)

// Coupon discount types and scopes
const (
	CouponTypePercentage = "percentage"
	CouponTypeFlat       = "flat"

	CouponScopeStore    = "store"
	CouponScopeCategory = "category"
	CouponScopeProduct  = "product"

	CouponStatusActive   = "active"
	CouponStatusInactive = "inactive"
)

// Coupon is a discount code. Scope restricts which cart items the discount
// applies to; AllowedCategories/AllowedProducts are consulted only when the
// scope matches.
type Coupon struct {
	ID                uint             `json:"id" gorm:"primarykey"`
	Code              string           `json:"code" gorm:"type:varchar(50);uniqueIndex;not null"`
	Discount          float64          `json:"discount" gorm:"not null"`
	Type              string           `json:"type" gorm:"type:varchar(20);not null;default:'percentage'"`
	Scope             string           `json:"scope" gorm:"type:varchar(20);not null;default:'store'"`
	AllowedCategories []CouponCategory `json:"allowed_categories" gorm:"constraint:OnDelete:CASCADE"`
	AllowedProducts   []CouponProduct  `json:"allowed_products" gorm:"constraint:OnDelete:CASCADE"`
	AllowPreOrder     bool             `json:"allow_pre_order" gorm:"default:false"`
	Status            string           `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	UsageCount        int              `json:"usage_count" gorm:"default:0"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `json:"deleted_at,omitempty" gorm:"index"`
}

// CouponCategory is a category name a category-scoped coupon applies to
type CouponCategory struct {
	ID       uint   `json:"id" gorm:"primarykey"`
	CouponID uint   `json:"coupon_id" gorm:"index;not null"`
	Category string `json:"category" gorm:"type:varchar(100);not null"`
}

// CouponProduct is a product a product-scoped coupon applies to
type CouponProduct struct {
	ID        uint `json:"id" gorm:"primarykey"`
	CouponID  uint `json:"coupon_id" gorm:"index;not null"`
	ProductID uint `json:"product_id" gorm:"index;not null"`
}

// CategoryNames returns the allowed category names as a slice
func (c *Coupon) CategoryNames() []string {
	names := make([]string, 0, len(c.AllowedCategories))
	for _, ac := range c.AllowedCategories {
		names = append(names, ac.Category)
	}
	return names
}

// ProductIDs returns the allowed product IDs as a slice
func (c *Coupon) ProductIDs() []uint {
	ids := make([]uint, 0, len(c.AllowedProducts))
	for _, ap := range c.AllowedProducts {
		ids = append(ids, ap.ProductID)
	}
	return ids
}
