package model

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a catalog product. Pricing is the base Price unless a
// size-specific ProductVariant overrides it. Per-variant inventory lives in
// VariantStock rows keyed "{size}-{color}"; Stock is the aggregate fallback
// for products that never populate variant rows.
type Product struct {
	ID                uint             `json:"id" gorm:"primarykey"`
	Name              string           `json:"name" gorm:"type:varchar(255);not null"`
	Description       string           `json:"description" gorm:"type:text"`
	SKU               string           `json:"sku" gorm:"type:varchar(100);unique;not null"`
	Category          string           `json:"category" gorm:"type:varchar(100);index"`
	Price             float64          `json:"price" gorm:"not null"`
	Stock             int              `json:"stock" gorm:"default:0"`
	LowStockThreshold int              `json:"low_stock_threshold" gorm:"default:5"`
	ShowOnStorefront  bool             `json:"show_on_storefront" gorm:"default:true;index"`
	IsPreOrder        bool             `json:"is_pre_order" gorm:"default:false"`
	Variants          []ProductVariant `json:"variants" gorm:"constraint:OnDelete:CASCADE"`
	Colors            []ProductColor   `json:"colors" gorm:"constraint:OnDelete:CASCADE"`
	VariantStock      []VariantStock   `json:"variant_stock" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `json:"deleted_at,omitempty" gorm:"index"`
}

// ProductVariant is a size option with its own price
type ProductVariant struct {
	ID        uint    `json:"id" gorm:"primarykey"`
	ProductID uint    `json:"product_id" gorm:"index;not null"`
	Size      string  `json:"size" gorm:"type:varchar(50);not null"`
	Price     float64 `json:"price" gorm:"not null"`
	Position  int     `json:"position" gorm:"default:0"`
}

// ProductColor is a color option with its storefront image
type ProductColor struct {
	ID        uint   `json:"id" gorm:"primarykey"`
	ProductID uint   `json:"product_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"type:varchar(50);not null"`
	ImageURL  string `json:"image_url" gorm:"type:varchar(512)"`
	Position  int    `json:"position" gorm:"default:0"`
}

// VariantStock is the inventory count for one "{size}-{color}" combination.
// The map is sparse: not every size x color pair has a row. Quantity never
// goes below zero; deductions are conditional updates.
type VariantStock struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	ProductID  uint      `json:"product_id" gorm:"uniqueIndex:idx_product_variant_key;not null"`
	VariantKey string    `json:"variant_key" gorm:"type:varchar(120);uniqueIndex:idx_product_variant_key;not null"`
	Quantity   int       `json:"quantity" gorm:"not null;default:0"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StockMap returns the product's variant stock as a key -> quantity map
func (p *Product) StockMap() map[string]int {
	m := make(map[string]int, len(p.VariantStock))
	for _, vs := range p.VariantStock {
		m[vs.VariantKey] = vs.Quantity
	}
	return m
}

// VariantPrice returns the price for the given size, falling back to the
// base price when no variant declares that size.
func (p *Product) VariantPrice(size string) float64 {
	for _, v := range p.Variants {
		if v.Size == size {
			return v.Price
		}
	}
	return p.Price
}

// HasSize reports whether the product declares the given size
func (p *Product) HasSize(size string) bool {
	for _, v := range p.Variants {
		if v.Size == size {
			return true
		}
	}
	return false
}

// HasColor reports whether the product declares the given color
func (p *Product) HasColor(color string) bool {
	for _, c := range p.Colors {
		if c.Name == color {
			return true
		}
	}
	return false
}
