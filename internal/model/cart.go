package model

import (
	"time"
)

// Cart is a server-side shopping cart identified by an opaque token issued
// at creation. Carts hold item references only; prices and stock are
// resolved from the catalog at checkout.
type Cart struct {
	ID         uint       `json:"id" gorm:"primarykey"`
	Token      string     `json:"token" gorm:"type:varchar(40);uniqueIndex;not null"`
	CustomerID *uint      `json:"customer_id,omitempty" gorm:"index"`
	Items      []CartItem `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one line of a cart
type CartItem struct {
	ID        uint   `json:"id" gorm:"primarykey"`
	CartID    uint   `json:"cart_id" gorm:"index;not null"`
	ProductID uint   `json:"product_id" gorm:"index;not null"`
	Qty       int    `json:"qty" gorm:"not null"`
	Size      string `json:"size,omitempty" gorm:"type:varchar(50)"`
	Color     string `json:"color,omitempty" gorm:"type:varchar(50)"`
}
