package model

import (
	"time"
)

// Order statuses. No transition table is enforced: operators may move an
// order between any two statuses. The one special transition is into
// StatusCancelled, which restores the stock the order deducted.
const (
	StatusPending             = "pending"
	StatusConfirmed           = "confirmed"
	StatusPaymentVerification = "payment_verification"
	StatusProcessing          = "processing"
	StatusShipped             = "shipped"
	StatusInTransit           = "in_transit"
	StatusOutForDelivery      = "out_for_delivery"
	StatusDelivered           = "delivered"
	StatusDeliveryException   = "delivery_exception"
	StatusCancelled           = "cancelled"
	StatusRefunded            = "refunded"
)

// OrderStatuses lists every valid order status
var OrderStatuses = []string{
	StatusPending,
	StatusConfirmed,
	StatusPaymentVerification,
	StatusProcessing,
	StatusShipped,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusDeliveryException,
	StatusCancelled,
	StatusRefunded,
}

// IsValidOrderStatus reports whether s is one of the known order statuses
func IsValidOrderStatus(s string) bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order is a storefront order. Monetary fields are derived server-side from
// catalog prices at creation time; client-submitted totals are ignored.
type Order struct {
	ID              uint               `json:"id" gorm:"primarykey"`
	OrderNumber     string             `json:"order_number" gorm:"type:varchar(12);uniqueIndex;not null"`
	CustomerID      *uint              `json:"customer_id,omitempty" gorm:"index"`
	CustomerName    string             `json:"customer_name" gorm:"type:varchar(255);not null"`
	CustomerEmail   string             `json:"customer_email" gorm:"type:varchar(255);not null"`
	CustomerPhone   string             `json:"customer_phone" gorm:"type:varchar(50)"`
	ShippingAddress string             `json:"shipping_address" gorm:"type:text"`
	ShippingCity    string             `json:"shipping_city" gorm:"type:varchar(100)"`
	ShippingPostal  string             `json:"shipping_postal" gorm:"type:varchar(20)"`
	PaymentMethod   string             `json:"payment_method" gorm:"type:varchar(50)"`
	CouponCode      string             `json:"coupon_code,omitempty" gorm:"type:varchar(50)"`
	Subtotal        float64            `json:"subtotal" gorm:"not null"`
	Discount        float64            `json:"discount" gorm:"default:0"`
	Shipping        float64            `json:"shipping" gorm:"default:0"`
	Total           float64            `json:"total" gorm:"not null"`
	Status          string             `json:"status" gorm:"type:varchar(30);index;not null;default:'pending'"`
	Items           []OrderItem        `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	StatusHistory   []OrderStatusEvent `json:"status_history" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// OrderItem is one line of an order. Price is the catalog price captured at
// order time; Size and Color identify the variant the stock was taken from.
type OrderItem struct {
	ID         uint    `json:"id" gorm:"primarykey"`
	OrderID    uint    `json:"order_id" gorm:"index;not null"`
	ProductID  uint    `json:"product_id" gorm:"index;not null"`
	Name       string  `json:"name" gorm:"type:varchar(255);not null"`
	Qty        int     `json:"qty" gorm:"not null"`
	Price      float64 `json:"price" gorm:"not null"`
	Size       string  `json:"size,omitempty" gorm:"type:varchar(50)"`
	Color      string  `json:"color,omitempty" gorm:"type:varchar(50)"`
	IsPreOrder bool    `json:"is_pre_order" gorm:"default:false"`
}

// OrderStatusEvent is one entry of the append-only status history. An event
// is written at creation and on every later transition.
type OrderStatusEvent struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	OrderID   uint      `json:"order_id" gorm:"index;not null"`
	Status    string    `json:"status" gorm:"type:varchar(30);not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}
