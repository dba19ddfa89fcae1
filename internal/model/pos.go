package model

import (
	"time"
)

// POS transaction statuses. Completed is the normal end state; cancelled and
// refunded both put the sold stock back.
const (
	PosStatusCompleted = "completed"
	PosStatusCancelled = "cancelled"
	PosStatusRefunded  = "refunded"
)

// PosTransaction is an in-store sale rung up at the counter
type PosTransaction struct {
	ID                uint                 `json:"id" gorm:"primarykey"`
	TransactionNumber string               `json:"transaction_number" gorm:"type:varchar(30);uniqueIndex;not null"`
	CashierID         *uint                `json:"cashier_id,omitempty" gorm:"index"`
	Subtotal          float64              `json:"subtotal" gorm:"not null"`
	Discount          float64              `json:"discount" gorm:"default:0"`
	GSTPercentage     float64              `json:"gst_percentage" gorm:"default:0"`
	GSTAmount         float64              `json:"gst_amount" gorm:"default:0"`
	Total             float64              `json:"total" gorm:"not null"`
	AmountReceived    float64              `json:"amount_received" gorm:"not null"`
	Change            float64              `json:"change" gorm:"default:0"`
	PaymentMethod     string               `json:"payment_method" gorm:"type:varchar(50);default:'cash'"`
	Status            string               `json:"status" gorm:"type:varchar(30);index;not null;default:'completed'"`
	Items             []PosTransactionItem `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// PosTransactionItem is one line of a POS sale
type PosTransactionItem struct {
	ID               uint    `json:"id" gorm:"primarykey"`
	PosTransactionID uint    `json:"pos_transaction_id" gorm:"index;not null"`
	ProductID        uint    `json:"product_id" gorm:"index;not null"`
	Name             string  `json:"name" gorm:"type:varchar(255);not null"`
	Qty              int     `json:"qty" gorm:"not null"`
	Price            float64 `json:"price" gorm:"not null"`
	Size             string  `json:"size,omitempty" gorm:"type:varchar(50)"`
	Color            string  `json:"color,omitempty" gorm:"type:varchar(50)"`
}
