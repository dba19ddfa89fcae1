package model

import (
	"time"

	"gorm.io/gorm"
)

// Customer roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Customer represents a storefront account. Admin back-office users are
// customers with Role set to admin.
type Customer struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"type:varchar(255);not null"`
	Name      string         `json:"name" gorm:"type:varchar(255)"`
	Phone     string         `json:"phone" gorm:"type:varchar(50)"`
	Address   string         `json:"address" gorm:"type:text"`
	City      string         `json:"city" gorm:"type:varchar(100)"`
	Postal    string         `json:"postal" gorm:"type:varchar(20)"`
	Role      string         `json:"role" gorm:"type:varchar(20);not null;default:'customer'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
