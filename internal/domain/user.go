package domain

import (
	"time"

	"github.com/shopspring/decimal" // Fixed-point money
)

// Role values for User.Role
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User Model
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                         // Primary key
	Username     string          `gorm:"size:50;uniqueIndex;not null" json:"username"` // Unique username, stored lowercase
	Password     string          `gorm:"size:100;not null" json:"-"`                   // Hashed password, never serialized
	Phone        string          `gorm:"size:20" json:"phone"`                         // Contact phone number
	Role         string          `gorm:"size:10;default:user" json:"role"`             // Role: user or admin
	Balance      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance"`   // Running balance, mutated only by the ledger
	IsActive     bool            `gorm:"not null;default:true" json:"active"`          // Deactivated accounts cannot log in
	CreatedAt    time.Time       `json:"created_at"`                                   // Timestamp of creation
	Transactions []Transaction   `gorm:"constraint:OnDelete:CASCADE" json:"-"`         // Owned transactions, removed with the user
}
