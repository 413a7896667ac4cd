package domain

import (
	"github.com/shopspring/decimal" // Fixed-point money
)

// Kind values for Transaction.Kind
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Status values for Transaction.Status
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// EntryMethod values for Transaction.EntryMethod
const (
	EntryManual = "manual"
	EntrySynced = "synced"
)

// Transaction Model
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                        // Primary key
	UserID      uint            `gorm:"index;not null" json:"user_id"`               // Foreign key to the owning User
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`   // Unsigned magnitude, always > 0
	Kind        string          `gorm:"size:10;not null" json:"type"`                // income or expense
	Date        string          `gorm:"size:10;not null" json:"date"`                // Occurrence date, YYYY-MM-DD
	Time        string          `gorm:"size:8;not null" json:"time"`                 // Occurrence time, HH:MM:SS
	Category    string          `gorm:"size:50" json:"category"`                     // Category label
	Source      string          `gorm:"size:100" json:"source"`                      // Free-text provenance label
	Status      string          `gorm:"size:10;default:confirmed" json:"status"`     // pending or confirmed
	EntryMethod string          `gorm:"size:10;default:manual" json:"entry_method"`  // manual or synced
	CreatedAt   int64           `gorm:"autoCreateTime:milli" json:"created_at"`      // Timestamp of creation in milliseconds
}

// Effect returns the signed balance delta this transaction contributes while
// confirmed: +Amount for income, -Amount for expense.
func (t *Transaction) Effect() decimal.Decimal {
	if t.Kind == KindIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}
