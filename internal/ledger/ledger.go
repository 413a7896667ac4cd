// Package ledger owns the rule that a user's stored balance always equals
// their initial balance plus the signed sum of their confirmed transactions.
// Every balance mutation in the system goes through one of its operations.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Abiya4/expense-tracker/internal/domain" // Models and error taxonomy

	"github.com/shopspring/decimal" // Fixed-point money
	"github.com/sirupsen/logrus"    // Structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// Input describes a transaction to record via Add.
type Input struct {
	Amount      decimal.Decimal // Unsigned magnitude, must be > 0
	Kind        string          // income or expense, defaults to expense
	Category    string          // Category label
	Source      string          // Free-text provenance label
	Date        string          // YYYY-MM-DD, defaults to today
	Time        string          // HH:MM:SS, defaults to now
	Status      string          // pending or confirmed; defaults by entry method
	EntryMethod string          // manual or synced, defaults to manual
}

// Changes carries the editable fields for Edit. A nil field keeps the stored
// value.
type Changes struct {
	Amount   *decimal.Decimal
	Kind     *string
	Category *string
	Status   *string
}

// Item is one externally observed candidate transaction for SyncBatch.
type Item struct {
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date" binding:"required"`
	Time     string          `json:"time"`
	Category string          `json:"category"`
	Kind     string          `json:"type"`
	Source   string          `json:"source"`
}

// Ledger serializes all balance mutations per user and keeps the balance
// consistent with the set of confirmed transactions.
type Ledger struct {
	db    *gorm.DB
	mapMu sync.Mutex           // protects locks
	locks map[uint]*sync.Mutex // per-user mutex serializing mutations
}

// New creates a Ledger backed by the given database handle.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, locks: make(map[uint]*sync.Mutex)}
}

// userLock returns the mutex serializing mutations for one user. Operations on
// different users proceed in parallel.
func (l *Ledger) userLock(userID uint) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()
	if _, ok := l.locks[userID]; !ok {
		l.locks[userID] = &sync.Mutex{}
	}
	return l.locks[userID]
}

// adjustBalance adds delta to the user's stored balance inside tx.
func adjustBalance(tx *gorm.DB, userID uint, delta decimal.Decimal) error {
	return tx.Model(&domain.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error
}

func validKind(kind string) bool {
	return kind == domain.KindIncome || kind == domain.KindExpense
}

func validStatus(status string) bool {
	return status == domain.StatusPending || status == domain.StatusConfirmed
}

// Add records a new transaction for the user. A confirmed transaction adjusts
// the balance by its effect in the same database transaction as the insert.
func (l *Ledger) Add(userID uint, in Input) (*domain.Transaction, error) {
	if in.Amount.Cmp(decimal.Zero) <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	// Apply defaults before validation
	if in.Kind == "" {
		in.Kind = domain.KindExpense
	}
	if in.EntryMethod == "" {
		in.EntryMethod = domain.EntryManual
	}
	if in.Status == "" {
		// Manual entries are confirmed immediately; synced entries wait for
		// user confirmation.
		if in.EntryMethod == domain.EntrySynced {
			in.Status = domain.StatusPending
		} else {
			in.Status = domain.StatusConfirmed
		}
	}
	now := time.Now()
	if in.Date == "" {
		in.Date = now.Format("2006-01-02")
	}
	if in.Time == "" {
		in.Time = now.Format("15:04:05")
	}
	if !validKind(in.Kind) {
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, in.Kind)
	}
	if !validStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, in.Status)
	}
	if in.EntryMethod != domain.EntryManual && in.EntryMethod != domain.EntrySynced {
		return nil, fmt.Errorf("%w: unknown entry method %q", domain.ErrValidation, in.EntryMethod)
	}
	if _, err := time.Parse("2006-01-02", in.Date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", domain.ErrValidation, in.Date)
	}
	if _, err := time.Parse("15:04:05", in.Time); err != nil {
		return nil, fmt.Errorf("%w: bad time %q", domain.ErrValidation, in.Time)
	}

	t := &domain.Transaction{
		UserID:      userID,
		Amount:      in.Amount,
		Kind:        in.Kind,
		Date:        in.Date,
		Time:        in.Time,
		Category:    in.Category,
		Source:      in.Source,
		Status:      in.Status,
		EntryMethod: in.EntryMethod,
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Insert and balance adjustment commit together or not at all
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		if t.Status == domain.StatusConfirmed {
			return adjustBalance(tx, userID, t.Effect())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": t.ID,
		"amount":         t.Amount,
		"kind":           t.Kind,
		"status":         t.Status,
		"entry_method":   t.EntryMethod,
	}).Info("Transaction recorded")
	return t, nil
}

// Edit updates an owned transaction and keeps the balance consistent: the old
// effect is reversed if the old status was confirmed, then the new effect is
// applied if the new status is confirmed. Both steps happen unconditionally,
// so a confirmed-to-confirmed edit nets (-old + new) and a
// pending-to-pending edit touches no balance.
func (l *Ledger) Edit(userID, txID uint, ch Changes) (*domain.Transaction, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var out domain.Transaction
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var t domain.Transaction
		// Ownership is part of the lookup: an unowned id is indistinguishable
		// from a missing one.
		if err := tx.Where("id = ? AND user_id = ?", txID, userID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		// Fall back to stored values for fields not supplied
		newAmount := t.Amount
		if ch.Amount != nil {
			newAmount = *ch.Amount
		}
		newKind := t.Kind
		if ch.Kind != nil {
			newKind = *ch.Kind
		}
		newCategory := t.Category
		if ch.Category != nil {
			newCategory = *ch.Category
		}
		newStatus := t.Status
		if ch.Status != nil {
			newStatus = *ch.Status
		}

		if newAmount.Cmp(decimal.Zero) <= 0 {
			return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
		}
		if !validKind(newKind) {
			return fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, newKind)
		}
		if !validStatus(newStatus) {
			return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, newStatus)
		}

		// Reverse the old effect while it was applied
		if t.Status == domain.StatusConfirmed {
			if err := adjustBalance(tx, userID, t.Effect().Neg()); err != nil {
				return err
			}
		}
		t.Amount = newAmount
		t.Kind = newKind
		t.Category = newCategory
		t.Status = newStatus
		// Apply the new effect if it is now in force
		if t.Status == domain.StatusConfirmed {
			if err := adjustBalance(tx, userID, t.Effect()); err != nil {
				return err
			}
		}
		// Map form so zero values are written too
		if err := tx.Model(&domain.Transaction{}).Where("id = ?", t.ID).Updates(map[string]any{
			"amount":   t.Amount,
			"kind":     t.Kind,
			"category": t.Category,
			"status":   t.Status,
		}).Error; err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": out.ID,
		"amount":         out.Amount,
		"kind":           out.Kind,
		"status":         out.Status,
	}).Info("Transaction updated")
	return &out, nil
}

// Delete removes an owned transaction, reversing its effect on the balance if
// it was confirmed. A pending transaction disappears with no balance change.
func (l *Ledger) Delete(userID, txID uint) error {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	err := l.db.Transaction(func(tx *gorm.DB) error {
		var t domain.Transaction
		if err := tx.Where("id = ? AND user_id = ?", txID, userID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if t.Status == domain.StatusConfirmed {
			if err := adjustBalance(tx, userID, t.Effect().Neg()); err != nil {
				return err
			}
		}
		return tx.Delete(&domain.Transaction{}, t.ID).Error
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": txID,
	}).Info("Transaction deleted")
	return nil
}

// SyncBatch ingests externally observed candidate transactions, inserting each
// as pending/synced with no balance effect. An item matching an existing
// pending transaction on (amount, date, kind) is skipped, which keeps repeated
// sync calls from re-ingesting the same external notification. The check does
// not match confirmed transactions, so a re-delivered event that the user has
// already confirmed comes back as a new pending duplicate; callers accept that
// limitation. Per-item failures are logged and skipped. Returns the number of
// items actually inserted.
func (l *Ledger) SyncBatch(userID uint, items []Item) (int, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	inserted := 0
	for _, it := range items {
		dup, err := l.syncOne(userID, it)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"amount":  it.Amount,
				"date":    it.Date,
				"error":   err.Error(),
			}).Warn("Skipping unsyncable item")
			continue
		}
		if dup {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,
				"amount":  it.Amount,
				"date":    it.Date,
			}).Info("Skipping duplicate pending transaction")
			continue
		}
		inserted++
	}
	return inserted, nil
}

// syncOne inserts a single synced item, reporting dup=true when an identical
// pending transaction already exists.
func (l *Ledger) syncOne(userID uint, it Item) (dup bool, err error) {
	if it.Amount.Cmp(decimal.Zero) <= 0 {
		return false, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if it.Kind == "" {
		it.Kind = domain.KindExpense
	}
	if !validKind(it.Kind) {
		return false, fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, it.Kind)
	}
	if _, perr := time.Parse("2006-01-02", it.Date); perr != nil {
		return false, fmt.Errorf("%w: bad date %q", domain.ErrValidation, it.Date)
	}
	if it.Time == "" {
		it.Time = "00:00:00"
	}
	if it.Category == "" {
		it.Category = "Uncategorized"
	}

	err = l.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		// Heuristic dedup against pending rows only
		if err := tx.Model(&domain.Transaction{}).
			Where("user_id = ? AND amount = ? AND date = ? AND kind = ? AND status = ?",
				userID, it.Amount, it.Date, it.Kind, domain.StatusPending).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			dup = true
			return nil
		}
		t := domain.Transaction{
			UserID:      userID,
			Amount:      it.Amount,
			Kind:        it.Kind,
			Date:        it.Date,
			Time:        it.Time,
			Category:    it.Category,
			Source:      it.Source,
			Status:      domain.StatusPending,
			EntryMethod: domain.EntrySynced,
		}
		return tx.Create(&t).Error
	})
	return dup, err
}

// Balance returns the user's stored balance.
func (l *Ledger) Balance(userID uint) (decimal.Decimal, error) {
	var u domain.User
	if err := l.db.Select("balance").First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, domain.ErrNotFound
		}
		return decimal.Zero, err
	}
	return u.Balance, nil
}
