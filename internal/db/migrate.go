package db

import (
	"time"

	"github.com/Abiya4/expense-tracker/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// SchemaMigration records one applied migration. The schema version is
// tracked explicitly here; migrations never probe for columns to decide
// whether they already ran.
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey"`
	Name      string `gorm:"size:100"`
	AppliedAt time.Time
}

// migration is one step of the versioned manifest.
type migration struct {
	Version int
	Name    string
	Run     func(tx *gorm.DB) error
}

// migrations is the single ordered manifest for the whole schema. Append
// only; never edit an applied step.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users and transactions",
		Run: func(tx *gorm.DB) error {
			return tx.Migrator().AutoMigrate(&domain.User{}, &domain.Transaction{})
		},
	},
	{
		Version: 2,
		Name:    "index transactions for sync dedup",
		Run: func(tx *gorm.DB) error {
			// Covers the pending-duplicate lookup in the ledger's batch sync
			return tx.Exec("CREATE INDEX idx_transactions_sync ON transactions (user_id, status, date)").Error
		},
	},
}

// Migrate applies every unapplied step of the manifest in order. Each step
// runs in a transaction together with its version record, so a failed step
// leaves the recorded version untouched. Safe to call on every startup.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&SchemaMigration{}); err != nil {
		return err
	}
	for _, m := range migrations {
		var applied int64
		if err := gdb.Model(&SchemaMigration{}).Where("version = ?", m.Version).Count(&applied).Error; err != nil {
			return err
		}
		if applied > 0 {
			continue // Already at or past this version
		}
		err := gdb.Transaction(func(tx *gorm.DB) error {
			if err := m.Run(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"version": m.Version,
			"name":    m.Name,
		}).Info("Migration applied")
	}
	return nil
}
