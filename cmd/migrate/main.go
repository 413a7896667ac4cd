package main

import (
	"github.com/Abiya4/expense-tracker/internal/config" // Configuration
	"github.com/Abiya4/expense-tracker/internal/db"     // Versioned schema migrations

	"github.com/sirupsen/logrus" // Structured logging
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
)

// Applies the schema migration manifest and exits.
func main() {
	cfg := config.LoadConfig()

	gdb, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed.")
}
