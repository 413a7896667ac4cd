package db

import (
	"fmt"
	"testing"

	"github.com/Abiya4/expense-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return gdb
}

func TestMigrateCreatesSchema(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, Migrate(gdb))

	assert.True(t, gdb.Migrator().HasTable(&domain.User{}))
	assert.True(t, gdb.Migrator().HasTable(&domain.Transaction{}))
	assert.True(t, gdb.Migrator().HasTable(&SchemaMigration{}))

	var versions []int
	require.NoError(t, gdb.Model(&SchemaMigration{}).Order("version").Pluck("version", &versions).Error)
	assert.Equal(t, []int{1, 2}, versions)
}

// Re-running the manifest must be a no-op: versions are consulted, not the
// shape of the schema.
func TestMigrateIsIdempotent(t *testing.T) {
	gdb := openTestDB(t)
	require.NoError(t, Migrate(gdb))
	require.NoError(t, Migrate(gdb))

	var count int64
	require.NoError(t, gdb.Model(&SchemaMigration{}).Count(&count).Error)
	assert.EqualValues(t, len(migrations), count)
}
