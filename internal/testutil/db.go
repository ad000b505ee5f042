// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"habitpal/internal/database"
	"habitpal/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory SQLite database with the full schema.
// A single connection serializes transactions the way SQLite does anyway.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:habitpal_%d_%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(), dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateAccount inserts an active account with the given public UID.
func CreateAccount(t testing.TB, db *gorm.DB, uid, displayName string) *models.Account {
	t.Helper()
	account := &models.Account{PublicUID: uid, DisplayName: displayName, Active: true}
	require.NoError(t, db.Create(account).Error)
	return account
}

// Deactivate marks an account inactive.
func Deactivate(t testing.TB, db *gorm.DB, account *models.Account) {
	t.Helper()
	require.NoError(t, db.Model(account).Update("active", false).Error)
	account.Active = false
}

// SeenAt sets an account's last-seen time.
func SeenAt(t testing.TB, db *gorm.DB, account *models.Account, at time.Time) {
	t.Helper()
	require.NoError(t, db.Model(account).Update("last_seen_at", at).Error)
	account.LastSeenAt = &at
}
