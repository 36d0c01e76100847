// Package dbtest opens isolated in-memory SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
)

// Open returns a fresh database with every model migrated. The pool is pinned
// to one connection so concurrent transactions serialize like row locks would.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

// Client wraps conn in the shared transaction runner.
func Client(conn *gorm.DB) *db.Client {
	return db.Wrap(conn)
}

// SeedUser inserts a user with the given balance.
func SeedUser(t *testing.T, conn *gorm.DB, username string, balance string, superuser bool) models.User {
	t.Helper()
	user := models.User{
		ID:          uuid.New(),
		Username:    username,
		IsSuperuser: superuser,
		Balance:     decimal.RequireFromString(balance),
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// Balance reads the stored balance for userID.
func Balance(t *testing.T, conn *gorm.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	var user models.User
	require.NoError(t, conn.First(&user, "id = ?", userID).Error)
	return user.Balance
}

// CountEntries counts ledger entries matching the optional where clause.
func CountEntries(t *testing.T, conn *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	q := conn.Model(&models.LedgerEntry{})
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&count).Error)
	return count
}
