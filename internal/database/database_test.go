package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/macrotrack/backend/config"
	"github.com/pageza/macrotrack/backend/internal/models"
)

func openSQLite(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:   DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "macrotrack.db"),
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := Open(openSQLite(t), nil)
	require.NoError(t, err)

	require.NoError(t, Migrate(context.Background(), db, nil))
	assert.NoError(t, HealthCheck(context.Background(), db))

	for _, table := range []string{"users", "meal_entries", "meal_insights", "frequent_meals", "goals"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := Open(openSQLite(t), nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, nil))

	userID := uuid.New()
	first := models.FrequentMeal{UserID: userID, MealName: "Poha", RawInput: "poha", Calories: 250}
	require.NoError(t, db.Create(&first).Error)

	second := models.FrequentMeal{UserID: userID, MealName: "Poha", RawInput: "poha again", Calories: 260}
	err = db.Create(&second).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), &config.Config{RedisURL: "redis://" + mr.Addr() + "/0"}, nil)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")

	_, err = NewRedisClient(context.Background(), &config.Config{RedisHost: "127.0.0.1", RedisPort: "1"}, nil)
	assert.Error(t, err)
}
