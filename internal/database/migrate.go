package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate brings the schema up to date. SQLite databases are auto-migrated
// from the models; Postgres runs the embedded goose migrations.
func Migrate(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	if db.Dialector.Name() == DriverSQLite {
		if logger != nil {
			logger.Info("using GORM auto-migration for SQLite")
		}
		return db.AutoMigrate(models.All()...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return RunGoose(ctx, sqlDB, "up", logger)
}

// RunGoose runs a goose command (up, down, status, version, ...) against the
// embedded Postgres migrations.
func RunGoose(ctx context.Context, db *sql.DB, command string, logger *zap.Logger, args ...string) error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if logger != nil {
		goose.SetLogger(zap.NewStdLog(logger.Named("goose")))
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, migrationsDir, args...); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}
