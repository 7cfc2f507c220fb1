// Package database открывает подключение к БД и применяет схему.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/project-tracker-api/internal/config"
	"github.com/project-tracker-api/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Models перечисляет модели в порядке создания таблиц
var Models = []any{
	&domain.Poste{},
	&domain.Department{},
	&domain.Competence{},
	&domain.User{},
	&domain.Section{},
	&domain.UserActivity{},
	&domain.RevokedToken{},
	&domain.Project{},
	&domain.Task{},
	&domain.TaskComment{},
	&domain.TaskAttachment{},
	&domain.Notification{},
}

// Open подключается к БД, повторяя попытки до 30 раз
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	for attempt := 1; attempt <= 30; attempt++ {
		db, err = gorm.Open(dialector, GormConfig(cfg.Driver))
		if err == nil {
			sqlDB, _ := db.DB()
			if err = sqlDB.Ping(); err == nil {
				return db, nil
			}
		}
		logger.Warn("database not ready", slog.Int("attempt", attempt), slog.Any("error", err))
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("failed to connect to database after 30 attempts: %w", err)
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// Migrate применяет схему: goose-миграции для PostgreSQL,
// AutoMigrate для SQLite.
func Migrate(db *gorm.DB, driver string) error {
	if driver == DriverSQLite {
		return AutoMigrate(db)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return runMigrations(sqlDB)
}

// GormConfig возвращает настройки gorm для драйвера. Для SQLite внешние
// ключи не создаются: users и sections ссылаются друг на друга.
func GormConfig(driver string) *gorm.Config {
	return &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: driver == DriverSQLite,
	}
}

// AutoMigrate создаёт таблицы по моделям
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// resetOrder - таблицы в порядке очистки: сначала зависимые
var resetOrder = []string{
	"notifications",
	"task_attachments",
	"task_comments",
	"task_assignees",
	"tasks",
	"project_coordinators",
	"projects",
	"revoked_tokens",
	"user_activities",
	"user_competences",
	"users",
	"sections",
	"competences",
	"departments",
	"postes",
}

// Reset удаляет все данные, схема остаётся на месте
func Reset(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range resetOrder {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
