// Package repo implements the data persistence layer of the registry, backed
// by GORM. This file contains database bootstrapping for SQLite (pure Go
// driver, the default) and PostgreSQL, query tracing, and schema migration
// including the allocation ledger backfill.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// Supported values for the driver argument of Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlitePragmas are applied through the DSN so that every pooled connection
// gets them, not only the first one.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open connects to the configured database. For sqlite, dsn is a file path;
// for postgres it is a libpq URL or keyword/value string.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database file with WAL, foreign keys
// and a busy timeout enabled.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory is missing; the driver otherwise
	// reports an unhelpful "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), gormConfig())
	if err != nil {
		return nil, err
	}
	if err := instrument(db); err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenPostgres connects to PostgreSQL using the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn must not be empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := instrument(db); err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates or updates every registry table and then makes sure
// the allocation ledger covers all numbers already present in documents and
// reservations (e.g. rows imported before the ledger existed).
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Document{},
		&domain.Reservation{},
		&domain.AllocatedNumber{},
		&domain.AuditLog{},
		&domain.Idempotency{},
	); err != nil {
		return err
	}
	return backfillLedger(db)
}

func backfillLedger(db *gorm.DB) error {
	sources := []struct {
		model any
		kind  domain.ClaimKind
	}{
		{&domain.Document{}, domain.ClaimDocument},
		{&domain.Reservation{}, domain.ClaimReservation},
	}
	now := time.Now().UTC()
	for _, src := range sources {
		var numbers []string
		if err := db.Model(src.model).Pluck("number", &numbers).Error; err != nil {
			return err
		}
		if len(numbers) == 0 {
			continue
		}
		rows := make([]domain.AllocatedNumber, 0, len(numbers))
		for _, n := range numbers {
			rows = append(rows, domain.AllocatedNumber{Number: n, Kind: src.kind, CreatedAt: now})
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error; err != nil {
			return err
		}
	}
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// instrument attaches OpenTelemetry spans to every query. Metrics are left to
// the Prometheus collectors of the HTTP and service layers.
func instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

func sqliteDSN(path string) string {
	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
