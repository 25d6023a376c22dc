package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/repo"
)

// newServiceDB opens a private in-memory database. A single connection keeps
// shared-cache SQLite from reporting table locks when goroutines overlap.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// seedIdentity stores a user in dept and returns its identity.
func seedIdentity(t *testing.T, db *gorm.DB, name, email, dept string, role domain.Role) domain.Identity {
	t.Helper()
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		Department:   dept,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return domain.IdentityOf(u)
}

func reservationNumbers(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var out []string
	if err := db.Model(&domain.Reservation{}).Order("number").Pluck("number", &out).Error; err != nil {
		t.Fatalf("pluck reservations: %v", err)
	}
	return out
}

func documentNumbers(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var out []string
	if err := db.Model(&domain.Document{}).Order("number").Pluck("number", &out).Error; err != nil {
		t.Fatalf("pluck documents: %v", err)
	}
	return out
}

func claimKind(t *testing.T, db *gorm.DB, number string) domain.ClaimKind {
	t.Helper()
	var row domain.AllocatedNumber
	if err := db.First(&row, "number = ?", number).Error; err != nil {
		return ""
	}
	return row.Kind
}

// auditRepo adapts the repository functions for AuditService tests.
type auditRepo struct{}

func (auditRepo) CreateAuditLog(ctx context.Context, db *gorm.DB, e *domain.AuditLog) error {
	return repo.CreateAuditLog(ctx, db, e)
}

func (auditRepo) ListAuditLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.AuditLog, error) {
	return repo.ListAuditLogs(ctx, db, limit)
}
