package repo

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, dept string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         "User " + email,
		Email:        email,
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		Department:   dept,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedDocument(t *testing.T, db *gorm.DB, u *domain.User, number string, typ domain.DocumentType) *domain.Document {
	t.Helper()
	d := &domain.Document{
		ID:         uuid.NewString(),
		Number:     number,
		Title:      "Doc " + number,
		Type:       typ,
		Department: u.Department,
		UserID:     u.ID,
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return d
}

func seedReservation(t *testing.T, db *gorm.DB, u *domain.User, number string) *domain.Reservation {
	t.Helper()
	r := &domain.Reservation{
		ID:         uuid.NewString(),
		Number:     number,
		Type:       domain.DocumentIn,
		Department: u.Department,
		UserID:     u.ID,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
	return r
}
