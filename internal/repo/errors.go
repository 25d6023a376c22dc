package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist. It aliases
// gorm.ErrRecordNotFound so callers can use either sentinel.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique or primary key violation.
var ErrDuplicate = errors.New("duplicate")

// IsUniqueViolation reports whether err is a unique/primary key violation,
// whether or not the driver translated it to gorm.ErrDuplicatedKey.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite: "UNIQUE constraint failed"; Postgres: "duplicate key value violates unique constraint".
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "duplicate key") ||
		strings.Contains(low, "constraint failed: unique")
}

// dup normalizes unique violations to ErrDuplicate and passes other errors through.
func dup(err error) error {
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// IsBusy reports whether err is a transient lock or serialization failure
// that a caller may resolve by retrying the whole transaction.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	// SQLite: "database is locked" (BUSY) / "database table is locked" (LOCKED,
	// shared cache); Postgres: SQLSTATE 40001 and 40P01.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "database is locked") ||
		strings.Contains(low, "database table is locked") ||
		strings.Contains(low, "sqlite_busy") ||
		strings.Contains(low, "could not serialize access") ||
		strings.Contains(low, "deadlock detected")
}
