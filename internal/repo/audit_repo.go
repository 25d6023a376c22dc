// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores and reads the audit log.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// CreateAuditLog appends entry.
func CreateAuditLog(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

// ListAuditLogs returns up to limit entries, newest first.
func ListAuditLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := db.WithContext(ctx).
		Order("timestamp desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
