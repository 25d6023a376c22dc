// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries: per-user
// document statistics and the department listing fingerprint used for weak
// ETags in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// UserStats summarizes what a single user has registered and reserved.
type UserStats struct {
	TotalDocuments  int64
	InDocuments     int64
	OutDocuments    int64
	ReservedNumbers int64
}

// StatsForUser computes UserStats for userID.
func StatsForUser(ctx context.Context, db *gorm.DB, userID string) (UserStats, error) {
	var s UserStats
	var err error
	if s.TotalDocuments, err = CountDocuments(ctx, db, userID, ""); err != nil {
		return UserStats{}, err
	}
	if s.InDocuments, err = CountDocuments(ctx, db, userID, domain.DocumentIn); err != nil {
		return UserStats{}, err
	}
	if s.OutDocuments, err = CountDocuments(ctx, db, userID, domain.DocumentOut); err != nil {
		return UserStats{}, err
	}
	if s.ReservedNumbers, err = CountOpenReservations(ctx, db, userID); err != nil {
		return UserStats{}, err
	}
	return s, nil
}

// DepartmentDocumentsStats returns the number of documents in department and
// the latest UpdatedAt among them (nil when there are none).
func DepartmentDocumentsStats(ctx context.Context, db *gorm.DB, department string) (count int64, maxUpdatedAt *time.Time, err error) {
	scope := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Document{}).Where("department = ?", department)
	}

	if err = scope().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Ordered select rather than MAX(), which SQLite returns as TEXT.
	var row struct {
		UpdatedAt time.Time
	}
	if err = scope().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
