// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Reservation model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// ReservationFilter narrows ListReservations. Empty fields do not filter.
type ReservationFilter struct {
	Department string
	UserID     string
	UnusedOnly bool
}

// CreateReservation inserts r. A number already reserved fails with ErrDuplicate.
func CreateReservation(ctx context.Context, db *gorm.DB, r *domain.Reservation) error {
	return dup(db.WithContext(ctx).Create(r).Error)
}

// GetReservation loads a reservation by id together with its owner.
func GetReservation(ctx context.Context, db *gorm.DB, id string) (*domain.Reservation, error) {
	var r domain.Reservation
	if err := db.WithContext(ctx).Preload("User").First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// FindReservationByNumber returns the reservation holding number, or
// ErrNotFound.
func FindReservationByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Reservation, error) {
	var r domain.Reservation
	if err := db.WithContext(ctx).Where("number = ?", number).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReservations returns reservations matching f, newest first, with the
// owning user preloaded.
func ListReservations(ctx context.Context, db *gorm.DB, f ReservationFilter) ([]domain.Reservation, error) {
	q := db.WithContext(ctx).Preload("User").Order("created_at desc")
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.UnusedOnly {
		q = q.Where("used = ?", false)
	}
	var out []domain.Reservation
	err := q.Find(&out).Error
	return out, err
}

// DeleteReservation removes a reservation by id. It returns ErrNotFound when
// nothing was deleted.
func DeleteReservation(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Reservation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOpenReservations counts the unused reservations owned by userID.
func CountOpenReservations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("user_id = ? AND used = ?", userID, false).
		Count(&n).Error
	return n, err
}
