// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file covers the shared numbering namespace: reading
// every number held by documents and reservations, existence checks, and the
// allocation ledger that enforces uniqueness across both record sets.
//
// All helpers take the *gorm.DB to run on, so services pass a transaction
// handle when a scan, a claim and an insert must commit together.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// ListNumbers returns every number currently held by a document or a
// reservation. The order is unspecified and duplicates are possible only if
// the data was corrupted outside the ledger.
func ListNumbers(ctx context.Context, db *gorm.DB) ([]string, error) {
	var docs, res []string
	if err := db.WithContext(ctx).Model(&domain.Document{}).Pluck("number", &docs).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&domain.Reservation{}).Pluck("number", &res).Error; err != nil {
		return nil, err
	}
	return append(docs, res...), nil
}

// NumberInUse reports whether number exists as a document, a reservation, or
// a ledger claim.
func NumberInUse(ctx context.Context, db *gorm.DB, number string) (bool, error) {
	for _, model := range []any{&domain.Document{}, &domain.Reservation{}, &domain.AllocatedNumber{}} {
		var n int64
		if err := db.WithContext(ctx).Model(model).Where("number = ?", number).Count(&n).Error; err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// ClaimNumber inserts the ledger row for number. A second claim on the same
// number fails with ErrDuplicate.
func ClaimNumber(ctx context.Context, db *gorm.DB, number string, kind domain.ClaimKind) error {
	row := &domain.AllocatedNumber{Number: number, Kind: kind, CreatedAt: time.Now().UTC()}
	return dup(db.WithContext(ctx).Create(row).Error)
}

// TransferClaim moves an existing ledger row to another kind, which is how a
// reservation hands its number to the document that consumes it. It returns
// ErrNotFound when no claim exists.
func TransferClaim(ctx context.Context, db *gorm.DB, number string, kind domain.ClaimKind) error {
	res := db.WithContext(ctx).
		Model(&domain.AllocatedNumber{}).
		Where("number = ?", number).
		Update("kind", kind)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseNumber deletes the ledger row for number. Releasing an unclaimed
// number is not an error.
func ReleaseNumber(ctx context.Context, db *gorm.DB, number string) error {
	return db.WithContext(ctx).Where("number = ?", number).Delete(&domain.AllocatedNumber{}).Error
}
