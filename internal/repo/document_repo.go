// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// model.
//
// Functions:
//
//   - CreateDocument(ctx, db, doc) -> error
//     Inserts a document; a taken number yields ErrDuplicate.
//
//   - GetDocument / FindDocumentByNumber -> *domain.Document, error
//     Single-row lookups returning ErrNotFound when missing.
//
//   - ListDocuments(ctx, db, filter) -> []domain.Document, error
//     Newest first, registering user preloaded, optional department/owner/limit.
//
//   - UpdateDocument(ctx, db, id, fields) -> error
//     Applies an admin edit; the number column is never touched.
//
//   - DeleteDocument(ctx, db, id) -> error
//
//   - CountDocuments(ctx, db, userID, typ) -> int64, error
//     Owner-scoped counters for the statistics endpoint.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// DocumentFilter narrows ListDocuments. Zero values do not filter.
type DocumentFilter struct {
	Department string
	UserID     string
	Limit      int
}

// DocumentChanges holds the admin-editable columns of a document.
type DocumentChanges struct {
	Title       string
	Type        domain.DocumentType
	Department  string
	Sender      string
	Recipient   string
	Description string
}

// CreateDocument inserts d.
func CreateDocument(ctx context.Context, db *gorm.DB, d *domain.Document) error {
	return dup(db.WithContext(ctx).Create(d).Error)
}

// GetDocument loads a document by id with its registering user.
func GetDocument(ctx context.Context, db *gorm.DB, id string) (*domain.Document, error) {
	var d domain.Document
	if err := db.WithContext(ctx).Preload("User").First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// FindDocumentByNumber returns the document registered under number, or ErrNotFound.
func FindDocumentByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Document, error) {
	var d domain.Document
	if err := db.WithContext(ctx).Where("number = ?", number).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDocuments returns documents matching f ordered by creation time descending.
func ListDocuments(ctx context.Context, db *gorm.DB, f DocumentFilter) ([]domain.Document, error) {
	q := db.WithContext(ctx).Preload("User").Order("created_at desc")
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []domain.Document
	err := q.Find(&out).Error
	return out, err
}

// UpdateDocument writes ch to the document with the given id. Empty strings
// are written as-is, matching a full replacement of the editable fields.
func UpdateDocument(ctx context.Context, db *gorm.DB, id string, ch DocumentChanges) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":       ch.Title,
			"type":        ch.Type,
			"department":  ch.Department,
			"sender":      ch.Sender,
			"recipient":   ch.Recipient,
			"description": ch.Description,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document by id, returning ErrNotFound when absent.
func DeleteDocument(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDocuments counts documents registered by userID. An empty typ counts
// every direction.
func CountDocuments(ctx context.Context, db *gorm.DB, userID string, typ domain.DocumentType) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Document{}).Where("user_id = ?", userID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}
