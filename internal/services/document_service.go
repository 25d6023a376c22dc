// Package services – DocumentService
//
// This file implements DocumentService, which covers the document use-cases
// outside of number allocation: department, owner and admin listings, the
// per-user statistics, and admin edits and deletion. Registration itself lives
// in Allocator because it consumes reservations.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/repo"
)

// DefaultRecentLimit is the size of the admin "recent documents" feed.
const DefaultRecentLimit = 5

// DocumentUpdate holds the admin-editable fields. The number is immutable.
type DocumentUpdate struct {
	Title       string
	Type        domain.DocumentType
	Department  string
	Sender      string
	Recipient   string
	Description string
}

// UserStats summarizes a user's registry activity.
type UserStats struct {
	TotalDocuments  int64 `json:"totalDocuments"`
	InDocuments     int64 `json:"inDocuments"`
	OutDocuments    int64 `json:"outDocuments"`
	ReservedNumbers int64 `json:"reservedNumbers"`
}

// DocumentService reads and maintains registered documents.
type DocumentService struct {
	DB *gorm.DB
}

// ListDepartment returns the documents of the caller's department, newest first.
func (s *DocumentService) ListDepartment(ctx context.Context, caller domain.Identity) ([]DocumentView, error) {
	if caller.Department == "" {
		return []DocumentView{}, nil
	}
	return s.list(ctx, repo.DocumentFilter{Department: caller.Department})
}

// ListMine returns the documents registered by the caller.
func (s *DocumentService) ListMine(ctx context.Context, caller domain.Identity) ([]DocumentView, error) {
	return s.list(ctx, repo.DocumentFilter{UserID: caller.ID})
}

// ListAll returns every document.
func (s *DocumentService) ListAll(ctx context.Context) ([]DocumentView, error) {
	return s.list(ctx, repo.DocumentFilter{})
}

// Recent returns the latest limit documents across all departments.
func (s *DocumentService) Recent(ctx context.Context, limit int) ([]DocumentView, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.list(ctx, repo.DocumentFilter{Limit: limit})
}

// Stats returns the caller's document counters and open reservations.
func (s *DocumentService) Stats(ctx context.Context, caller domain.Identity) (UserStats, error) {
	st, err := repo.StatsForUser(ctx, s.DB, caller.ID)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{
		TotalDocuments:  st.TotalDocuments,
		InDocuments:     st.InDocuments,
		OutDocuments:    st.OutDocuments,
		ReservedNumbers: st.ReservedNumbers,
	}, nil
}

// Fingerprint returns the size and latest change of the department listing,
// used to derive a weak ETag.
func (s *DocumentService) Fingerprint(ctx context.Context, department string) (int64, *time.Time, error) {
	return repo.DepartmentDocumentsStats(ctx, s.DB, department)
}

// Update applies an admin edit to the document with the given id.
func (s *DocumentService) Update(ctx context.Context, id string, in DocumentUpdate) (*DocumentView, error) {
	title := clip(normalizeText(in.Title), maxFieldRunes)
	dept := clip(normalizeText(in.Department), maxFieldRunes)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	case !in.Type.Valid():
		return nil, fmt.Errorf("%w: type must be IN or OUT", ErrValidation)
	case dept == "":
		return nil, fmt.Errorf("%w: department is required", ErrValidation)
	}

	err := repo.UpdateDocument(ctx, s.DB, id, repo.DocumentChanges{
		Title:       title,
		Type:        in.Type,
		Department:  dept,
		Sender:      clip(normalizeText(in.Sender), maxFieldRunes),
		Recipient:   clip(normalizeText(in.Recipient), maxFieldRunes),
		Description: strings.TrimSpace(in.Description),
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	d, err := repo.GetDocument(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	v := documentView(*d)
	return &v, nil
}

// Delete removes a document and frees its number for the ledger.
func (s *DocumentService) Delete(ctx context.Context, id string) (*DocumentView, error) {
	var deleted domain.Document
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := repo.GetDocument(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		if err := repo.DeleteDocument(ctx, tx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		deleted = *d
		return repo.ReleaseNumber(ctx, tx, d.Number)
	})
	if err != nil {
		return nil, err
	}
	v := documentView(deleted)
	return &v, nil
}

func (s *DocumentService) list(ctx context.Context, f repo.DocumentFilter) ([]DocumentView, error) {
	rows, err := repo.ListDocuments(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentView, 0, len(rows))
	for _, d := range rows {
		out = append(out, documentView(d))
	}
	return out, nil
}

// documentView maps a stored document to its read model. RegisteredBy comes
// from the preloaded user when present.
func documentView(d domain.Document) DocumentView {
	attachments := d.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	registeredBy := "Unknown User"
	if d.User.ID != "" {
		registeredBy = d.User.Name
	}
	return DocumentView{
		ID:           d.ID,
		Number:       d.Number,
		Title:        d.Title,
		Type:         d.Type,
		Department:   d.Department,
		Sender:       d.Sender,
		Recipient:    d.Recipient,
		Description:  d.Description,
		Attachments:  attachments,
		RegisteredBy: registeredBy,
		RegisteredAt: d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
