// Package services – AuditService
//
// This file implements the audit log. LogDocument and LogAuth are
// fire-and-forget: the write runs on a background goroutine with its own
// timeout, detached from the request context, and failures are only logged.
// Add is the synchronous variant used by the public log endpoint.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

// DefaultLogsLimit and MaxLogsLimit bound the audit listing.
const (
	DefaultLogsLimit = 100
	MaxLogsLimit     = 1000
)

// AuditRepo defines the repository contract required by AuditService.
type AuditRepo interface {
	// CreateAuditLog appends one entry.
	CreateAuditLog(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error
	// ListAuditLogs returns up to limit entries, newest first.
	ListAuditLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.AuditLog, error)
}

// AuditEntry is the read model of an audit log row.
type AuditEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Type      domain.LogType `json:"type"`
	User      AuditUser      `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditUser is the user snapshot stored with an entry.
type AuditUser struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
}

// AuditService writes and reads the audit log.
type AuditService struct {
	DB   *gorm.DB
	Repo AuditRepo

	// Timeout bounds each background write.
	Timeout time.Duration
	// MaxLimit caps List; zero means MaxLogsLimit.
	MaxLimit int

	wg sync.WaitGroup
}

// NewAuditService constructs an AuditService with a 5s background timeout.
func NewAuditService(db *gorm.DB, r AuditRepo) *AuditService {
	return &AuditService{DB: db, Repo: r, Timeout: 5 * time.Second, MaxLimit: MaxLogsLimit}
}

// LogDocument records a document action in the background.
func (s *AuditService) LogDocument(ctx context.Context, who domain.Identity, action string) {
	s.record(ctx, who, domain.LogDocument, action)
}

// LogAuth records an account or sign-in action in the background.
func (s *AuditService) LogAuth(ctx context.Context, who domain.Identity, action string) {
	s.record(ctx, who, domain.LogAuth, action)
}

// Add stores an entry synchronously and returns it.
func (s *AuditService) Add(ctx context.Context, who domain.Identity, typ domain.LogType, action string) (*AuditEntry, error) {
	action = normalizeText(action)
	if action == "" {
		return nil, fmt.Errorf("%w: action is required", ErrValidation)
	}
	if typ == "" {
		typ = domain.LogSystem
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: type must be document, auth or system", ErrValidation)
	}
	entry := newAuditLog(who, typ, action)
	if err := s.Repo.CreateAuditLog(ctx, s.DB, entry); err != nil {
		return nil, err
	}
	v := auditEntry(*entry)
	return &v, nil
}

// List returns the latest entries. limit is clamped to [1, MaxLimit] and
// defaults to DefaultLogsLimit.
func (s *AuditService) List(ctx context.Context, limit int) ([]AuditEntry, error) {
	maxLimit := s.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLogsLimit
	}
	if limit <= 0 {
		limit = DefaultLogsLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	rows, err := s.Repo.ListAuditLogs(ctx, s.DB, limit)
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, auditEntry(r))
	}
	return out, nil
}

// Wait blocks until all background writes have finished.
func (s *AuditService) Wait() { s.wg.Wait() }

func (s *AuditService) record(ctx context.Context, who domain.Identity, typ domain.LogType, action string) {
	entry := newAuditLog(who, typ, normalizeText(action))
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	// Keep request-scoped values such as the trace, drop its cancellation.
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		wctx, cancel := context.WithTimeout(bg, timeout)
		defer cancel()
		if err := s.Repo.CreateAuditLog(wctx, s.DB, entry); err != nil {
			log.Error().Err(err).
				Str("type", string(typ)).
				Str("user_id", who.ID).
				Msg("audit log write failed")
		}
	}()
}

func newAuditLog(who domain.Identity, typ domain.LogType, action string) *domain.AuditLog {
	return &domain.AuditLog{
		ID:             uuid.NewString(),
		Action:         action,
		Type:           typ,
		UserID:         who.ID,
		UserName:       who.Name,
		UserEmail:      who.Email,
		UserRole:       string(who.Role),
		UserDepartment: who.Department,
		Timestamp:      time.Now().UTC(),
	}
}

func auditEntry(l domain.AuditLog) AuditEntry {
	return AuditEntry{
		ID:     l.ID,
		Action: l.Action,
		Type:   l.Type,
		User: AuditUser{
			ID:         l.UserID,
			Name:       l.UserName,
			Email:      l.UserEmail,
			Role:       l.UserRole,
			Department: l.UserDepartment,
		},
		Timestamp: l.Timestamp,
	}
}
