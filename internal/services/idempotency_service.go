// Package services – IdempotencyService
//
// This file stores the responses of idempotent POSTs so that a client retry
// carrying the same Idempotency-Key gets the original response back instead
// of reserving or registering a second time.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/repo"
)

// DefaultIdempotencyTTL is how long a stored response can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// StoredResponse is a response captured for replay.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyService persists replayable responses keyed by
// (user, operation, key).
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Lookup returns the stored response for (userID, operation, key), or
// (nil, nil) when nothing replayable exists.
func (s *IdempotencyService) Lookup(ctx context.Context, userID, operation, key string) (*StoredResponse, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, operation, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &StoredResponse{Status: rec.Status, Body: rec.Body}, nil
}

// Store records a response. A key stored concurrently by another request
// keeps the first response.
func (s *IdempotencyService) Store(ctx context.Context, userID, operation, key string, status int, body []byte) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, operation, key, status, body, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Purge deletes expired records and reports how many were removed.
func (s *IdempotencyService) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeIdempotency(ctx, s.DB, time.Now().UTC())
}
