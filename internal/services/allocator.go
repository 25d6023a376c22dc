// Package services – Allocator
//
// This file implements the Allocator, which hands out sequential document
// numbers and manages reservations on them. Documents and reservations share
// one numbering namespace; a number is computed as the highest stored number
// plus one, zero-padded to four digits.
//
// Every number in use also has a row in the allocation ledger
// (allocated_numbers), keyed by the number itself. Reservations are minted
// one per transaction (scan, claim, insert). A concurrent writer that claimed
// the same number first makes the claim fail on the primary key; the attempt
// is rolled back and retried with a fresh scan, so two records can never end
// up sharing a number.
//
// Observability: all public methods are OpenTelemetry-instrumented and the
// allocation outcome is counted in Prometheus.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Defaults applied by NewAllocator.
const (
	DefaultReservationTTL = 7 * 24 * time.Hour
	DefaultMaxBatch       = 50
	DefaultMaxAttempts    = 5
)

// Reservation statuses, computed at read time.
const (
	StatusActive  = "active"
	StatusUsed    = "used"
	StatusExpired = "expired"
)

// ReservationScope selects which reservations ListReservations returns.
type ReservationScope string

const (
	// ScopeDepartment lists the unused reservations of the caller's department.
	ScopeDepartment ReservationScope = "department"
	// ScopeOwner lists the caller's own reservations.
	ScopeOwner ReservationScope = "owner"
	// ScopeAll lists every reservation. Non-admin callers get ScopeOwner.
	ScopeAll ReservationScope = "all"
)

// ReservationView is the read model of a reservation.
type ReservationView struct {
	ID         string              `json:"id"`
	Number     string              `json:"number"`
	Type       domain.DocumentType `json:"type"`
	Department string              `json:"department"`
	ReservedBy string              `json:"reservedBy"`
	ReservedAt time.Time           `json:"reservedAt"`
	ExpiresAt  time.Time           `json:"expiresAt"`
	Status     string              `json:"status"`
}

// DocumentView is the read model of a registered document.
type DocumentView struct {
	ID           string              `json:"id"`
	Number       string              `json:"number"`
	Title        string              `json:"title"`
	Type         domain.DocumentType `json:"type"`
	Department   string              `json:"department"`
	Sender       string              `json:"sender,omitempty"`
	Recipient    string              `json:"recipient,omitempty"`
	Description  string              `json:"description,omitempty"`
	Attachments  []string            `json:"attachments"`
	RegisteredBy string              `json:"registeredBy"`
	RegisteredAt time.Time           `json:"registeredAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// RegisterInput carries the caller-supplied fields of a new document.
// An empty Department defaults to the caller's department.
type RegisterInput struct {
	Number      string
	Title       string
	Type        domain.DocumentType
	Department  string
	Sender      string
	Recipient   string
	Description string
	Attachments []string
}

// Allocator issues numbers, reserves them and promotes reservations into
// documents.
type Allocator struct {
	DB *gorm.DB

	// ReservationTTL is the advisory lifetime of a reservation.
	ReservationTTL time.Duration
	// MaxBatch caps the count accepted by Reserve.
	MaxBatch int
	// MaxAttempts bounds the scan/claim/insert retries per number.
	MaxAttempts int

	// Now is the clock used for timestamps and expiry; nil means time.Now.
	Now func() time.Time
}

// NewAllocator constructs an Allocator with the default limits.
func NewAllocator(db *gorm.DB) *Allocator {
	return &Allocator{
		DB:             db,
		ReservationTTL: DefaultReservationTTL,
		MaxBatch:       DefaultMaxBatch,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// NextNumber returns the number following the highest one held by a document
// or a reservation. It does not claim it; a number already in use yields
// ErrNumberConflict.
func (s *Allocator) NextNumber(ctx context.Context) (string, error) {
	ctx, span := otel.Tracer("services/Allocator").Start(ctx, "NextNumber")
	defer span.End()

	n, err := s.nextNumber(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("number", n))
	return n, nil
}

// GenerateNumber returns the next number for a one-shot registration without
// creating a reservation. typ may be empty; otherwise it must be IN or OUT.
func (s *Allocator) GenerateNumber(ctx context.Context, typ domain.DocumentType) (string, error) {
	ctx, span := otel.Tracer("services/Allocator").Start(ctx, "GenerateNumber",
		trace.WithAttributes(attribute.String("document.type", string(typ))),
	)
	defer span.End()

	if typ != "" && !typ.Valid() {
		return "", fmt.Errorf("%w: type must be IN or OUT", ErrValidation)
	}
	return s.nextNumber(ctx, s.DB)
}

// Reserve mints count reservations of type typ for the caller's department.
//
// Each reservation commits on its own. When an iteration fails the remaining
// ones are skipped and the error is returned; reservations committed by
// earlier iterations stay in place.
func (s *Allocator) Reserve(ctx context.Context, caller domain.Identity, typ domain.DocumentType, count int) ([]ReservationView, error) {
	ctx, span := otel.Tracer("services/Allocator").Start(ctx, "Reserve",
		trace.WithAttributes(
			attribute.String("user.id", caller.ID),
			attribute.String("department", caller.Department),
			attribute.String("document.type", string(typ)),
			attribute.Int("count", count),
		),
	)
	defer span.End()

	if count < 1 || count > s.maxBatch() {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrValidation, s.maxBatch())
	}
	if strings.TrimSpace(caller.Department) == "" {
		return nil, fmt.Errorf("%w: user department is not configured", ErrValidation)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: type must be IN or OUT", ErrValidation)
	}

	out := make([]ReservationView, 0, count)
	for i := 0; i < count; i++ {
		r, err := s.mint(ctx, caller, typ)
		if err != nil {
			span.RecordError(err)
			if len(out) > 0 {
				log.Warn().Err(err).
					Str("user_id", caller.ID).
					Int("requested", count).
					Int("persisted", len(out)).
					Msg("reservation batch aborted")
			}
			return nil, err
		}
		out = append(out, ReservationView{
			ID:         r.ID,
			Number:     r.Number,
			Type:       r.Type,
			Department: r.Department,
			ReservedBy: caller.DisplayName(),
			ReservedAt: r.CreatedAt,
			ExpiresAt:  r.CreatedAt.Add(s.ttl()),
			Status:     StatusActive,
		})
	}
	return out, nil
}

// RegisterDocument registers a document under in.Number.
//
// A number already held by a document fails with ErrDuplicateNumber. A number
// reserved by another department fails with ErrForbiddenNumber and changes
// nothing. Otherwise the matching reservation, if any, is consumed and the
// document is created in the same transaction. Numbers with no reservation
// are accepted as ad-hoc numbers.
func (s *Allocator) RegisterDocument(ctx context.Context, caller domain.Identity, in RegisterInput) (*DocumentView, error) {
	ctx, span := otel.Tracer("services/Allocator").Start(ctx, "RegisterDocument",
		trace.WithAttributes(
			attribute.String("user.id", caller.ID),
			attribute.String("number", in.Number),
			attribute.String("document.type", string(in.Type)),
		),
	)
	defer span.End()

	number := strings.TrimSpace(in.Number)
	title := clip(normalizeText(in.Title), maxFieldRunes)
	dept := clip(normalizeText(in.Department), maxFieldRunes)
	if dept == "" {
		dept = caller.Department
	}
	if err := validateNumber(number); err != nil {
		return nil, err
	}
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	case !in.Type.Valid():
		return nil, fmt.Errorf("%w: type must be IN or OUT", ErrValidation)
	case dept == "":
		return nil, fmt.Errorf("%w: department is required", ErrValidation)
	}

	attachments := in.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	var doc *domain.Document
	var err error
	for attempt := 1; attempt <= s.maxAttempts(); attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.consumeNumber(ctx, tx, caller, number); err != nil {
				return err
			}
			now := s.now()
			doc = &domain.Document{
				ID:          uuid.NewString(),
				Number:      number,
				Title:       title,
				Type:        in.Type,
				Department:  dept,
				Sender:      clip(normalizeText(in.Sender), maxFieldRunes),
				Recipient:   clip(normalizeText(in.Recipient), maxFieldRunes),
				Description: strings.TrimSpace(in.Description),
				Attachments: attachments,
				UserID:      caller.ID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := repo.CreateDocument(ctx, tx, doc); err != nil {
				if repo.IsUniqueViolation(err) {
					return ErrDuplicateNumber
				}
				return err
			}
			return nil
		})
		if !repo.IsBusy(err) {
			break
		}
		allocationRetries.Inc()
	}
	if err != nil {
		span.RecordError(err)
		if repo.IsBusy(err) {
			return nil, ErrNumberConflict
		}
		return nil, err
	}

	v := documentView(*doc)
	v.RegisteredBy = caller.Name
	return &v, nil
}

// ListReservations returns reservations in the given scope, newest first,
// each with its expiry and status computed against the current clock.
func (s *Allocator) ListReservations(ctx context.Context, caller domain.Identity, scope ReservationScope) ([]ReservationView, error) {
	ctx, span := otel.Tracer("services/Allocator").Start(ctx, "ListReservations",
		trace.WithAttributes(
			attribute.String("user.id", caller.ID),
			attribute.String("scope", string(scope)),
		),
	)
	defer span.End()

	var f repo.ReservationFilter
	switch scope {
	case ScopeDepartment:
		if caller.Department == "" {
			return []ReservationView{}, nil
		}
		f = repo.ReservationFilter{Department: caller.Department, UnusedOnly: true}
	case ScopeAll:
		if !caller.IsAdmin() {
			f = repo.ReservationFilter{UserID: caller.ID}
		}
	case ScopeOwner:
		f = repo.ReservationFilter{UserID: caller.ID}
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrValidation, scope)
	}

	rows, err := repo.ListReservations(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]ReservationView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.reservationView(r, now))
	}
	return out, nil
}

// DeleteReservation removes a reservation and frees its number.
func (s *Allocator) DeleteReservation(ctx context.Context, id string) (*ReservationView, error) {
	ctx, span := otel.Tracer("services/Allocator").Start(ctx, "DeleteReservation",
		trace.WithAttributes(attribute.String("reservation.id", id)),
	)
	defer span.End()

	var deleted domain.Reservation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetReservation(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if err := repo.DeleteReservation(ctx, tx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		deleted = *r
		return repo.ReleaseNumber(ctx, tx, r.Number)
	})
	if err != nil {
		return nil, err
	}
	v := s.reservationView(deleted, s.now())
	return &v, nil
}

// nextNumber scans both record sets on db and re-checks the candidate.
func (s *Allocator) nextNumber(ctx context.Context, db *gorm.DB) (string, error) {
	numbers, err := repo.ListNumbers(ctx, db)
	if err != nil {
		return "", err
	}
	candidate, err := successor(numbers)
	if err != nil {
		return "", err
	}
	taken, err := repo.NumberInUse(ctx, db, candidate)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrNumberConflict
	}
	return candidate, nil
}

// mint allocates one number and stores a reservation for it, retrying on
// conflicts with a fresh scan.
func (s *Allocator) mint(ctx context.Context, caller domain.Identity, typ domain.DocumentType) (*domain.Reservation, error) {
	for attempt := 1; attempt <= s.maxAttempts(); attempt++ {
		if attempt > 1 {
			allocationRetries.Inc()
		}
		var rec *domain.Reservation
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := s.nextNumber(ctx, tx)
			if err != nil {
				return err
			}
			if err := repo.ClaimNumber(ctx, tx, number, domain.ClaimReservation); err != nil {
				return err
			}
			rec = &domain.Reservation{
				ID:         uuid.NewString(),
				Number:     number,
				Type:       typ,
				Department: caller.Department,
				UserID:     caller.ID,
				CreatedAt:  s.now(),
			}
			return repo.CreateReservation(ctx, tx, rec)
		})
		if err == nil {
			numbersAllocated.WithLabelValues(string(domain.ClaimReservation)).Inc()
			return rec, nil
		}
		if !errors.Is(err, ErrNumberConflict) && !repo.IsUniqueViolation(err) && !repo.IsBusy(err) {
			return nil, err
		}
		allocationConflicts.Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrNumberConflict
}

// consumeNumber checks number for registration on tx and moves it into the
// document record set: a same-department reservation is deleted and its
// ledger row handed over, a free number is claimed.
func (s *Allocator) consumeNumber(ctx context.Context, tx *gorm.DB, caller domain.Identity, number string) error {
	if _, err := repo.FindDocumentByNumber(ctx, tx, number); err == nil {
		return ErrDuplicateNumber
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	r, err := repo.FindReservationByNumber(ctx, tx, number)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if err := repo.ClaimNumber(ctx, tx, number, domain.ClaimDocument); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrDuplicateNumber
			}
			return err
		}
		numbersAllocated.WithLabelValues(string(domain.ClaimDocument)).Inc()
		return nil
	case err != nil:
		return err
	}

	if r.Department != caller.Department {
		return ErrForbiddenNumber
	}
	if err := repo.DeleteReservation(ctx, tx, r.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Consumed by a concurrent registration.
			return ErrDuplicateNumber
		}
		return err
	}
	err = repo.TransferClaim(ctx, tx, number, domain.ClaimDocument)
	if errors.Is(err, repo.ErrNotFound) {
		err = repo.ClaimNumber(ctx, tx, number, domain.ClaimDocument)
	}
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrDuplicateNumber
	}
	return err
}

func (s *Allocator) reservationView(r domain.Reservation, now time.Time) ReservationView {
	expires := r.CreatedAt.Add(s.ttl())
	status := StatusActive
	switch {
	case r.Used:
		status = StatusUsed
	case expires.Before(now):
		status = StatusExpired
	}
	reservedBy := "Unknown User"
	if r.User.ID != "" {
		reservedBy = domain.IdentityOf(r.User).DisplayName()
	}
	return ReservationView{
		ID:         r.ID,
		Number:     r.Number,
		Type:       r.Type,
		Department: r.Department,
		ReservedBy: reservedBy,
		ReservedAt: r.CreatedAt,
		ExpiresAt:  expires,
		Status:     status,
	}
}

func (s *Allocator) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Allocator) ttl() time.Duration {
	if s.ReservationTTL > 0 {
		return s.ReservationTTL
	}
	return DefaultReservationTTL
}

func (s *Allocator) maxBatch() int {
	if s.MaxBatch > 0 {
		return s.MaxBatch
	}
	return DefaultMaxBatch
}

func (s *Allocator) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultMaxAttempts
}
