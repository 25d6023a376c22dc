// Package handlers implements the registry's REST endpoints.
//
// Handlers are transport-thin: they bind and sanity-check input, take the
// caller from the authentication middleware, delegate to the services and
// translate results and service errors into JSON responses.
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/http/middleware"
	"github.com/tbourn/go-docregistry-backend/internal/services"
	"github.com/tbourn/go-docregistry-backend/internal/tokens"
)

//
// Service contracts
//

// Allocator hands out numbers and manages reservations.
type Allocator interface {
	GenerateNumber(ctx context.Context, typ domain.DocumentType) (string, error)
	Reserve(ctx context.Context, caller domain.Identity, typ domain.DocumentType, count int) ([]services.ReservationView, error)
	RegisterDocument(ctx context.Context, caller domain.Identity, in services.RegisterInput) (*services.DocumentView, error)
	ListReservations(ctx context.Context, caller domain.Identity, scope services.ReservationScope) ([]services.ReservationView, error)
	DeleteReservation(ctx context.Context, id string) (*services.ReservationView, error)
}

// DocumentService reads and maintains registered documents.
type DocumentService interface {
	ListDepartment(ctx context.Context, caller domain.Identity) ([]services.DocumentView, error)
	ListMine(ctx context.Context, caller domain.Identity) ([]services.DocumentView, error)
	ListAll(ctx context.Context) ([]services.DocumentView, error)
	Recent(ctx context.Context, limit int) ([]services.DocumentView, error)
	Stats(ctx context.Context, caller domain.Identity) (services.UserStats, error)
	// Fingerprint returns the document count and latest update of a
	// department, used to build the list ETag.
	Fingerprint(ctx context.Context, department string) (int64, *time.Time, error)
	Update(ctx context.Context, id string, in services.DocumentUpdate) (*services.DocumentView, error)
	Delete(ctx context.Context, id string) (*services.DocumentView, error)
}

// UserService manages accounts.
type UserService interface {
	Create(ctx context.Context, in services.NewUser) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id string, in services.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Identity, id string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// AuthService signs callers in and out.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Register(ctx context.Context, in services.NewUser) (*domain.User, error)
	Logout(ctx context.Context, claims *tokens.Claims) error
}

// AuditService records and lists audit entries. Log* calls never block on
// storage.
type AuditService interface {
	LogDocument(ctx context.Context, who domain.Identity, action string)
	LogAuth(ctx context.Context, who domain.Identity, action string)
	Add(ctx context.Context, who domain.Identity, typ domain.LogType, action string) (*services.AuditEntry, error)
	List(ctx context.Context, limit int) ([]services.AuditEntry, error)
}

// IdempotencyStore keeps replayable responses.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, operation, key string) (*services.StoredResponse, error)
	Store(ctx context.Context, userID, operation, key string, status int, body []byte) error
}

//
// Wiring
//

// Deps lists the services the handlers delegate to. Idempotency may be nil,
// in which case Idempotency-Key is validated but never replayed.
type Deps struct {
	Allocator   Allocator
	Documents   DocumentService
	Users       UserService
	Auth        AuthService
	Audit       AuditService
	Idempotency IdempotencyStore

	// LogsMaxLimit caps GET /logs; zero means services.MaxLogsLimit.
	LogsMaxLimit int
	// Started is reported as uptime by /health; zero means New's call time.
	Started time.Time
}

// Handlers groups all endpoints.
type Handlers struct {
	alloc   Allocator
	docs    DocumentService
	users   UserService
	auth    AuthService
	audit   AuditService
	idem    IdempotencyStore
	logsMax int
	started time.Time

	// inflight holds the idempotency slots of requests being served.
	inflight sync.Map
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	started := d.Started
	if started.IsZero() {
		started = time.Now()
	}
	logsMax := d.LogsMaxLimit
	if logsMax <= 0 {
		logsMax = services.MaxLogsLimit
	}
	return &Handlers{
		alloc:   d.Allocator,
		docs:    d.Documents,
		users:   d.Users,
		auth:    d.Auth,
		audit:   d.Audit,
		idem:    d.Idempotency,
		logsMax: logsMax,
		started: started,
	}
}

// caller returns the authenticated identity. Routes that use it are always
// mounted behind middleware.Authenticate.
func caller(c *gin.Context) domain.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}
