package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/http/middleware"
	"github.com/tbourn/go-docregistry-backend/internal/services"
	"github.com/tbourn/go-docregistry-backend/internal/tokens"
)

// ---------- identities ----------

var (
	alice = domain.Identity{ID: "u-alice", Name: "Alice", Email: "alice@example.com", Department: "Finance", Role: domain.RoleUser}
	root  = domain.Identity{ID: "u-root", Name: "Root", Email: "root@example.com", Department: "Administration", Role: domain.RoleAdmin}
)

// tokenAuth maps bearer tokens to identities.
type tokenAuth map[string]domain.Identity

func (a tokenAuth) Authenticate(_ context.Context, raw string) (domain.Identity, *tokens.Claims, error) {
	id, ok := a[raw]
	if !ok {
		return domain.Identity{}, nil, tokens.ErrInvalidToken
	}
	cl := &tokens.Claims{Role: id.Role}
	cl.Subject = id.ID
	cl.ID = "jti-" + id.ID
	return id, cl, nil
}

var testTokens = tokenAuth{"alice": alice, "root": root}

// ---------- service stubs ----------

type stubAllocator struct {
	generate func(context.Context, domain.DocumentType) (string, error)
	reserve  func(context.Context, domain.Identity, domain.DocumentType, int) ([]services.ReservationView, error)
	register func(context.Context, domain.Identity, services.RegisterInput) (*services.DocumentView, error)
	list     func(context.Context, domain.Identity, services.ReservationScope) ([]services.ReservationView, error)
	del      func(context.Context, string) (*services.ReservationView, error)
}

func (s *stubAllocator) GenerateNumber(ctx context.Context, typ domain.DocumentType) (string, error) {
	if s.generate != nil {
		return s.generate(ctx, typ)
	}
	return "0001", nil
}

func (s *stubAllocator) Reserve(ctx context.Context, who domain.Identity, typ domain.DocumentType, n int) ([]services.ReservationView, error) {
	if s.reserve != nil {
		return s.reserve(ctx, who, typ, n)
	}
	return []services.ReservationView{}, nil
}

func (s *stubAllocator) RegisterDocument(ctx context.Context, who domain.Identity, in services.RegisterInput) (*services.DocumentView, error) {
	if s.register != nil {
		return s.register(ctx, who, in)
	}
	return &services.DocumentView{Number: in.Number, Title: in.Title, Type: in.Type}, nil
}

func (s *stubAllocator) ListReservations(ctx context.Context, who domain.Identity, scope services.ReservationScope) ([]services.ReservationView, error) {
	if s.list != nil {
		return s.list(ctx, who, scope)
	}
	return []services.ReservationView{}, nil
}

func (s *stubAllocator) DeleteReservation(ctx context.Context, id string) (*services.ReservationView, error) {
	if s.del != nil {
		return s.del(ctx, id)
	}
	return &services.ReservationView{ID: id, Number: "0001"}, nil
}

type stubDocs struct {
	listDept    func(context.Context, domain.Identity) ([]services.DocumentView, error)
	listMine    func(context.Context, domain.Identity) ([]services.DocumentView, error)
	listAll     func(context.Context) ([]services.DocumentView, error)
	recent      func(context.Context, int) ([]services.DocumentView, error)
	stats       func(context.Context, domain.Identity) (services.UserStats, error)
	fingerprint func(context.Context, string) (int64, *time.Time, error)
	update      func(context.Context, string, services.DocumentUpdate) (*services.DocumentView, error)
	del         func(context.Context, string) (*services.DocumentView, error)
}

func (s *stubDocs) ListDepartment(ctx context.Context, who domain.Identity) ([]services.DocumentView, error) {
	if s.listDept != nil {
		return s.listDept(ctx, who)
	}
	return []services.DocumentView{}, nil
}

func (s *stubDocs) ListMine(ctx context.Context, who domain.Identity) ([]services.DocumentView, error) {
	if s.listMine != nil {
		return s.listMine(ctx, who)
	}
	return []services.DocumentView{}, nil
}

func (s *stubDocs) ListAll(ctx context.Context) ([]services.DocumentView, error) {
	if s.listAll != nil {
		return s.listAll(ctx)
	}
	return []services.DocumentView{}, nil
}

func (s *stubDocs) Recent(ctx context.Context, limit int) ([]services.DocumentView, error) {
	if s.recent != nil {
		return s.recent(ctx, limit)
	}
	return []services.DocumentView{}, nil
}

func (s *stubDocs) Stats(ctx context.Context, who domain.Identity) (services.UserStats, error) {
	if s.stats != nil {
		return s.stats(ctx, who)
	}
	return services.UserStats{}, nil
}

func (s *stubDocs) Fingerprint(ctx context.Context, dept string) (int64, *time.Time, error) {
	if s.fingerprint != nil {
		return s.fingerprint(ctx, dept)
	}
	return 0, nil, nil
}

func (s *stubDocs) Update(ctx context.Context, id string, in services.DocumentUpdate) (*services.DocumentView, error) {
	if s.update != nil {
		return s.update(ctx, id, in)
	}
	return &services.DocumentView{ID: id, Title: in.Title, Type: in.Type}, nil
}

func (s *stubDocs) Delete(ctx context.Context, id string) (*services.DocumentView, error) {
	if s.del != nil {
		return s.del(ctx, id)
	}
	return &services.DocumentView{ID: id, Number: "0001"}, nil
}

type stubUsers struct {
	create   func(context.Context, services.NewUser) (*domain.User, error)
	get      func(context.Context, string) (*domain.User, error)
	list     func(context.Context) ([]domain.User, error)
	update   func(context.Context, string, services.UserUpdate) (*domain.User, error)
	del      func(context.Context, domain.Identity, string) (*domain.User, error)
	changePw func(context.Context, string, string, string) error
}

func (s *stubUsers) Create(ctx context.Context, in services.NewUser) (*domain.User, error) {
	if s.create != nil {
		return s.create(ctx, in)
	}
	return &domain.User{ID: "u-new", Name: in.Name, Email: in.Email, Role: in.Role, Department: in.Department}, nil
}

func (s *stubUsers) Get(ctx context.Context, id string) (*domain.User, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (s *stubUsers) List(ctx context.Context) ([]domain.User, error) {
	if s.list != nil {
		return s.list(ctx)
	}
	return []domain.User{}, nil
}

func (s *stubUsers) Update(ctx context.Context, id string, in services.UserUpdate) (*domain.User, error) {
	if s.update != nil {
		return s.update(ctx, id, in)
	}
	return &domain.User{ID: id, Name: in.Name, Email: in.Email}, nil
}

func (s *stubUsers) Delete(ctx context.Context, who domain.Identity, id string) (*domain.User, error) {
	if s.del != nil {
		return s.del(ctx, who, id)
	}
	return &domain.User{ID: id}, nil
}

func (s *stubUsers) ChangePassword(ctx context.Context, id, cur, next string) error {
	if s.changePw != nil {
		return s.changePw(ctx, id, cur, next)
	}
	return nil
}

type stubAuth struct {
	login    func(context.Context, string, string) (*services.Session, error)
	register func(context.Context, services.NewUser) (*domain.User, error)
	logout   func(context.Context, *tokens.Claims) error
}

func (s *stubAuth) Login(ctx context.Context, email, pw string) (*services.Session, error) {
	if s.login != nil {
		return s.login(ctx, email, pw)
	}
	return nil, services.ErrInvalidCredentials
}

func (s *stubAuth) Register(ctx context.Context, in services.NewUser) (*domain.User, error) {
	if s.register != nil {
		return s.register(ctx, in)
	}
	return &domain.User{ID: "u-new", Name: in.Name, Email: in.Email, Department: in.Department, Role: domain.RoleUser}, nil
}

func (s *stubAuth) Logout(ctx context.Context, cl *tokens.Claims) error {
	if s.logout != nil {
		return s.logout(ctx, cl)
	}
	return nil
}

type auditCall struct {
	who    domain.Identity
	typ    domain.LogType
	action string
}

// recordingAudit keeps Log* calls in memory.
type recordingAudit struct {
	mu    sync.Mutex
	calls []auditCall
	add   func(context.Context, domain.Identity, domain.LogType, string) (*services.AuditEntry, error)
	list  func(context.Context, int) ([]services.AuditEntry, error)
}

func (a *recordingAudit) LogDocument(_ context.Context, who domain.Identity, action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{who, domain.LogDocument, action})
}

func (a *recordingAudit) LogAuth(_ context.Context, who domain.Identity, action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{who, domain.LogAuth, action})
}

func (a *recordingAudit) Add(ctx context.Context, who domain.Identity, typ domain.LogType, action string) (*services.AuditEntry, error) {
	if a.add != nil {
		return a.add(ctx, who, typ, action)
	}
	return &services.AuditEntry{ID: "log-1", Action: action, Type: typ, User: services.AuditUser{Name: who.Name, Email: who.Email}}, nil
}

func (a *recordingAudit) List(ctx context.Context, limit int) ([]services.AuditEntry, error) {
	if a.list != nil {
		return a.list(ctx, limit)
	}
	return []services.AuditEntry{}, nil
}

func (a *recordingAudit) last() auditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.calls) == 0 {
		return auditCall{}
	}
	return a.calls[len(a.calls)-1]
}

// memIdem is an in-memory IdempotencyStore.
type memIdem struct {
	mu   sync.Mutex
	rows map[string]services.StoredResponse
	err  error
}

func newMemIdem() *memIdem { return &memIdem{rows: map[string]services.StoredResponse{}} }

func (m *memIdem) Lookup(_ context.Context, uid, op, key string) (*services.StoredResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rows[uid+"|"+op+"|"+key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memIdem) Store(_ context.Context, uid, op, key string, status int, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[uid+"|"+op+"|"+key] = services.StoredResponse{Status: status, Body: append([]byte(nil), body...)}
	return nil
}

func (m *memIdem) lookupFn() middleware.IdempotencyLookup {
	return func(ctx context.Context, uid, op, key string, _ time.Time) (bool, error) {
		r, err := m.Lookup(ctx, uid, op, key)
		return r != nil, err
	}
}

// ---------- harness ----------

type harness struct {
	alloc *stubAllocator
	docs  *stubDocs
	users *stubUsers
	auth  *stubAuth
	audit *recordingAudit
	idem  *memIdem
	h     *Handlers
	r     *gin.Engine
}

// newHarness mounts the handlers on a minimal router: public auth routes,
// authenticated routes and an admin group, mirroring the production layout.
func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hs := &harness{
		alloc: &stubAllocator{},
		docs:  &stubDocs{},
		users: &stubUsers{},
		auth:  &stubAuth{},
		audit: &recordingAudit{},
		idem:  newMemIdem(),
	}
	hs.h = New(Deps{
		Allocator:   hs.alloc,
		Documents:   hs.docs,
		Users:       hs.users,
		Auth:        hs.auth,
		Audit:       hs.audit,
		Idempotency: hs.idem,
		Started:     time.Now().Add(-time.Minute),
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/health", hs.h.Health)
	r.POST("/auth/login", hs.h.Login)
	r.POST("/auth/register", hs.h.Register)

	authed := r.Group("", middleware.Authenticate(testTokens))
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, hs.idem.lookupFn())
	authed.POST("/auth/logout", hs.h.Logout)
	authed.POST("/documents", idem, hs.h.RegisterDocument)
	authed.GET("/documents", hs.h.ListDocuments)
	authed.GET("/documents/my-documents", hs.h.MyDocuments)
	authed.GET("/documents/user-stats", hs.h.UserStats)
	authed.POST("/documents/reserve", idem, hs.h.Reserve)
	authed.GET("/documents/reserve", hs.h.DepartmentReservations)
	authed.GET("/documents/my-reservations", hs.h.MyReservations)
	authed.GET("/documents/reserved-numbers", hs.h.ReservedNumbers)
	authed.POST("/documents/generate-number", hs.h.GenerateNumber)
	authed.GET("/users/profile", hs.h.Profile)
	authed.PUT("/users/change-password", hs.h.ChangePassword)
	authed.POST("/logs/add", hs.h.AddLog)

	admin := authed.Group("", middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/documents/all", hs.h.AllDocuments)
	admin.GET("/documents/recent", hs.h.RecentDocuments)
	admin.PUT("/documents/:id", hs.h.UpdateDocument)
	admin.DELETE("/documents/:id", hs.h.DeleteDocument)
	admin.DELETE("/documents/reserved-numbers/:id", hs.h.DeleteReservation)
	admin.POST("/users", hs.h.CreateUser)
	admin.GET("/users", hs.h.ListUsers)
	admin.PUT("/users/:id", hs.h.UpdateUser)
	admin.DELETE("/users/:id", hs.h.DeleteUser)
	admin.GET("/logs", hs.h.ListLogs)

	hs.r = r
	return hs
}

// do sends a request as the given token ("" for anonymous). body is JSON
// encoded unless it is a string.
func (hs *harness) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json: %v; body=%s", err, w.Body.String())
	}
	return v
}

// errBoom is an unmapped error that must come out as 500.
var errBoom = errors.New("boom")

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d; body=%s", w.Code, status, w.Body.String())
	}
}

func wantCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	wantStatus(t, w, status)
	er := decode[ErrorResponse](t, w)
	if er.Code != code {
		t.Fatalf("code=%q want %q", er.Code, code)
	}
	if er.RequestID == "" {
		t.Fatalf("missing request_id in %s", w.Body.String())
	}
}
