package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
	"github.com/tbourn/go-docregistry-backend/internal/services"
)

func TestListLogs_Limit(t *testing.T) {
	hs := newHarness(t)
	var got int
	hs.audit.list = func(_ context.Context, limit int) ([]services.AuditEntry, error) {
		got = limit
		return []services.AuditEntry{{ID: "l1"}}, nil
	}

	wantCode(t, hs.do(t, http.MethodGet, "/logs", "alice", nil), http.StatusForbidden, ErrCodeForbidden)

	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", services.DefaultLogsLimit},
		{"?limit=20", 20},
		{"?limit=abc", services.DefaultLogsLimit},
		{"?limit=999999", services.MaxLogsLimit},
	} {
		w := hs.do(t, http.MethodGet, "/logs"+tc.query, "root", nil)
		wantStatus(t, w, http.StatusOK)
		if got != tc.want {
			t.Fatalf("%q: limit=%d want %d", tc.query, got, tc.want)
		}
	}
}

func TestListLogs_CustomCap(t *testing.T) {
	hs := newHarness(t)
	hs.h.logsMax = 10
	var got int
	hs.audit.list = func(_ context.Context, limit int) ([]services.AuditEntry, error) {
		got = limit
		return nil, nil
	}
	hs.do(t, http.MethodGet, "/logs?limit=50", "root", nil)
	if got != 10 {
		t.Fatalf("limit=%d", got)
	}
}

func TestAddLog(t *testing.T) {
	hs := newHarness(t)
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	hs.audit.add = func(_ context.Context, who domain.Identity, typ domain.LogType, action string) (*services.AuditEntry, error) {
		if action == "" {
			return nil, fmt.Errorf("%w: action is required", services.ErrValidation)
		}
		return &services.AuditEntry{ID: "l9", Action: action, Type: typ, Timestamp: at,
			User: services.AuditUser{Name: who.Name, Email: who.Email}}, nil
	}

	w := hs.do(t, http.MethodPost, "/logs/add", "alice", `{"action":"Printed #0042","type":"document"}`)
	wantStatus(t, w, http.StatusCreated)
	resp := decode[AddLogResponse](t, w)
	if !resp.Success || resp.Log.ID != "l9" || resp.Log.Type != domain.LogDocument || resp.Log.User.Email != alice.Email {
		t.Fatalf("resp=%+v", resp)
	}

	wantCode(t, hs.do(t, http.MethodPost, "/logs/add", "alice", `{"type":"document"}`), http.StatusBadRequest, ErrCodeBadRequest)
	wantCode(t, hs.do(t, http.MethodPost, "/logs/add", "", `{"action":"x"}`), http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestHealth(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(t, http.MethodGet, "/health", "", nil)
	wantStatus(t, w, http.StatusOK)
	resp := decode[HealthResponse](t, w)
	if resp.Status != "OK" || resp.Message != "Server is running" {
		t.Fatalf("resp=%+v", resp)
	}
	if resp.Uptime < 60 {
		t.Fatalf("uptime=%v", resp.Uptime)
	}
}
