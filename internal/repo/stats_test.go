package repo

import (
	"context"
	"testing"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

func TestStatsForUser(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	u := seedUser(t, db, "a@example.com", "finance")
	other := seedUser(t, db, "b@example.com", "finance")

	seedDocument(t, db, u, "0001", domain.DocumentIn)
	seedDocument(t, db, u, "0002", domain.DocumentIn)
	seedDocument(t, db, u, "0003", domain.DocumentOut)
	seedDocument(t, db, other, "0004", domain.DocumentOut)
	seedReservation(t, db, u, "0005")

	s, err := StatsForUser(ctx, db, u.ID)
	if err != nil {
		t.Fatalf("StatsForUser: %v", err)
	}
	if s.TotalDocuments != 3 || s.InDocuments != 2 || s.OutDocuments != 1 || s.ReservedNumbers != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestDepartmentDocumentsStats(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	count, maxTS, err := DepartmentDocumentsStats(ctx, db, "finance")
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("expected empty stats, got %d %v (err=%v)", count, maxTS, err)
	}

	u := seedUser(t, db, "a@example.com", "finance")
	seedDocument(t, db, u, "0001", domain.DocumentIn)
	seedDocument(t, db, u, "0002", domain.DocumentOut)

	count, maxTS, err = DepartmentDocumentsStats(ctx, db, "finance")
	if err != nil || count != 2 || maxTS == nil || maxTS.IsZero() {
		t.Fatalf("unexpected stats %d %v (err=%v)", count, maxTS, err)
	}
}
