package repo

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/tbourn/go-docregistry-backend/internal/domain"
)

func TestListNumbers_UnionOfDocumentsAndReservations(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "a@example.com", "finance")
	seedDocument(t, db, u, "0001", domain.DocumentIn)
	seedDocument(t, db, u, "0004", domain.DocumentOut)
	seedReservation(t, db, u, "0002")

	got, err := ListNumbers(context.Background(), db)
	if err != nil {
		t.Fatalf("ListNumbers: %v", err)
	}
	sort.Strings(got)
	want := []string{"0001", "0002", "0004"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestListNumbers_EmptyStore(t *testing.T) {
	db := newTestDB(t)
	got, err := ListNumbers(context.Background(), db)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v (err=%v)", got, err)
	}
}

func TestNumberInUse_ChecksAllThreeSets(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	u := seedUser(t, db, "a@example.com", "finance")
	seedDocument(t, db, u, "0001", domain.DocumentIn)
	seedReservation(t, db, u, "0002")
	if err := ClaimNumber(ctx, db, "0003", domain.ClaimReservation); err != nil {
		t.Fatalf("claim: %v", err)
	}

	for _, n := range []string{"0001", "0002", "0003"} {
		inUse, err := NumberInUse(ctx, db, n)
		if err != nil || !inUse {
			t.Fatalf("expected %s in use (err=%v)", n, err)
		}
	}
	inUse, err := NumberInUse(ctx, db, "0009")
	if err != nil || inUse {
		t.Fatalf("expected 0009 free, got %v (err=%v)", inUse, err)
	}
}

func TestClaimNumber_SecondClaimIsDuplicate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := ClaimNumber(ctx, db, "0001", domain.ClaimReservation); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	err := ClaimNumber(ctx, db, "0001", domain.ClaimDocument)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestTransferAndReleaseClaim(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := TransferClaim(ctx, db, "0001", domain.ClaimDocument); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing claim, got %v", err)
	}
	if err := ClaimNumber(ctx, db, "0001", domain.ClaimReservation); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := TransferClaim(ctx, db, "0001", domain.ClaimDocument); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	var row domain.AllocatedNumber
	if err := db.First(&row, "number = ?", "0001").Error; err != nil || row.Kind != domain.ClaimDocument {
		t.Fatalf("expected document claim, got %+v (err=%v)", row, err)
	}

	if err := ReleaseNumber(ctx, db, "0001"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := ReleaseNumber(ctx, db, "0001"); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
	if inUse, _ := NumberInUse(ctx, db, "0001"); inUse {
		t.Fatalf("expected 0001 to be free after release")
	}
}
