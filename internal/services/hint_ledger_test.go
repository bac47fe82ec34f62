package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tbourn/go-guide-backend/internal/domain"
)

func TestHintLedger_SeededHintsBelongToGuided(t *testing.T) {
	db := newTestDB(t)
	seedProject(t, db)
	l := &HintLedger{DB: db, Catalog: GormCatalog{DB: db}}
	ctx := context.Background()

	guided, err := l.ExistingHints(ctx, "p1", 1, domain.ModeGuided)
	if err != nil {
		t.Fatalf("ExistingHints: %v", err)
	}
	if diff := cmp.Diff([]string{"Start with net/http and a single handler."}, guided); diff != "" {
		t.Fatalf("guided ledger (-want +got):\n%s", diff)
	}
	for _, m := range []domain.Mode{domain.ModeStandard, domain.ModeHardcore} {
		got, err := l.ExistingHints(ctx, "p1", 1, m)
		if err != nil {
			t.Fatalf("ExistingHints(%s): %v", m, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("%s ledger should be empty and non-nil, got %#v", m, got)
		}
	}
}

func TestHintLedger_AppendKeepsModesIsolated(t *testing.T) {
	db := newTestDB(t)
	seedProject(t, db)
	l := &HintLedger{DB: db, Catalog: GormCatalog{DB: db}}
	ctx := context.Background()

	if _, err := l.Append(ctx, "p1", 2, domain.ModeHardcore, "Which driver speaks SQLite without cgo?", "u1"); err != nil {
		t.Fatalf("Append hardcore: %v", err)
	}
	rec, err := l.Append(ctx, "p1", 2, domain.ModeGuided, "Open the database once in main and pass it down.", "u2")
	if err != nil {
		t.Fatalf("Append guided: %v", err)
	}
	if rec.Mode != domain.ModeGuided || rec.MilestoneNumber != 2 || rec.RequestedBy != "u2" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	hard, _ := l.ExistingHints(ctx, "p1", 2, domain.ModeHardcore)
	guided, _ := l.ExistingHints(ctx, "p1", 2, domain.ModeGuided)
	std, _ := l.ExistingHints(ctx, "p1", 2, domain.ModeStandard)
	if len(hard) != 1 || len(guided) != 1 || len(std) != 0 {
		t.Fatalf("ledgers leaked across modes: hard=%v guided=%v standard=%v", hard, guided, std)
	}
}

func TestHintLedger_AppendRejectsRepeats(t *testing.T) {
	db := newTestDB(t)
	seedProject(t, db)
	l := &HintLedger{DB: db, Catalog: GormCatalog{DB: db}}
	ctx := context.Background()

	cases := []struct {
		name string
		hint string
	}{
		{"seeded verbatim", "Start with net/http and a single handler."},
		{"case and spacing", "  start WITH net/http   and a single handler. "},
		{"contained", "Start with net/http"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Append(ctx, "p1", 1, domain.ModeGuided, tc.hint, "u1")
			if !errors.Is(err, ErrDuplicateHint) {
				t.Fatalf("expected ErrDuplicateHint, got %v", err)
			}
		})
	}

	// the same text is new in another mode's ledger
	if _, err := l.Append(ctx, "p1", 1, domain.ModeStandard, "Start with net/http and a single handler.", "u1"); err != nil {
		t.Fatalf("Append standard: %v", err)
	}
	got, _ := l.ExistingHints(ctx, "p1", 1, domain.ModeGuided)
	if len(got) != 1 {
		t.Fatalf("rejected hints must not be stored, guided ledger=%v", got)
	}
}

func TestHintLedger_Validation(t *testing.T) {
	db := newTestDB(t)
	seedProject(t, db)
	l := &HintLedger{DB: db, Catalog: GormCatalog{DB: db}}
	ctx := context.Background()

	if _, err := l.Append(ctx, "p1", 1, "EASY", "x", "u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad mode: expected ErrValidation, got %v", err)
	}
	if _, err := l.Append(ctx, "p1", 1, domain.ModeGuided, "   ", "u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty hint: expected ErrValidation, got %v", err)
	}
	if _, err := l.ExistingHints(ctx, "p1", 9, domain.ModeGuided); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown milestone: expected ErrNotFound, got %v", err)
	}
	if _, err := l.ExistingHints(ctx, "nope", 1, domain.ModeGuided); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown project: expected ErrNotFound, got %v", err)
	}
}

func TestHintLedger_CheckNewThreshold(t *testing.T) {
	existing := []string{"Use a map to count words"}
	strict := &HintLedger{}
	if err := strict.CheckNew(existing, "Use a slice to count words"); err != nil {
		t.Fatalf("default threshold should allow a one-word change: %v", err)
	}
	loose := &HintLedger{Similarity: 0.5}
	if err := loose.CheckNew(existing, "Use a slice to count words"); !errors.Is(err, ErrDuplicateHint) {
		t.Fatalf("loose threshold: expected ErrDuplicateHint, got %v", err)
	}
}
