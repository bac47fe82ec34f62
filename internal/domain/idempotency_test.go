package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_Migration_UniqueScopeKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Idempotency{}, "ux_user_scope_key") {
		t.Fatalf("expected composite index ux_user_scope_key to exist")
	}

	now := time.Now().UTC()
	rec := &Idempotency{
		ID:        "id-1",
		UserID:    "u1",
		Scope:     "p1",
		Key:       "k1",
		MessageID: "m1",
		Status:    200,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Scope != "p1" || got.MessageID != "m1" || got.Status != 200 {
		t.Fatalf("unexpected row: %+v", got)
	}

	dup := &Idempotency{ID: "id-2", UserID: "u1", Scope: "p1", Key: "k1", MessageID: "m2", Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE constraint violation on (user_id, scope, key)")
	}

	// Same key in a different scope is a different request.
	other := &Idempotency{ID: "id-3", UserID: "u1", Scope: ScopeGeneral, Key: "k1", MessageID: "m3", Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("insert other scope: %v", err)
	}
}

func TestScopeFor(t *testing.T) {
	p := "p1"
	empty := ""
	if got := ScopeFor(nil); got != ScopeGeneral {
		t.Fatalf("nil project: got %q", got)
	}
	if got := ScopeFor(&empty); got != ScopeGeneral {
		t.Fatalf("empty project: got %q", got)
	}
	if got := ScopeFor(&p); got != "p1" {
		t.Fatalf("project: got %q", got)
	}
}
