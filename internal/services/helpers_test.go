package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/llm"
	"github.com/tbourn/go-guide-backend/internal/repo"
)

// newTestDB opens a migrated file-backed DB with a single connection so
// concurrent callers queue instead of hitting SQLITE_BUSY.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "guide.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func strp(s string) *string { return &s }

// seedProject stores project "p1" with two milestones. Milestone 1 carries
// legacy flat-list seed hints, which belong to the GUIDED ledger.
func seedProject(t *testing.T, db *gorm.DB) *domain.Project {
	t.Helper()
	p := &domain.Project{
		ID:                 "p1",
		Title:              "Todo API",
		Description:        "Build a small REST API for todos.",
		DifficultyLevel:    "beginner",
		Technologies:       []string{"Go", "SQLite"},
		LearningObjectives: []string{"HTTP routing", "Persistence"},
		Milestones: []domain.Milestone{
			{Title: "Scaffold the server", Description: "Create a module and a health endpoint.",
				SeedHints: domain.SeedHints{domain.ModeGuided: {"Start with net/http and a single handler."}}},
			{Title: "Persist todos", Description: "Store todos in SQLite."},
		},
	}
	if err := repo.UpsertProject(context.Background(), db, p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return p
}

// engine wires an Orchestrator over db with the given gateway.
func engine(db *gorm.DB, gw llm.Gateway) *Orchestrator {
	return NewOrchestrator(db, gw, Options{})
}

var errSinkGone = errors.New("client went away")

// recordSink collects fragments. failAfter >= 0 makes Write fail once that
// many fragments were accepted.
type recordSink struct {
	mu        sync.Mutex
	frags     []string
	closed    int
	failAfter int
}

func newRecordSink() *recordSink { return &recordSink{failAfter: -1} }

func (s *recordSink) Write(_ context.Context, f string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter >= 0 && len(s.frags) >= s.failAfter {
		return errSinkGone
	}
	s.frags = append(s.frags, f)
	return nil
}

func (s *recordSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordSink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := ""
	for _, f := range s.frags {
		out += f
	}
	return out
}

// flakyStore fails the nth Append (1-based) and delegates everything else.
type flakyStore struct {
	*ConversationStore
	mu     sync.Mutex
	calls  int
	failOn int
}

func (f *flakyStore) Append(ctx context.Context, ownerID string, projectID *string, role, content string) (*domain.Message, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == f.failOn {
		return nil, errors.New("disk full")
	}
	return f.ConversationStore.Append(ctx, ownerID, projectID, role, content)
}
