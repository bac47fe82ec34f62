package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/http/middleware"
	"github.com/tbourn/go-guide-backend/internal/llm"
	"github.com/tbourn/go-guide-backend/internal/repo"
	"github.com/tbourn/go-guide-backend/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "guide.db")), &gorm.Config{
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
	p := &domain.Project{
		ID:           "p1",
		Title:        "Todo API",
		Technologies: []string{"Go"},
		Milestones: []domain.Milestone{
			{Title: "Scaffold the server",
				SeedHints: domain.SeedHints{domain.ModeGuided: {"Start with net/http and a single handler."}}},
			{Title: "Persist todos"},
		},
	}
	if err := repo.UpsertProject(context.Background(), db, p); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return db
}

// memIdem is an in-memory IdempotencyStore over the conversation store.
type memIdem struct {
	store *services.ConversationStore
	mu    sync.Mutex
	keys  map[string]string
}

func (m *memIdem) Lookup(ctx context.Context, userID, scope, key string) (*domain.Message, bool) {
	m.mu.Lock()
	id, ok := m.keys[userID+"|"+scope+"|"+key]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	msg, err := m.store.Get(ctx, userID, id)
	return msg, err == nil
}

func (m *memIdem) Remember(_ context.Context, userID, scope, key, messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[userID+"|"+scope+"|"+key] = messageID
}

type testServer struct {
	r     *gin.Engine
	db    *gorm.DB
	gw    *llm.Scripted
	store *services.ConversationStore
}

// newServer mounts the guide routes behind Identity and the idempotency
// header validator.
func newServer(t *testing.T, gw *llm.Scripted) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	store := services.NewConversationStore(db)
	o := services.NewOrchestrator(db, gw, services.Options{})
	h := New(o, services.GormCatalog{DB: db}, &memIdem{store: store, keys: map[string]string{}}, store)

	r := gin.New()
	api := r.Group("", middleware.Identity(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil, nil))
	api.POST("/guide/chat", h.Chat)
	api.POST("/guide/chat/stream", h.ChatStream)
	api.GET("/guide/chat/ws", h.ChatWS)
	api.GET("/guide/history", h.History)
	api.GET("/guide/history/all", h.AllHistory)
	api.POST("/guide/hints", h.RequestHint)
	api.GET("/guide/hints", h.ListHints)
	api.GET("/projects", h.ListProjects)
	api.GET("/projects/:id", h.GetProject)
	api.POST("/projects/:id/start", h.StartProject)
	return &testServer{r: r, db: db, gw: gw, store: store}
}

// do sends a request as user (no identity when empty) and returns the recorder.
func (s *testServer) do(t *testing.T, method, path, user string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func strp(s string) *string { return &s }
