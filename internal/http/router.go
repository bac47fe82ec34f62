// Package httpapi wires the HTTP transport (Gin) to the guidance engine,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, identity, idempotency, and rate
// limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-guide-backend/docs" // swagger spec registration
	"github.com/tbourn/go-guide-backend/internal/config"
	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/http/handlers"
	"github.com/tbourn/go-guide-backend/internal/http/middleware"
	"github.com/tbourn/go-guide-backend/internal/repo"
	"github.com/tbourn/go-guide-backend/internal/services"
)

const (
	maxBodyBytes          = 1 << 20
	defaultIdempotencyTTL = 24 * time.Hour
)

// idempotencyShim stores replayable chat results in the idempotency table
// and resolves them back to the persisted assistant message.
type idempotencyShim struct {
	db    *gorm.DB
	store *services.ConversationStore
	ttl   time.Duration
}

// Lookup returns the assistant message recorded for (userID, scope, key).
func (s idempotencyShim) Lookup(ctx context.Context, userID, scope, key string) (*domain.Message, bool) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, scope, key, time.Now().UTC())
	if err != nil {
		return nil, false
	}
	msg, err := s.store.Get(ctx, userID, rec.MessageID)
	if err != nil {
		return nil, false
	}
	return msg, true
}

// Remember records messageID for (userID, scope, key). A concurrent first
// writer wins; failures only cost a future replay.
func (s idempotencyShim) Remember(ctx context.Context, userID, scope, key, messageID string) {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, scope, key, messageID, http.StatusOK, s.ttl)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("scope", scope).Msg("idempotency record not stored")
	}
}

// idempotencyLookup reports whether a live record exists.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}

// chatScope peeks project_id from the cached chat body. The handler binds the
// same cached bytes.
func chatScope(c *gin.Context) string {
	var req handlers.ChatRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil || req.ProjectID == nil {
		return domain.ScopeGeneral
	}
	p := strings.TrimSpace(*req.ProjectID)
	return domain.ScopeFor(&p)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (streaming endpoints excluded)
//  8. CORS and Security headers
//
// The API group then applies Identity, the idempotency validator on
// POST /guide/chat (before the rate limiter so replays bypass it) and the
// per-user rate limiter.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, guide handlers.GuideService, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := strings.TrimRight(cfg.APIBasePath, "/")

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key", "X-Goog-Api-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/metrics",
		apiBase + "/guide/chat/stream",
		apiBase + "/guide/chat/ws",
	})))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	store := services.NewConversationStore(db)
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	h := handlers.New(guide, services.GormCatalog{DB: db}, idempotencyShim{db: db, store: store, ttl: ttl}, store)
	h.WSOriginPatterns = originHosts(cfg.CORS.AllowedOrigins)

	limited := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).Handler()
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, chatScope, idempotencyLookup(db))

	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.Identity())
	{
		api.POST("/guide/chat", idem, limited, h.Chat)
		api.POST("/guide/chat/stream", limited, h.ChatStream)
		api.GET("/guide/chat/ws", limited, h.ChatWS)
		api.POST("/guide/hints", limited, h.RequestHint)

		api.GET("/guide/history", h.History)
		api.GET("/guide/history/all", h.AllHistory)
		api.GET("/guide/hints", h.ListHints)

		api.GET("/projects", h.ListProjects)
		api.GET("/projects/:id", h.GetProject)
		api.POST("/projects/:id/start", h.StartProject)
	}
}

// corsMiddleware allows every origin when none is configured; otherwise it
// echoes allow-listed origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header, so plain clients see it too.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// originHosts turns CORS origins into WebSocket origin host patterns. No
// configured origins means any origin, matching the CORS posture.
func originHosts(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
