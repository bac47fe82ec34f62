// Guide HTTP handlers.
//
// This file exposes REST endpoints of the guidance engine:
//   - POST /guide/chat           (one conversation turn, idempotent)
//   - GET  /guide/history        (paginated, ETag support)
//   - GET  /guide/history/all    (every conversation of the user)
//   - POST /guide/hints          (issue a new hint)
//   - GET  /guide/hints          (hint ledger of a milestone)
//
// Streaming variants live in stream_handler.go; catalog endpoints in
// project_handler.go. Handlers stay transport-thin: they bind input, call the
// orchestrator and translate its error classes through writeError.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/http/middleware"
	"github.com/tbourn/go-guide-backend/internal/services"
	"github.com/tbourn/go-guide-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// GuideService is the orchestrator surface consumed by the handlers.
type GuideService interface {
	Converse(ctx context.Context, ownerID string, projectID *string, message string) (*services.Reply, error)
	ConverseStream(ctx context.Context, ownerID string, projectID *string, message string, sink services.Sink) (*services.Reply, error)
	RequestHint(ctx context.Context, ownerID, projectID string, milestone int, mode string) (*services.HintReply, error)
	ListHints(ctx context.Context, ownerID, projectID string, milestone int, mode string) ([]string, domain.Mode, error)
	HistoryPage(ctx context.Context, ownerID string, projectID *string, page, pageSize int) ([]domain.Message, int64, error)
	AllHistory(ctx context.Context, ownerID string) ([]domain.Message, error)
	StartProject(ctx context.Context, ownerID, projectID, mode string) (*domain.ModeAssignment, error)
}

// IdempotencyStore remembers the assistant message produced for a key so a
// retried POST /guide/chat is answered without a second generation.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string) (*domain.Message, bool)
	Remember(ctx context.Context, userID, scope, key, messageID string)
}

// HistoryStats reports the size and newest timestamp of a conversation.
// It backs the weak ETag of GET /guide/history.
type HistoryStats interface {
	Stats(ctx context.Context, ownerID string, projectID *string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups the guide, streaming and catalog endpoints.
type Handlers struct {
	guide    GuideService
	projects ProjectLister
	idem     IdempotencyStore
	stats    HistoryStats

	// WSOriginPatterns are the host patterns accepted on the WebSocket
	// upgrade in addition to same-origin requests.
	WSOriginPatterns []string
}

// New constructs a Handlers. idem and stats may be nil, which disables
// replays and ETags respectively.
func New(guide GuideService, projects ProjectLister, idem IdempotencyStore, stats HistoryStats) *Handlers {
	return &Handlers{guide: guide, projects: projects, idem: idem, stats: stats}
}

//
// DTOs
//

// ChatRequest is the JSON payload of a conversation turn.
type ChatRequest struct {
	// Message is the learner's question. It must be non-blank.
	Message string `json:"message" example:"How should I structure my handlers?"`
	// ProjectID scopes the turn to a catalog project; omit for a general chat.
	ProjectID *string `json:"project_id,omitempty" example:"todo-api"`
}

// ChatResponse carries the assistant reply and the persisted message.
type ChatResponse struct {
	AssistantText string          `json:"assistant_text"`
	Message       *domain.Message `json:"message"`
	Mode          domain.Mode     `json:"mode,omitempty" example:"STANDARD"`
}

// HintRequest asks for the next hint of a milestone.
type HintRequest struct {
	ProjectID       string `json:"project_id"       example:"todo-api"`
	MilestoneNumber int    `json:"milestone_number" example:"1"`
	// Mode overrides the learner's resolved mode (GUIDED|STANDARD|HARDCORE).
	Mode string `json:"mode,omitempty" example:"GUIDED"`
}

// HintResponse carries the new hint and the whole ledger including it.
type HintResponse struct {
	Hint  string      `json:"hint"`
	Hints []string    `json:"hints"`
	Mode  domain.Mode `json:"mode" example:"GUIDED"`
}

// HintsResponse is the ledger of a milestone for one mode.
type HintsResponse struct {
	Hints []string    `json:"hints"`
	Mode  domain.Mode `json:"mode" example:"GUIDED"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// HistoryResponse wraps a page of messages and pagination information.
type HistoryResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// AllHistoryResponse lists every message of the user.
type AllHistoryResponse struct {
	Messages []domain.Message `json:"messages"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes line endings, collapses blank-line runs and
// trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// optionalProjectID maps a blank project id to the general conversation.
func optionalProjectID(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

// bindChat reads a ChatRequest. The body is cached because the idempotency
// scope may already have been read from it.
func bindChat(c *gin.Context) (ChatRequest, bool) {
	var req ChatRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return req, false
	}
	req.Message = sanitizeContent(req.Message)
	req.ProjectID = optionalProjectID(req.ProjectID)
	return req, true
}

func historyETag(uid, scope string, page, size int, count int64, newest *time.Time) string {
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	return fmt.Sprintf(`W/"history:%s:%s:%d:%d:%d:%d"`, uid, scope, page, size, count, ts)
}

//
// Handlers
//

// Chat godoc
// @ID          guideChat
// @Summary     Ask the guide
// @Description Appends the learner message to the conversation, generates a reply in the learner's mode and persists it.
// @Description Supports idempotency via the Idempotency-Key header (same key and scope → same reply, no second generation).
// @Tags        Guide
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Authenticated user id"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ChatRequest  true  "Conversation turn"
//
// @Success     200  {object}  handlers.ChatResponse
// @Header      200  {string}  Idempotency-Replayed  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Project not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Generation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Persistence failed"
// @Router      /guide/chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	req, ok := bindChat(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	scope := domain.ScopeFor(req.ProjectID)

	idemKey, _, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.idem != nil {
		if msg, found := h.idem.Lookup(ctx, uid, scope, idemKey); found {
			c.Header("Idempotency-Replayed", "true")
			okJSON(c, http.StatusOK, ChatResponse{AssistantText: msg.Content, Message: msg})
			return
		}
	}

	reply, err := h.guide.Converse(ctx, uid, req.ProjectID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}

	if hasKey && h.idem != nil && reply.Message != nil {
		h.idem.Remember(ctx, uid, scope, idemKey, reply.Message.ID)
	}
	okJSON(c, http.StatusOK, ChatResponse{
		AssistantText: reply.AssistantText,
		Message:       reply.Message,
		Mode:          reply.Mode,
	})
}

// History godoc
// @ID          guideHistory
// @Summary     Conversation history (paginated)
// @Description Returns a page of one conversation, oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Guide
// @Produce     json
//
// @Param       X-User-ID      header  string  true  "Authenticated user id"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       project_id     query   string  false "Project conversation; omit for the general one"  example(todo-api)
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.HistoryResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /guide/history [get]
func (h *Handlers) History(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	pid := c.Query("project_id")
	projectID := optionalProjectID(&pid)
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"))

	if h.stats != nil && uid != "" {
		if count, newest, err := h.stats.Stats(ctx, uid, projectID); err == nil {
			etag := historyETag(uid, domain.ScopeFor(projectID), page, pageSize, count, newest)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.guide.HistoryPage(ctx, uid, projectID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Message{}
	}
	totalPages := utils.TotalPages(total, pageSize)
	okJSON(c, http.StatusOK, HistoryResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// AllHistory godoc
// @ID          guideHistoryAll
// @Summary     Every message of the user
// @Description Returns all conversations of the user, oldest first.
// @Tags        Guide
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Success     200  {object}  handlers.AllHistoryResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /guide/history/all [get]
func (h *Handlers) AllHistory(c *gin.Context) {
	items, err := h.guide.AllHistory(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []domain.Message{}
	}
	okJSON(c, http.StatusOK, AllHistoryResponse{Messages: items})
}

// RequestHint godoc
// @ID          guideRequestHint
// @Summary     Request a new hint
// @Description Generates a hint for the milestone that repeats none of the hints already issued in that mode, and appends it to the ledger.
// @Tags        Hints
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Param       body       body    handlers.HintRequest  true  "Hint request"
// @Success     200  {object}  handlers.HintResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Project or milestone not found"
// @Failure     502  {object}  handlers.ErrorResponse "Generation failed or no new hint"
// @Failure     500  {object}  handlers.ErrorResponse "Persistence failed"
// @Router      /guide/hints [post]
func (h *Handlers) RequestHint(c *gin.Context) {
	var req HintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	reply, err := h.guide.RequestHint(c.Request.Context(), middleware.UserID(c),
		strings.TrimSpace(req.ProjectID), req.MilestoneNumber, req.Mode)
	if err != nil {
		writeError(c, err)
		return
	}
	okJSON(c, http.StatusOK, HintResponse{Hint: reply.Hint, Hints: reply.Hints, Mode: reply.Mode})
}

// ListHints godoc
// @ID          guideListHints
// @Summary     Hint ledger of a milestone
// @Description Returns the hints issued so far for the milestone in the given mode, or in the learner's resolved mode.
// @Tags        Hints
// @Produce     json
// @Param       X-User-ID         header  string  true  "Authenticated user id"  example(user123)
// @Param       project_id        query   string  true  "Project id"        example(todo-api)
// @Param       milestone_number  query   int     true  "Milestone number"  minimum(1)
// @Param       mode              query   string  false "GUIDED|STANDARD|HARDCORE"
// @Success     200  {object}  handlers.HintsResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Milestone not found"
// @Router      /guide/hints [get]
func (h *Handlers) ListHints(c *gin.Context) {
	milestone := utils.AtoiDefault(c.Query("milestone_number"), 0)
	hints, mode, err := h.guide.ListHints(c.Request.Context(), middleware.UserID(c),
		strings.TrimSpace(c.Query("project_id")), milestone, c.Query("mode"))
	if err != nil {
		writeError(c, err)
		return
	}
	if hints == nil {
		hints = []string{}
	}
	okJSON(c, http.StatusOK, HintsResponse{Hints: hints, Mode: mode})
}
