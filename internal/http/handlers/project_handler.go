package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/http/middleware"
)

// ProjectLister is the read side of the project catalog.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
}

// ListProjectsResponse lists catalog projects without milestones.
type ListProjectsResponse struct {
	Projects []domain.Project `json:"projects"`
}

// StartProjectRequest optionally picks the difficulty mode.
type StartProjectRequest struct {
	Mode string `json:"mode,omitempty" example:"HARDCORE"`
}

// ListProjects godoc
// @ID          listProjects
// @Summary     List catalog projects
// @Tags        Projects
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Success     200  {object}  handlers.ListProjectsResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /projects [get]
func (h *Handlers) ListProjects(c *gin.Context) {
	ps, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if ps == nil {
		ps = []domain.Project{}
	}
	okJSON(c, http.StatusOK, ListProjectsResponse{Projects: ps})
}

// GetProject godoc
// @ID          getProject
// @Summary     Get a project with its milestones
// @Tags        Projects
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Param       id         path    string  true  "Project id"  example(todo-api)
// @Success     200  {object}  domain.Project
// @Failure     404  {object}  handlers.ErrorResponse "Project not found"
// @Router      /projects/{id} [get]
func (h *Handlers) GetProject(c *gin.Context) {
	p, err := h.projects.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	okJSON(c, http.StatusOK, p)
}

// StartProject godoc
// @ID          startProject
// @Summary     Start a project in a difficulty mode
// @Description Commits the learner to the project. The mode defaults to STANDARD and cannot be changed afterwards.
// @Tags        Projects
// @Accept      json
// @Produce     json
// @Param       X-User-ID  header  string  true  "Authenticated user id"  example(user123)
// @Param       id         path    string  true  "Project id"  example(todo-api)
// @Param       body       body    handlers.StartProjectRequest  false  "Mode selection"
// @Success     201  {object}  domain.ModeAssignment
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Project not found"
// @Failure     409  {object}  handlers.ErrorResponse "Project already started"
// @Router      /projects/{id}/start [post]
func (h *Handlers) StartProject(c *gin.Context) {
	var req StartProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.guide.StartProject(c.Request.Context(), middleware.UserID(c),
		strings.TrimSpace(c.Param("id")), req.Mode)
	if err != nil {
		writeError(c, err)
		return
	}
	okJSON(c, http.StatusCreated, a)
}
