package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/repo"
)

// ProjectCatalog is the read-only view of projects the engine depends on.
type ProjectCatalog interface {
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	GetMilestone(ctx context.Context, projectID string, number int) (*domain.Milestone, error)
}

// GormCatalog serves the catalog from the projects tables.
type GormCatalog struct {
	DB *gorm.DB
}

// GetProject returns the project with ordered milestones or ErrNotFound.
func (c GormCatalog) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := repo.GetProject(ctx, c.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: project %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return p, nil
}

// GetMilestone returns milestone number of projectID or ErrNotFound.
func (c GormCatalog) GetMilestone(ctx context.Context, projectID string, number int) (*domain.Milestone, error) {
	m, err := repo.GetMilestone(ctx, c.DB, projectID, number)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: milestone %d of project %q", ErrNotFound, number, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return m, nil
}

// ListProjects returns catalog projects ordered by title, without milestones.
func (c GormCatalog) ListProjects(ctx context.Context) ([]domain.Project, error) {
	ps, err := repo.ListProjects(ctx, c.DB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return ps, nil
}
