// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read side of the project catalog
// plus the upsert used by catalog seeding.
//
// Error semantics:
//   - Missing projects or milestones return ErrNotFound (gorm.ErrRecordNotFound).
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
)

// GetProject fetches a project with its milestones ordered by number.
func GetProject(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Preload("Milestones", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("number ASC")
		}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMilestone fetches milestone number n of projectID.
func GetMilestone(ctx context.Context, db *gorm.DB, projectID string, n int) (*domain.Milestone, error) {
	var m domain.Milestone
	err := db.WithContext(ctx).
		Where("project_id = ? AND number = ?", projectID, n).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListProjects returns all catalog projects ordered by title, without milestones.
func ListProjects(ctx context.Context, db *gorm.DB) ([]domain.Project, error) {
	var out []domain.Project
	err := db.WithContext(ctx).Order("title ASC, id ASC").Find(&out).Error
	return out, err
}

// UpsertProject inserts or replaces a project and its milestones in one
// transaction. Milestone numbers are assigned 1..n in slice order when unset.
// Hint ledgers live in their own table and are not touched.
func UpsertProject(ctx context.Context, db *gorm.DB, p *domain.Project) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		milestones := p.Milestones
		p.Milestones = nil
		defer func() { p.Milestones = milestones }()

		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		if err := tx.Save(p).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&domain.Milestone{}).Error; err != nil {
			return err
		}
		for i := range milestones {
			m := &milestones[i]
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if m.Number <= 0 {
				m.Number = i + 1
			}
			m.ProjectID = p.ID
			m.CreatedAt, m.UpdatedAt = now, now
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
