// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for
// ModeAssignment rows (the "mode store").
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
)

// GetModeAssignment returns the assignment for (ownerID, projectID) or ErrNotFound.
func GetModeAssignment(ctx context.Context, db *gorm.DB, ownerID, projectID string) (*domain.ModeAssignment, error) {
	var a domain.ModeAssignment
	err := db.WithContext(ctx).
		Where("owner_id = ? AND project_id = ?", ownerID, projectID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateModeAssignment records that ownerID started projectID under mode.
// A second assignment for the same pair returns ErrDuplicate.
func CreateModeAssignment(ctx context.Context, db *gorm.DB, ownerID, projectID string, mode domain.Mode) (*domain.ModeAssignment, error) {
	a := &domain.ModeAssignment{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProjectID: projectID,
		Mode:      mode,
		Status:    "IN_PROGRESS",
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}
