// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only hint ledger storage.
//
// Every query is keyed by the full (project_id, milestone_number, mode) slot;
// there is deliberately no function that reads across modes.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
)

// maxAppendAttempts bounds retries when two writers race for the same position.
const maxAppendAttempts = 3

// ListHints returns the ledger rows for one slot ordered by position.
func ListHints(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode) ([]domain.HintRecord, error) {
	var out []domain.HintRecord
	err := db.WithContext(ctx).
		Where("project_id = ? AND milestone_number = ? AND mode = ?", projectID, milestone, mode).
		Order("position ASC").
		Find(&out).Error
	return out, err
}

// AppendHint adds content at the end of the slot's ledger. The next position
// is computed inside a transaction; a concurrent writer that claims the same
// position trips the unique index and the append is retried.
func AppendHint(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode, content, requestedBy string) (*domain.HintRecord, error) {
	var (
		rec *domain.HintRecord
		err error
	)
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		rec, err = appendHintOnce(ctx, db, projectID, milestone, mode, content, requestedBy)
		if err == nil || !isUniqueViolation(err) {
			return rec, err
		}
	}
	return nil, err
}

func appendHintOnce(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode, content, requestedBy string) (*domain.HintRecord, error) {
	var rec *domain.HintRecord
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int64
		if err := tx.Model(&domain.HintRecord{}).
			Where("project_id = ? AND milestone_number = ? AND mode = ?", projectID, milestone, mode).
			Count(&next).Error; err != nil {
			return err
		}
		r := &domain.HintRecord{
			ID:              uuid.NewString(),
			ProjectID:       projectID,
			MilestoneNumber: milestone,
			Mode:            mode,
			Position:        int(next),
			Content:         content,
			RequestedBy:     requestedBy,
			CreatedAt:       time.Now().UTC(),
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
