// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
)

// MessagesStats returns the number of messages in a conversation partition
// and the newest CreatedAt. Messages are immutable, so (count, newest) changes
// whenever the partition changes. When the partition is empty, the returned
// count is 0 and newest is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) (count int64, newest *time.Time, err error) {
	if count, err = CountMessages(ctx, db, ownerID, projectID); err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		CreatedAt time.Time
	}
	q := partition(db.WithContext(ctx).Model(&domain.Message{}), ownerID, projectID)
	if err = q.Select("created_at").Order("created_at DESC, seq DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// HintsStats returns the ledger length of one slot.
func HintsStats(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.HintRecord{}).
		Where("project_id = ? AND milestone_number = ? AND mode = ?", projectID, milestone, mode).
		Count(&n).Error
	return n, err
}
