// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversation
// messages.
//
// Messages are partitioned by (owner_id, project_id). A nil project is its own
// partition ("project_id IS NULL"), so general mentoring and project-scoped
// conversations never share a result set. All listings are ordered
// deterministically by (created_at, seq) ascending.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
)

// CreateMessage inserts a single message row. It never writes more than one
// row, so a failure cannot leave a partial turn behind.
func CreateMessage(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProjectID: cloneProjectID(projectID),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// RecentMessages returns the last limit messages of a partition in ascending
// order. When fewer exist, all of them are returned. limit <= 0 returns none.
func RecentMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	var out []domain.Message
	err := partition(db.WithContext(ctx), ownerID, projectID).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListMessages returns every message of a partition in ascending order.
func ListMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) ([]domain.Message, error) {
	var out []domain.Message
	err := partition(db.WithContext(ctx), ownerID, projectID).
		Order("created_at ASC, seq ASC").
		Find(&out).Error
	return out, err
}

// ListOwnerMessages returns every message of ownerID across all partitions.
func ListOwnerMessages(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, seq ASC").
		Find(&out).Error
	return out, err
}

// CountMessages returns the number of messages in a partition.
func CountMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) (int64, error) {
	var total int64
	err := partition(db.WithContext(ctx).Model(&domain.Message{}), ownerID, projectID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice of a partition, ascending.
func ListMessagesPage(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := partition(db.WithContext(ctx), ownerID, projectID).
		Order("created_at ASC, seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by its public ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// partition scopes q to one (owner, project-or-none) conversation.
func partition(q *gorm.DB, ownerID string, projectID *string) *gorm.DB {
	q = q.Where("owner_id = ?", ownerID)
	if projectID == nil || *projectID == "" {
		return q.Where("project_id IS NULL")
	}
	return q.Where("project_id = ?", *projectID)
}

func cloneProjectID(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
