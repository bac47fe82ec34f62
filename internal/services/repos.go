package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/repo"
)

// MessageRepo defines the persistence contract required by
// ConversationStore. Every call receives the store's *gorm.DB.
type MessageRepo interface {
	// CreateMessage inserts one message at the end of its partition.
	CreateMessage(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, role, content string) (*domain.Message, error)

	// RecentMessages returns the last limit messages of the partition, ascending.
	RecentMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, limit int) ([]domain.Message, error)

	// ListMessages returns the whole partition, ascending.
	ListMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) ([]domain.Message, error)

	// ListOwnerMessages returns every message of the owner, ascending.
	ListOwnerMessages(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Message, error)

	// CountMessages returns the partition size.
	CountMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) (int64, error)

	// ListMessagesPage returns a window of the partition, ascending.
	ListMessagesPage(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, offset, limit int) ([]domain.Message, error)

	// MessagesStats returns the partition size and newest timestamp.
	MessagesStats(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) (int64, *time.Time, error)

	// GetMessage fetches a message by ID; repo.ErrNotFound when absent.
	GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error)
}

// HintRepo defines the persistence contract required by HintLedger.
type HintRepo interface {
	// ListHints returns the issued hints of one ledger by position.
	ListHints(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode) ([]domain.HintRecord, error)

	// AppendHint stores content at the next position of the ledger.
	AppendHint(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode, content, requestedBy string) (*domain.HintRecord, error)
}

// GormRepo implements MessageRepo and HintRepo with the repo package.
type GormRepo struct{}

func (GormRepo) CreateMessage(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, role, content string) (*domain.Message, error) {
	return repo.CreateMessage(ctx, db, ownerID, projectID, role, content)
}

func (GormRepo) RecentMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, limit int) ([]domain.Message, error) {
	return repo.RecentMessages(ctx, db, ownerID, projectID, limit)
}

func (GormRepo) ListMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) ([]domain.Message, error) {
	return repo.ListMessages(ctx, db, ownerID, projectID)
}

func (GormRepo) ListOwnerMessages(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Message, error) {
	return repo.ListOwnerMessages(ctx, db, ownerID)
}

func (GormRepo) CountMessages(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) (int64, error) {
	return repo.CountMessages(ctx, db, ownerID, projectID)
}

func (GormRepo) ListMessagesPage(ctx context.Context, db *gorm.DB, ownerID string, projectID *string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(ctx, db, ownerID, projectID, offset, limit)
}

func (GormRepo) MessagesStats(ctx context.Context, db *gorm.DB, ownerID string, projectID *string) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, db, ownerID, projectID)
}

func (GormRepo) GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	return repo.GetMessage(ctx, db, id)
}

func (GormRepo) ListHints(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode) ([]domain.HintRecord, error) {
	return repo.ListHints(ctx, db, projectID, milestone, mode)
}

func (GormRepo) AppendHint(ctx context.Context, db *gorm.DB, projectID string, milestone int, mode domain.Mode, content, requestedBy string) (*domain.HintRecord, error) {
	return repo.AppendHint(ctx, db, projectID, milestone, mode, content, requestedBy)
}
