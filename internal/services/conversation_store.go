// Package services – ConversationStore
//
// ConversationStore owns the ordered message records of each
// (owner, project-or-none) partition. Every append is a single row insert;
// user and assistant turns are written independently, so an orphaned user
// message can exist when generation fails.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationStore persists and reads conversation messages.
type ConversationStore struct {
	// DB is the GORM handle passed to every Repo call.
	DB *gorm.DB
	// Repo performs the queries; nil means GormRepo.
	Repo MessageRepo
}

// NewConversationStore returns a store backed by db.
func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{DB: db, Repo: GormRepo{}}
}

func (s *ConversationStore) messages() MessageRepo {
	if s.Repo == nil {
		return GormRepo{}
	}
	return s.Repo
}

// Append stores one message. Storage failures are wrapped in ErrPersistence.
func (s *ConversationStore) Append(ctx context.Context, ownerID string, projectID *string, role, content string) (*domain.Message, error) {
	ctx, span := otel.Tracer("services/ConversationStore").Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectOrNone(projectID)),
			attribute.String("message.role", role),
		),
	)
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrUnauthenticated
	}
	if role != domain.RoleUser && role != domain.RoleAssistant {
		return nil, fmt.Errorf("%w: role %q", ErrValidation, role)
	}
	m, err := s.messages().CreateMessage(ctx, s.DB, ownerID, projectID, role, content)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return m, nil
}

// RecentHistory returns the last limit messages of the partition, ascending.
func (s *ConversationStore) RecentHistory(ctx context.Context, ownerID string, projectID *string, limit int) ([]domain.Message, error) {
	ctx, span := otel.Tracer("services/ConversationStore").Start(ctx, "RecentHistory",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectOrNone(projectID)),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	msgs, err := s.messages().RecentMessages(ctx, s.DB, ownerID, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}

// History returns the whole partition, ascending.
func (s *ConversationStore) History(ctx context.Context, ownerID string, projectID *string) ([]domain.Message, error) {
	msgs, err := s.messages().ListMessages(ctx, s.DB, ownerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}

// AllHistory returns every message of the owner across partitions, ascending.
func (s *ConversationStore) AllHistory(ctx context.Context, ownerID string) ([]domain.Message, error) {
	msgs, err := s.messages().ListOwnerMessages(ctx, s.DB, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}

// HistoryPage returns one page of the partition plus its total size.
// page is 1-based; pageSize <= 0 defaults to 20.
func (s *ConversationStore) HistoryPage(ctx context.Context, ownerID string, projectID *string, page, pageSize int) ([]domain.Message, int64, error) {
	ctx, span := otel.Tracer("services/ConversationStore").Start(ctx, "HistoryPage",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectOrNone(projectID)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := s.messages().CountMessages(ctx, s.DB, ownerID, projectID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := s.messages().ListMessagesPage(ctx, s.DB, ownerID, projectID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return items, total, nil
}

// Stats returns the partition size and newest timestamp, used for ETags.
func (s *ConversationStore) Stats(ctx context.Context, ownerID string, projectID *string) (int64, *time.Time, error) {
	return s.messages().MessagesStats(ctx, s.DB, ownerID, projectID)
}

// Get returns a message by ID, restricted to its owner.
func (s *ConversationStore) Get(ctx context.Context, ownerID, id string) (*domain.Message, error) {
	m, err := s.messages().GetMessage(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if m.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return m, nil
}

func projectOrNone(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
