// Package services – HintLedger
//
// The ledger keeps, per (project, milestone, mode), the ordered hints issued
// so far. Catalog-seeded hints form the head of the ledger; generated hints
// are appended after them and never edited or removed. Each mode has its own
// ledger: nothing here reads across modes.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HintLedger reads and appends hints.
type HintLedger struct {
	DB      *gorm.DB
	Repo    HintRepo // nil means GormRepo
	Catalog ProjectCatalog
	// Similarity is the token Jaccard score at or above which a candidate
	// counts as a repeat. Zero means search.DefaultThreshold.
	Similarity float64
}

// ExistingHints returns the ledger of exactly (projectID, milestone, mode):
// seeded hints first, then issued ones by position. Unknown milestones
// return ErrNotFound.
func (l *HintLedger) ExistingHints(ctx context.Context, projectID string, milestone int, mode domain.Mode) ([]string, error) {
	ctx, span := otel.Tracer("services/HintLedger").Start(ctx, "ExistingHints",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Int("milestone", milestone),
			attribute.String("mode", string(mode)),
		),
	)
	defer span.End()

	m, err := l.Catalog.GetMilestone(ctx, projectID, milestone)
	if err != nil {
		return nil, err
	}
	return l.ledger(ctx, m, mode)
}

func (l *HintLedger) hints() HintRepo {
	if l.Repo == nil {
		return GormRepo{}
	}
	return l.Repo
}

func (l *HintLedger) ledger(ctx context.Context, m *domain.Milestone, mode domain.Mode) ([]string, error) {
	rows, err := l.hints().ListHints(ctx, l.DB, m.ProjectID, m.Number, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	out := m.SeedHints.For(mode)
	for _, r := range rows {
		out = append(out, r.Content)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Append adds hint at the end of the ledger. A hint that repeats an existing
// entry is rejected with ErrDuplicateHint and nothing is written.
func (l *HintLedger) Append(ctx context.Context, projectID string, milestone int, mode domain.Mode, hint, requestedBy string) (*domain.HintRecord, error) {
	ctx, span := otel.Tracer("services/HintLedger").Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Int("milestone", milestone),
			attribute.String("mode", string(mode)),
		),
	)
	defer span.End()

	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrValidation, domain.ErrInvalidMode)
	}
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil, fmt.Errorf("%w: empty hint", ErrValidation)
	}
	m, err := l.Catalog.GetMilestone(ctx, projectID, milestone)
	if err != nil {
		return nil, err
	}
	existing, err := l.ledger(ctx, m, mode)
	if err != nil {
		return nil, err
	}
	if err := l.CheckNew(existing, hint); err != nil {
		return nil, err
	}
	rec, err := l.hints().AppendHint(ctx, l.DB, projectID, milestone, mode, hint, requestedBy)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return rec, nil
}

// CheckNew returns ErrDuplicateHint when candidate repeats one of existing:
// equal or contained either way after normalization, or token-similar.
func (l *HintLedger) CheckNew(existing []string, candidate string) error {
	var opts []search.Option
	if l.Similarity > 0 {
		opts = append(opts, search.WithThreshold(l.Similarity))
	}
	if hit, dup := search.NewIndex(existing, opts...).Duplicate(candidate); dup {
		return fmt.Errorf("%w (score %.2f)", ErrDuplicateHint, hit.Score)
	}
	return nil
}

// isDuplicate reports whether err carries ErrDuplicateHint.
func isDuplicate(err error) bool { return errors.Is(err, ErrDuplicateHint) }
