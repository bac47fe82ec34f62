// Package services – DifficultyModePolicy
//
// The mode a learner committed to when starting a project decides how much
// help the guide gives. Resolution never fails: a missing assignment, or a
// store that cannot be read, falls back to STANDARD.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/repo"
)

// ModeStore persists per-(owner, project) mode assignments.
type ModeStore interface {
	// GetAssignedMode reports the stored mode and whether one exists.
	GetAssignedMode(ctx context.Context, ownerID, projectID string) (domain.Mode, bool, error)
	// AssignMode records a new assignment; a second one returns ErrConflict.
	AssignMode(ctx context.Context, ownerID, projectID string, mode domain.Mode) (*domain.ModeAssignment, error)
}

// GormModeStore is the ModeStore backed by the mode_assignments table.
type GormModeStore struct {
	DB *gorm.DB
}

func (s GormModeStore) GetAssignedMode(ctx context.Context, ownerID, projectID string) (domain.Mode, bool, error) {
	a, err := repo.GetModeAssignment(ctx, s.DB, ownerID, projectID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Mode, true, nil
}

func (s GormModeStore) AssignMode(ctx context.Context, ownerID, projectID string, mode domain.Mode) (*domain.ModeAssignment, error) {
	a, err := repo.CreateModeAssignment(ctx, s.DB, ownerID, projectID, mode)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, fmt.Errorf("%w: project already started", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return a, nil
}

// ModePolicy resolves the effective difficulty mode of a conversation.
type ModePolicy struct {
	Store ModeStore
}

// Resolve returns the assigned mode for (ownerID, projectID), or STANDARD
// when there is no project, no assignment, or the store fails.
func (p *ModePolicy) Resolve(ctx context.Context, ownerID string, projectID *string) domain.Mode {
	if projectID == nil || *projectID == "" || p.Store == nil {
		return domain.ModeStandard
	}
	m, ok, err := p.Store.GetAssignedMode(ctx, ownerID, *projectID)
	if err != nil {
		loggerFrom(ctx).Warn().Err(err).
			Str("user_id", ownerID).
			Str("project_id", *projectID).
			Msg("mode lookup failed; using STANDARD")
		return domain.ModeStandard
	}
	if !ok || !m.Valid() {
		return domain.ModeStandard
	}
	return m
}

// Mode instruction texts. They are fixed so the prompt for a given input is
// reproducible.
const (
	guidedInstructions = "The learner chose GUIDED mode. Be as helpful as possible: explain concepts step by step, " +
		"suggest concrete next actions, and include short illustrative code snippets when they clarify an idea. " +
		"Still prefer explaining over handing over a finished solution."

	standardInstructions = "The learner chose STANDARD mode. Balance guidance and challenge: explain the underlying " +
		"concept first, point to the relevant part of their work, and only show code as a last resort, kept minimal."

	hardcoreInstructions = "The learner chose HARDCORE mode. Be terse and conceptual. Answer with questions or short " +
		"pointers to concepts and documentation. Never provide code or a solution, even when asked directly."
)

// InstructionsFor maps a mode to its behavioural instruction. Unknown modes
// get the STANDARD text.
func InstructionsFor(m domain.Mode) string {
	switch domain.Mode(strings.ToUpper(string(m))) {
	case domain.ModeGuided:
		return guidedInstructions
	case domain.ModeHardcore:
		return hardcoreInstructions
	default:
		return standardInstructions
	}
}
