// Package services – ContextAssembler
//
// ContextAssembler turns the stored conversation, the project and the
// learner's mode into the bounded input of one generation. The output is a
// pure function of its inputs and the stored history: no clock, no
// randomness. When the history is longer than MaxMessages the oldest turns
// are dropped, never summarized.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxMessages bounds the number of turns in a prompt.
const DefaultMaxMessages = 20

const (
	platformInstruction = "You are an AI Guide for a project-based learning platform. Your goal is to help " +
		"students learn by providing guidance, not just giving away answers."

	styleInstruction = "Keep your responses concise and educational. Format them in Markdown."
)

// HistoryReader is the slice of ConversationStore the assembler needs.
type HistoryReader interface {
	RecentHistory(ctx context.Context, ownerID string, projectID *string, limit int) ([]domain.Message, error)
}

// ContextAssembler builds prompt contexts.
type ContextAssembler struct {
	Catalog     ProjectCatalog
	History     HistoryReader
	MaxMessages int
}

func (a *ContextAssembler) maxMessages() int {
	if a.MaxMessages <= 0 {
		return DefaultMaxMessages
	}
	return a.MaxMessages
}

// Build assembles, in order: the platform role, the project summary (when
// projectID is set), the mode instruction and the style instruction as the
// system text, then the recent window with latest as the final user turn.
//
// The caller normally appends latest before building; a window that already
// ends with it is used as is. Turns never exceed MaxMessages.
func (a *ContextAssembler) Build(ctx context.Context, ownerID string, projectID *string, mode domain.Mode, latest string) (llm.PromptContext, error) {
	ctx, span := otel.Tracer("services/ContextAssembler").Start(ctx, "Build",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectOrNone(projectID)),
			attribute.String("mode", string(mode)),
		),
	)
	defer span.End()

	var project *domain.Project
	if projectID != nil && *projectID != "" {
		p, err := a.Catalog.GetProject(ctx, *projectID)
		if err != nil {
			return llm.PromptContext{}, err
		}
		project = p
	}

	limit := a.maxMessages()
	window, err := a.History.RecentHistory(ctx, ownerID, projectID, limit)
	if err != nil {
		return llm.PromptContext{}, err
	}

	turns := make([]llm.Turn, 0, limit)
	if n := len(window); n > 0 && window[n-1].Role == domain.RoleUser && window[n-1].Content == latest {
		for _, m := range window {
			turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
		}
	} else {
		if len(window) > limit-1 {
			window = window[len(window)-(limit-1):]
		}
		for _, m := range window {
			turns = append(turns, llm.Turn{Role: m.Role, Content: m.Content})
		}
		turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: latest})
	}
	span.SetAttributes(attribute.Int("turns", len(turns)))

	return llm.PromptContext{
		System: systemText(project, mode),
		Turns:  turns,
	}, nil
}

func systemText(p *domain.Project, mode domain.Mode) string {
	parts := []string{platformInstruction}
	if p != nil {
		parts = append(parts, ProjectSummary(p))
	}
	parts = append(parts, InstructionsFor(mode), styleInstruction)
	return strings.Join(parts, "\n\n")
}

// ProjectSummary renders the project fields the guide may rely on.
func ProjectSummary(p *domain.Project) string {
	var b strings.Builder
	b.WriteString("Current project context:\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	if p.DifficultyLevel != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", p.DifficultyLevel)
	}
	if len(p.Technologies) > 0 {
		fmt.Fprintf(&b, "Technologies: %s\n", strings.Join(p.Technologies, ", "))
	}
	if len(p.Milestones) > 0 {
		b.WriteString("Milestones:\n")
		for _, m := range p.Milestones {
			fmt.Fprintf(&b, "%d. %s\n", m.Number, m.Title)
		}
	}
	if len(p.LearningObjectives) > 0 {
		b.WriteString("Learning objectives:\n")
		for _, o := range p.LearningObjectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// HintPrompt builds the single-shot prompt for the next hint of milestone m.
// It carries no conversation window. strict adds the instruction used after
// the model repeated an earlier hint.
func HintPrompt(p *domain.Project, m *domain.Milestone, mode domain.Mode, existing []string, strict bool) llm.PromptContext {
	var b strings.Builder
	fmt.Fprintf(&b, "The user is stuck on Milestone %d (%q) of the project %q.\n", m.Number, m.Title, p.Title)
	if m.Description != "" {
		fmt.Fprintf(&b, "Milestone description: %s\n", m.Description)
	}
	if len(existing) == 0 {
		b.WriteString("No hints have been given for this milestone yet.\n")
	} else {
		b.WriteString("Hints already given, oldest first:\n")
		for i, h := range existing {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
	}
	b.WriteString("Provide one new, progressive hint that goes further than the hints above and helps them " +
		"move forward without revealing the full solution. Reply with the hint text only.")
	if strict {
		b.WriteString("\nYour previous answer repeated an earlier hint. The new hint must differ in substance " +
			"from every hint listed above.")
	}
	return llm.PromptContext{
		System: strings.Join([]string{platformInstruction, InstructionsFor(mode), styleInstruction}, "\n\n"),
		Turns:  []llm.Turn{{Role: llm.RoleUser, Content: b.String()}},
	}
}
