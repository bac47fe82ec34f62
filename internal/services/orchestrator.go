// Package services – ChatOrchestrator
//
// Orchestrator sequences one guidance exchange:
//
//	Idle → ContextBuilding → Generating → Streaming → Persisted → Idle
//
// with Failed reachable from every state. Each call is independent; the
// orchestrator holds no state between calls and never retries on its own.
// Concurrent calls for the same (owner, project) are not serialized: their
// turns may interleave in storage order.
//
// Errors returned to callers carry only the class from errors.go. Provider
// and storage details are logged with the request-scoped logger.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/llm"
	"github.com/tbourn/go-guide-backend/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator states, used in logs and the guide_state_transitions_total metric.
const (
	StateContextBuilding = "ContextBuilding"
	StateGenerating      = "Generating"
	StateStreaming       = "Streaming"
	StatePersisted       = "Persisted"
	StateFailed          = "Failed"
)

// Operation names used as metric labels.
const (
	opConverse = "converse"
	opStream   = "converse_stream"
	opHint     = "hint"
)

const (
	defaultGenerationTimeout = 60 * time.Second
	defaultMaxPromptRunes    = 4000
	persistTimeout           = 10 * time.Second
)

// MessageStore is the conversation storage the orchestrator writes to.
type MessageStore interface {
	HistoryReader
	Append(ctx context.Context, ownerID string, projectID *string, role, content string) (*domain.Message, error)
	History(ctx context.Context, ownerID string, projectID *string) ([]domain.Message, error)
	AllHistory(ctx context.Context, ownerID string) ([]domain.Message, error)
	HistoryPage(ctx context.Context, ownerID string, projectID *string, page, pageSize int) ([]domain.Message, int64, error)
}

// Orchestrator is the public surface of the guidance engine.
type Orchestrator struct {
	Store     MessageStore
	Catalog   ProjectCatalog
	Policy    *ModePolicy
	Assembler *ContextAssembler
	Hints     *HintLedger
	Gateway   llm.Gateway

	// Simulated is used by ConverseStream unless NativeStreaming is set.
	Simulated       Simulated
	Native          Native
	NativeStreaming bool

	GenerationTimeout time.Duration
	MaxPromptRunes    int
}

// Reply is the outcome of a conversation turn.
type Reply struct {
	AssistantText string
	Message       *domain.Message
	Mode          domain.Mode
}

// HintReply is the outcome of a hint request.
type HintReply struct {
	Hint   string
	Hints  []string
	Mode   domain.Mode
	Record *domain.HintRecord
}

// Converse answers message in the (ownerID, projectID) conversation and
// persists both turns.
func (o *Orchestrator) Converse(ctx context.Context, ownerID string, projectID *string, message string) (*Reply, error) {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "Converse",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectOrNone(projectID)),
		),
	)
	defer span.End()

	pc, mode, err := o.prepare(ctx, opConverse, ownerID, projectID, message)
	if err != nil {
		return nil, o.fail(ctx, span, opConverse, err)
	}

	o.enter(ctx, opConverse, StateGenerating)
	text, err := o.generate(ctx, opConverse, pc)
	if err != nil {
		return nil, o.fail(ctx, span, opConverse, err)
	}

	msg, err := o.persistReply(ctx, ownerID, projectID, text)
	if err != nil {
		return nil, o.fail(ctx, span, opConverse, err)
	}
	o.enter(ctx, opConverse, StatePersisted)
	return &Reply{AssistantText: text, Message: msg, Mode: mode}, nil
}

// ConverseStream is Converse with incremental delivery to sink. The sink is
// closed once streaming starts; on errors before that point it is left open
// so the caller can report the failure on it.
//
// A client that disconnects mid-stream does not stop the exchange: the full
// reply is still persisted. A sink failure is logged, not returned.
func (o *Orchestrator) ConverseStream(ctx context.Context, ownerID string, projectID *string, message string, sink Sink) (*Reply, error) {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "ConverseStream",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectOrNone(projectID)),
			attribute.Bool("native", o.NativeStreaming),
		),
	)
	defer span.End()

	pc, mode, err := o.prepare(ctx, opStream, ownerID, projectID, message)
	if err != nil {
		return nil, o.fail(ctx, span, opStream, err)
	}

	o.enter(ctx, opStream, StateGenerating)
	var (
		text        string
		deliveryErr error
	)
	if o.NativeStreaming {
		text, deliveryErr, err = o.streamNative(ctx, pc, sink)
	} else {
		text, err = o.generate(ctx, opStream, pc)
		if err == nil {
			o.enter(ctx, opStream, StateStreaming)
			text, deliveryErr = o.Simulated.Deliver(ctx, text, sink)
		}
	}
	if err != nil {
		return nil, o.fail(ctx, span, opStream, err)
	}
	if deliveryErr != nil {
		loggerFrom(ctx).Info().Err(deliveryErr).Msg("client stopped receiving; persisting full reply")
	}

	msg, err := o.persistReply(ctx, ownerID, projectID, text)
	if err != nil {
		return nil, o.fail(ctx, span, opStream, err)
	}
	o.enter(ctx, opStream, StatePersisted)
	return &Reply{AssistantText: text, Message: msg, Mode: mode}, nil
}

// streamNative returns the reply text, a non-fatal delivery error and a
// fatal generation error.
func (o *Orchestrator) streamNative(ctx context.Context, pc llm.PromptContext, sink Sink) (text string, deliveryErr, err error) {
	genCtx, cancel := o.generationContext(ctx)
	defer cancel()

	start := time.Now()
	stream, serr := o.Gateway.GenerateStream(genCtx, pc)
	if serr != nil {
		observability.ObserveGeneration(opStream, "error", time.Since(start))
		loggerFrom(ctx).Error().Err(serr).Msg("model stream failed to start")
		return "", nil, ErrGeneration
	}
	o.enter(ctx, opStream, StateStreaming)
	text, derr := o.Native.Deliver(ctx, stream, sink)
	switch {
	case errors.Is(derr, ErrGeneration):
		// partial output is discarded like a timed-out generation
		observability.ObserveGeneration(opStream, "error", time.Since(start))
		loggerFrom(ctx).Error().Err(derr).Int("partial_bytes", len(text)).Msg("model stream failed")
		return "", nil, ErrGeneration
	case strings.TrimSpace(text) == "":
		observability.ObserveGeneration(opStream, "empty", time.Since(start))
		return "", nil, fmt.Errorf("%w: empty reply", ErrGeneration)
	}
	observability.ObserveGeneration(opStream, "ok", time.Since(start))
	return text, derr, nil
}

// prepare runs the steps shared by both conversation flows: validation,
// the user append, mode resolution and context building.
func (o *Orchestrator) prepare(ctx context.Context, op, ownerID string, projectID *string, message string) (llm.PromptContext, domain.Mode, error) {
	if strings.TrimSpace(ownerID) == "" {
		return llm.PromptContext{}, "", ErrUnauthenticated
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return llm.PromptContext{}, "", fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if utf8.RuneCountInString(message) > o.maxPromptRunes() {
		return llm.PromptContext{}, "", fmt.Errorf("%w: message exceeds %d characters", ErrValidation, o.maxPromptRunes())
	}
	if projectID != nil && *projectID == "" {
		projectID = nil
	}
	if projectID != nil {
		if _, err := o.Catalog.GetProject(ctx, *projectID); err != nil {
			return llm.PromptContext{}, "", err
		}
	}

	if _, err := o.Store.Append(ctx, ownerID, projectID, domain.RoleUser, message); err != nil {
		return llm.PromptContext{}, "", asPersistence(err)
	}

	o.enter(ctx, op, StateContextBuilding)
	mode := o.Policy.Resolve(ctx, ownerID, projectID)
	pc, err := o.Assembler.Build(ctx, ownerID, projectID, mode, message)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return llm.PromptContext{}, "", err
		}
		return llm.PromptContext{}, "", asPersistence(err)
	}
	return pc, mode, nil
}

// generate calls the gateway under the generation timeout. Empty replies
// count as failures.
func (o *Orchestrator) generate(ctx context.Context, op string, pc llm.PromptContext) (string, error) {
	genCtx, cancel := o.generationContext(ctx)
	defer cancel()

	start := time.Now()
	text, err := o.Gateway.Generate(genCtx, pc)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		observability.ObserveGeneration(op, outcome, time.Since(start))
		loggerFrom(ctx).Error().Err(err).Str("op", op).Str("outcome", outcome).Msg("model call failed")
		return "", ErrGeneration
	}
	if strings.TrimSpace(text) == "" {
		observability.ObserveGeneration(op, "empty", time.Since(start))
		return "", fmt.Errorf("%w: empty reply", ErrGeneration)
	}
	observability.ObserveGeneration(op, "ok", time.Since(start))
	return text, nil
}

// generationContext detaches the model call from client cancellation while
// keeping the caller's deadline, then applies GenerationTimeout.
func (o *Orchestrator) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		base, cancelDL = context.WithDeadline(base, dl)
		genCtx, cancel := context.WithTimeout(base, o.generationTimeout())
		return genCtx, func() { cancel(); cancelDL() }
	}
	return context.WithTimeout(base, o.generationTimeout())
}

// persistReply stores the assistant turn on a context that outlives the
// client connection.
func (o *Orchestrator) persistReply(ctx context.Context, ownerID string, projectID *string, text string) (*domain.Message, error) {
	if projectID != nil && *projectID == "" {
		projectID = nil
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	msg, err := o.Store.Append(pctx, ownerID, projectID, domain.RoleAssistant, text)
	if err != nil {
		loggerFrom(ctx).Error().Err(err).Msg("assistant reply delivered but not saved")
		return nil, fmt.Errorf("%w: reply may not be saved", ErrPersistence)
	}
	return msg, nil
}

// RequestHint generates the next hint for a milestone. An empty mode uses
// the learner's resolved mode. A generated hint that repeats an earlier one
// is regenerated once with a stricter instruction; a second repeat fails with
// ErrGeneration wrapping ErrDuplicateHint, and nothing is stored.
func (o *Orchestrator) RequestHint(ctx context.Context, ownerID, projectID string, milestone int, mode string) (*HintReply, error) {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "RequestHint",
		trace.WithAttributes(
			attribute.String("user.id", ownerID),
			attribute.String("project.id", projectID),
			attribute.Int("milestone", milestone),
		),
	)
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, o.fail(ctx, span, opHint, ErrUnauthenticated)
	}
	m, err := o.resolveHintMode(ctx, ownerID, projectID, milestone, mode)
	if err != nil {
		return nil, o.fail(ctx, span, opHint, err)
	}
	span.SetAttributes(attribute.String("mode", string(m)))

	o.enter(ctx, opHint, StateContextBuilding)
	project, err := o.Catalog.GetProject(ctx, projectID)
	if err != nil {
		return nil, o.fail(ctx, span, opHint, err)
	}
	ms := findMilestone(project, milestone)
	if ms == nil {
		return nil, o.fail(ctx, span, opHint, fmt.Errorf("%w: milestone %d", ErrNotFound, milestone))
	}
	existing, err := o.Hints.ExistingHints(ctx, projectID, milestone, m)
	if err != nil {
		return nil, o.fail(ctx, span, opHint, err)
	}

	o.enter(ctx, opHint, StateGenerating)
	var hint string
	for attempt := 0; attempt < 2; attempt++ {
		candidate, err := o.generate(ctx, opHint, HintPrompt(project, ms, m, existing, attempt > 0))
		if err != nil {
			observability.ObserveHint(string(m), "failed")
			return nil, o.fail(ctx, span, opHint, err)
		}
		candidate = strings.TrimSpace(candidate)
		if err := o.Hints.CheckNew(existing, candidate); err != nil {
			observability.ObserveHint(string(m), "duplicate")
			loggerFrom(ctx).Warn().Int("attempt", attempt+1).Str("mode", string(m)).Msg("model repeated an earlier hint")
			continue
		}
		hint = candidate
		break
	}
	if hint == "" {
		return nil, o.fail(ctx, span, opHint, fmt.Errorf("%w: %w", ErrGeneration, ErrDuplicateHint))
	}

	rec, err := o.Hints.Append(ctx, projectID, milestone, m, hint, ownerID)
	if err != nil {
		if isDuplicate(err) {
			// a concurrent request stored an equivalent hint first
			observability.ObserveHint(string(m), "duplicate")
			return nil, o.fail(ctx, span, opHint, fmt.Errorf("%w: %w", ErrGeneration, ErrDuplicateHint))
		}
		return nil, o.fail(ctx, span, opHint, asPersistence(err))
	}
	observability.ObserveHint(string(m), "issued")
	o.enter(ctx, opHint, StatePersisted)

	all := make([]string, 0, len(existing)+1)
	all = append(all, existing...)
	all = append(all, hint)
	return &HintReply{Hint: hint, Hints: all, Mode: m, Record: rec}, nil
}

// ListHints returns the ledger for a milestone in the given (or resolved) mode.
func (o *Orchestrator) ListHints(ctx context.Context, ownerID, projectID string, milestone int, mode string) ([]string, domain.Mode, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, "", ErrUnauthenticated
	}
	m, err := o.resolveHintMode(ctx, ownerID, projectID, milestone, mode)
	if err != nil {
		return nil, "", err
	}
	hints, err := o.Hints.ExistingHints(ctx, projectID, milestone, m)
	if err != nil {
		return nil, "", err
	}
	return hints, m, nil
}

func (o *Orchestrator) resolveHintMode(ctx context.Context, ownerID, projectID string, milestone int, mode string) (domain.Mode, error) {
	if strings.TrimSpace(projectID) == "" {
		return "", fmt.Errorf("%w: project_id is required", ErrValidation)
	}
	if milestone < 1 {
		return "", fmt.Errorf("%w: milestone number must be >= 1", ErrValidation)
	}
	if strings.TrimSpace(mode) == "" {
		return o.Policy.Resolve(ctx, ownerID, &projectID), nil
	}
	m, err := domain.ParseMode(mode)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return m, nil
}

// History returns the whole (ownerID, projectID) conversation.
func (o *Orchestrator) History(ctx context.Context, ownerID string, projectID *string) ([]domain.Message, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrUnauthenticated
	}
	return o.Store.History(ctx, ownerID, projectID)
}

// HistoryPage returns one page of the conversation and the total count.
func (o *Orchestrator) HistoryPage(ctx context.Context, ownerID string, projectID *string, page, pageSize int) ([]domain.Message, int64, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, 0, ErrUnauthenticated
	}
	return o.Store.HistoryPage(ctx, ownerID, projectID, page, pageSize)
}

// AllHistory returns every message of ownerID across conversations.
func (o *Orchestrator) AllHistory(ctx context.Context, ownerID string) ([]domain.Message, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrUnauthenticated
	}
	return o.Store.AllHistory(ctx, ownerID)
}

// StartProject commits ownerID to projectID under mode (STANDARD when
// empty). Starting the same project twice returns ErrConflict.
func (o *Orchestrator) StartProject(ctx context.Context, ownerID, projectID, mode string) (*domain.ModeAssignment, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrUnauthenticated
	}
	m := domain.ModeStandard
	if strings.TrimSpace(mode) != "" {
		parsed, err := domain.ParseMode(mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		m = parsed
	}
	if _, err := o.Catalog.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return o.Policy.Store.AssignMode(ctx, ownerID, projectID, m)
}

func (o *Orchestrator) enter(ctx context.Context, op, state string) {
	observability.ObserveState(op, state)
	loggerFrom(ctx).Debug().Str("op", op).Str("state", state).Msg("guide state")
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, op string, err error) error {
	o.enter(ctx, op, StateFailed)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (o *Orchestrator) generationTimeout() time.Duration {
	if o.GenerationTimeout <= 0 {
		return defaultGenerationTimeout
	}
	return o.GenerationTimeout
}

func (o *Orchestrator) maxPromptRunes() int {
	if o.MaxPromptRunes <= 0 {
		return defaultMaxPromptRunes
	}
	return o.MaxPromptRunes
}

// asPersistence keeps known error classes and classifies the rest as
// persistence failures.
func asPersistence(err error) error {
	for _, known := range []error{ErrPersistence, ErrNotFound, ErrValidation, ErrUnauthenticated, ErrConflict} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

func findMilestone(p *domain.Project, n int) *domain.Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].Number == n {
			return &p.Milestones[i]
		}
	}
	return nil
}
