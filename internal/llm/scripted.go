package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Scripted is a deterministic Gateway. Replies are returned in order and the
// last one repeats; with no replies it answers with a fixed nudge built from
// the last user turn. Fn, when set, takes precedence over Replies.
//
// Scripted records every prompt it receives and is safe for concurrent use.
type Scripted struct {
	Replies []string
	Fn      func(ctx context.Context, pc PromptContext) (string, error)
	// Err makes every call fail.
	Err error

	mu    sync.Mutex
	calls []PromptContext
}

func (s *Scripted) Generate(ctx context.Context, pc PromptContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.next(ctx, pc)
}

// GenerateStream splits the scripted reply after each space.
func (s *Scripted) GenerateStream(ctx context.Context, pc PromptContext) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txt, err := s.next(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &sliceStream{ctx: ctx, parts: strings.SplitAfter(txt, " ")}, nil
}

// Calls returns a copy of the prompts received so far.
func (s *Scripted) Calls() []PromptContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PromptContext, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Scripted) next(ctx context.Context, pc PromptContext) (string, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, pc)
	s.mu.Unlock()

	switch {
	case s.Err != nil:
		return "", s.Err
	case s.Fn != nil:
		return s.Fn(ctx, pc)
	case len(s.Replies) == 0:
		return fmt.Sprintf("Let's break %q into a smaller first step. What have you tried so far?", pc.LastUserTurn()), nil
	case n < len(s.Replies):
		return s.Replies[n], nil
	default:
		return s.Replies[len(s.Replies)-1], nil
	}
}

type sliceStream struct {
	ctx   context.Context
	parts []string
	pos   int
}

func (s *sliceStream) Recv() (string, error) {
	for s.pos < len(s.parts) {
		if err := s.ctx.Err(); err != nil {
			return "", err
		}
		p := s.parts[s.pos]
		s.pos++
		if p != "" {
			return p, nil
		}
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error { return nil }
