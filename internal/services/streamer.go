// Package services – ResponseStreamer
//
// A reply reaches the client as ordered fragments written to a Sink and is
// persisted as the concatenation of every fragment the model produced.
// Simulated delivery chunks a finished reply by word; Native forwards model
// fragments as they arrive. When the sink fails (client gone) delivery stops,
// but the full text is still returned so the stored conversation reflects
// what the model said.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-guide-backend/internal/llm"
)

// ErrDelivery reports that the sink stopped accepting fragments. The reply
// text is still complete; only delivery to the client was cut short.
var ErrDelivery = errors.New("delivery interrupted")

// Sink receives reply fragments in order, then exactly one Close.
type Sink interface {
	Write(ctx context.Context, fragment string) error
	Close() error
}

// Fragments splits text into word-granular pieces whose concatenation is
// byte-identical to text. Each piece is a word plus the whitespace after it;
// leading whitespace stays with the first piece.
func Fragments(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	inSpace := false
	seenWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && inSpace && seenWord {
			out = append(out, text[start:i])
			start = i
		}
		if !space {
			seenWord = true
		}
		inSpace = space
	}
	return append(out, text[start:])
}

// Simulated delivers a complete reply as word fragments with a fixed delay.
type Simulated struct {
	Delay time.Duration
}

// Deliver writes text to sink and closes it. It returns text unchanged, plus
// ErrDelivery when the sink failed or ctx ended before the last fragment.
func (s Simulated) Deliver(ctx context.Context, text string, sink Sink) (string, error) {
	defer sink.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for i, f := range Fragments(text) {
		if i > 0 && s.Delay > 0 {
			if timer == nil {
				timer = time.NewTimer(s.Delay)
			} else {
				timer.Reset(s.Delay)
			}
			select {
			case <-ctx.Done():
				return text, fmt.Errorf("%w: %v", ErrDelivery, ctx.Err())
			case <-timer.C:
			}
		}
		if err := sink.Write(ctx, f); err != nil {
			return text, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	}
	return text, nil
}

// Native forwards fragments of a model stream.
//
// The model is read into an unbounded queue in its own goroutine, so a slow
// or dead client never stalls the model stream: reading finishes at model
// speed and delivery catches up on its own time.
type Native struct{}

// Deliver drains stream into sink and closes both. The returned text is
// everything the model produced. A model error is returned wrapped in
// ErrGeneration; a sink failure as ErrDelivery.
func (n Native) Deliver(ctx context.Context, stream llm.Stream, sink Sink) (string, error) {
	defer sink.Close()
	defer stream.Close()

	q := newFragmentQueue()
	var (
		full        strings.Builder
		deliveryErr error
		g           errgroup.Group
	)
	g.Go(func() error {
		defer q.finish()
		for {
			f, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrGeneration, err)
			}
			full.WriteString(f)
			q.push(f)
		}
	})
	g.Go(func() error {
		for {
			batch, ok := q.take()
			if !ok {
				return nil
			}
			for _, f := range batch {
				if err := ctx.Err(); err != nil {
					deliveryErr = fmt.Errorf("%w: %v", ErrDelivery, err)
					return nil
				}
				if err := sink.Write(ctx, f); err != nil {
					deliveryErr = fmt.Errorf("%w: %v", ErrDelivery, err)
					return nil
				}
			}
		}
	})
	if err := g.Wait(); err != nil {
		return full.String(), err
	}
	return full.String(), deliveryErr
}

// fragmentQueue hands fragments from the model reader to the sink writer.
// push never blocks.
type fragmentQueue struct {
	mu     sync.Mutex
	items  []string
	done   bool
	notify chan struct{}
}

func newFragmentQueue() *fragmentQueue {
	return &fragmentQueue{notify: make(chan struct{}, 1)}
}

func (q *fragmentQueue) push(f string) {
	q.mu.Lock()
	q.items = append(q.items, f)
	q.mu.Unlock()
	q.signal()
}

func (q *fragmentQueue) finish() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.signal()
}

func (q *fragmentQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// take waits for queued fragments and returns them all. It reports false once
// the reader finished and everything was taken.
func (q *fragmentQueue) take() ([]string, bool) {
	for {
		q.mu.Lock()
		batch, done := q.items, q.done
		q.items = nil
		q.mu.Unlock()
		if len(batch) > 0 {
			return batch, true
		}
		if done {
			return nil, false
		}
		<-q.notify
	}
}
