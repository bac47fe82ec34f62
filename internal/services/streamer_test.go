package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// fakeStream yields parts, then err (io.EOF when nil).
type fakeStream struct {
	parts  []string
	err    error
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos < len(s.parts) {
		p := s.parts[s.pos]
		s.pos++
		return p, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func TestFragments_ConcatenateToInput(t *testing.T) {
	inputs := []string{
		"",
		"one",
		"Hello world",
		"  leading space",
		"trailing space  ",
		"line one\nline two\n\n- bullet",
		"```go\nfmt.Println(\"hi\")\n```",
		"ünïcödé  wörds\tand tabs",
	}
	for _, in := range inputs {
		frags := Fragments(in)
		if got := strings.Join(frags, ""); got != in {
			t.Fatalf("Fragments(%q) joined = %q", in, got)
		}
		for _, f := range frags {
			if f == "" {
				t.Fatalf("Fragments(%q) produced an empty fragment", in)
			}
		}
	}
	if got := Fragments("Hello big world"); len(got) != 3 || got[0] != "Hello " || got[2] != "world" {
		t.Fatalf("unexpected word split: %q", got)
	}
	if got := Fragments("  hi there"); got[0] != "  hi " {
		t.Fatalf("leading whitespace should stay with the first word: %q", got)
	}
}

func TestSimulated_DeliversAllAndCloses(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := newRecordSink()
	text := "Think about what the handler should return first."
	got, err := Simulated{Delay: time.Millisecond}.Deliver(context.Background(), text, sink)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got != text || sink.text() != text {
		t.Fatalf("returned %q, delivered %q", got, sink.text())
	}
	if len(sink.frags) != len(Fragments(text)) {
		t.Fatalf("expected %d fragments, got %d", len(Fragments(text)), len(sink.frags))
	}
	if sink.closed != 1 {
		t.Fatalf("sink closed %d times", sink.closed)
	}
}

func TestSimulated_SinkFailureKeepsFullText(t *testing.T) {
	sink := newRecordSink()
	sink.failAfter = 2
	text := "one two three four five"

	got, err := Simulated{}.Deliver(context.Background(), text, sink)
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	if got != text {
		t.Fatalf("full text must be returned, got %q", got)
	}
	if sink.text() != "one two " || sink.closed != 1 {
		t.Fatalf("delivered %q, closed %d", sink.text(), sink.closed)
	}
}

func TestSimulated_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := newRecordSink()
	got, err := Simulated{Delay: time.Hour}.Deliver(ctx, "a b c", sink)
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	if got != "a b c" || sink.text() != "a " {
		t.Fatalf("returned %q, delivered %q", got, sink.text())
	}
}

func TestNative_ForwardsAndCollects(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	stream := &fakeStream{parts: []string{"Try ", "a ", "table ", "test."}}
	sink := newRecordSink()
	got, err := Native{}.Deliver(context.Background(), stream, sink)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got != "Try a table test." || sink.text() != got {
		t.Fatalf("returned %q, delivered %q", got, sink.text())
	}
	if !stream.closed || sink.closed != 1 {
		t.Fatalf("stream closed=%v sink closed=%d", stream.closed, sink.closed)
	}
}

func TestNative_DrainsModelAfterSinkFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	parts := make([]string, 50)
	for i := range parts {
		parts[i] = "word "
	}
	stream := &fakeStream{parts: parts}
	sink := newRecordSink()
	sink.failAfter = 3

	got, err := Native{}.Deliver(context.Background(), stream, sink)
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	if got != strings.Repeat("word ", 50) {
		t.Fatalf("model output must be fully collected, got %d bytes", len(got))
	}
	if len(sink.frags) != 3 {
		t.Fatalf("expected 3 delivered fragments, got %d", len(sink.frags))
	}
}

func TestNative_ModelErrorIsGenerationError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	stream := &fakeStream{parts: []string{"partial "}, err: errors.New("upstream reset")}
	sink := newRecordSink()
	got, err := Native{}.Deliver(context.Background(), stream, sink)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if got != "partial " {
		t.Fatalf("partial text = %q", got)
	}
	if sink.closed != 1 {
		t.Fatalf("sink must be closed on model failure")
	}
}

// drainSignalStream closes drained once the model stream reports io.EOF.
type drainSignalStream struct {
	fakeStream
	drained chan struct{}
	once    sync.Once
}

func (s *drainSignalStream) Recv() (string, error) {
	f, err := s.fakeStream.Recv()
	if errors.Is(err, io.EOF) {
		s.once.Do(func() { close(s.drained) })
	}
	return f, err
}

// gatedSink blocks every Write until release is closed.
type gatedSink struct {
	*recordSink
	release chan struct{}
}

func (s *gatedSink) Write(ctx context.Context, f string) error {
	<-s.release
	return s.recordSink.Write(ctx, f)
}

func TestNative_BlockedSinkDoesNotStallModel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	parts := make([]string, 100)
	for i := range parts {
		parts[i] = "step "
	}
	stream := &drainSignalStream{fakeStream: fakeStream{parts: parts}, drained: make(chan struct{})}
	sink := &gatedSink{recordSink: newRecordSink(), release: make(chan struct{})}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := Native{}.Deliver(context.Background(), stream, sink)
		done <- result{text, err}
	}()

	select {
	case <-stream.drained:
	case <-time.After(2 * time.Second):
		close(sink.release)
		t.Fatal("model stream stalled behind a blocked sink")
	}
	close(sink.release)

	r := <-done
	if r.err != nil {
		t.Fatalf("Deliver: %v", r.err)
	}
	want := strings.Repeat("step ", 100)
	if r.text != want || sink.text() != want {
		t.Fatalf("returned %d bytes, delivered %d bytes", len(r.text), len(sink.text()))
	}
}
