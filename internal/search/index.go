// Package search provides a small, deterministic, concurrency-safe in-memory
// similarity index over short texts such as issued hints.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware normalization: NFKC, case folding, whitespace collapse
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic: entries are checked in insertion order
//
// Scoring uses Jaccard similarity between token sets:
// score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Result is a matched entry with its similarity score.
type Result struct {
	Text  string
	Score float64
}

// Index is the read-only view over a set of texts.
type Index interface {
	// Duplicate reports the first entry the candidate repeats, if any.
	Duplicate(candidate string) (Result, bool)
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	threshold float64
}

// DefaultThreshold is the Jaccard score at or above which two texts are
// considered the same.
const DefaultThreshold = 0.9

func defaultConfig() config {
	return config{threshold: DefaultThreshold}
}

// WithThreshold sets the Jaccard score used by Duplicate. Values outside
// (0, 1] are ignored.
func WithThreshold(t float64) Option {
	return func(c *config) {
		if t > 0 && t <= 1 {
			c.threshold = t
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	raw    string
	norm   string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over texts. Blank entries are skipped; the
// original text is kept for results.
func NewIndex(texts []string, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(texts))
	for _, raw := range texts {
		n := Normalize(raw)
		if n == "" {
			continue
		}
		docs = append(docs, doc{raw: raw, norm: n, tokens: tokenize(n)})
	}
	return &index{cfg: cfg, docs: docs}
}

// Duplicate checks entries in insertion order. A candidate repeats an entry
// when the normalized forms are equal, one contains the other, or their
// token similarity reaches the configured threshold.
func (i *index) Duplicate(candidate string) (Result, bool) {
	nc := Normalize(candidate)
	if nc == "" {
		return Result{}, false
	}
	cTokens := tokenize(nc)
	for _, d := range i.docs {
		if nc == d.norm || strings.Contains(nc, d.norm) || strings.Contains(d.norm, nc) {
			return Result{Text: d.raw, Score: 1}, true
		}
		if s := jaccard(cTokens, d.tokens); s >= i.cfg.threshold {
			return Result{Text: d.raw, Score: s}, true
		}
	}
	return Result{}, false
}

// ----------------------------------------------------------------------------
// Helpers

var (
	fold   = cases.Fold()
	wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// Normalize applies NFKC, Unicode case folding and collapses runs of
// whitespace to a single space. Leading and trailing space is removed.
func Normalize(s string) string {
	s = fold.String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func tokenize(normalized string) map[string]struct{} {
	words := wordRE.FindAllString(normalized, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	over := overlap(a, b)
	if over == 0 {
		return 0
	}
	union := len(a) + len(b) - over
	if union <= 0 {
		return 0
	}
	return float64(over) / float64(union)
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
