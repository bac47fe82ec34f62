package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// Mode is the pedagogical policy a learner chose for a project.
type Mode string

const (
	ModeGuided   Mode = "GUIDED"
	ModeStandard Mode = "STANDARD"
	ModeHardcore Mode = "HARDCORE"
)

// ErrInvalidMode is returned by ParseMode for unknown values.
var ErrInvalidMode = errors.New("mode must be one of GUIDED, STANDARD, HARDCORE")

// Modes lists all modes in ascending order of strictness.
func Modes() []Mode { return []Mode{ModeGuided, ModeStandard, ModeHardcore} }

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeGuided, ModeStandard, ModeHardcore:
		return true
	}
	return false
}

// ParseMode normalizes s (case-insensitive, surrounding space ignored).
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

// SeedHints are catalog-authored hints keyed by mode.
//
// Older catalog revisions stored a flat list of hints per milestone. A flat
// list decodes as the GUIDED ledger; everything else must be the map form.
type SeedHints map[Mode][]string

// UnmarshalJSON accepts either a JSON array (legacy) or an object keyed by mode.
func (h *SeedHints) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		*h = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var flat []string
		if err := json.Unmarshal(b, &flat); err != nil {
			return err
		}
		if len(flat) == 0 {
			*h = nil
			return nil
		}
		*h = SeedHints{ModeGuided: flat}
		return nil
	}
	var raw map[string][]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(SeedHints, len(raw))
	for k, v := range raw {
		m, err := ParseMode(k)
		if err != nil {
			continue
		}
		out[m] = append(out[m], v...)
	}
	*h = out
	return nil
}

// For returns a copy of the seeded hints for exactly mode m.
func (h SeedHints) For(m Mode) []string {
	src := h[m]
	if len(src) == 0 {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
