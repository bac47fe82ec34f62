// Package catalog loads the project catalog from a YAML file and seeds it
// into the database. The file is the authoring format; at runtime the engine
// reads projects through the projects tables only.
//
// Seed hints may be written as a flat list (older catalogs, read as the
// GUIDED ledger) or as a mapping keyed by mode:
//
//	seed_hints:
//	  GUIDED:   ["Start with a single handler."]
//	  HARDCORE: ["What does the standard library offer?"]
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/domain"
	"github.com/tbourn/go-guide-backend/internal/repo"
)

// ErrInvalidCatalog wraps every validation failure of a catalog file.
var ErrInvalidCatalog = errors.New("invalid catalog")

type file struct {
	Projects []projectEntry `yaml:"projects"`
}

type projectEntry struct {
	ID                 string           `yaml:"id"`
	Title              string           `yaml:"title"`
	Slug               string           `yaml:"slug"`
	Description        string           `yaml:"description"`
	DifficultyLevel    string           `yaml:"difficulty_level"`
	Technologies       []string         `yaml:"technologies"`
	LearningObjectives []string         `yaml:"learning_objectives"`
	Milestones         []milestoneEntry `yaml:"milestones"`
}

type milestoneEntry struct {
	Number             int       `yaml:"number"`
	Title              string    `yaml:"title"`
	Description        string    `yaml:"description"`
	ValidationCriteria string    `yaml:"validation_criteria"`
	SeedHints          yaml.Node `yaml:"seed_hints"`
}

// Parse decodes and validates a catalog document. Unknown fields are
// rejected so typos in the authoring file surface at seed time.
func Parse(r io.Reader) ([]domain.Project, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]struct{}, len(f.Projects))
	out := make([]domain.Project, 0, len(f.Projects))
	for i, pe := range f.Projects {
		p, err := pe.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: project #%d: %v", ErrInvalidCatalog, i+1, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate project id %q", ErrInvalidCatalog, p.ID)
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// LoadFile parses the catalog at path.
func LoadFile(path string) ([]domain.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Seed upserts every project. Existing hint ledgers are left untouched.
func Seed(ctx context.Context, db *gorm.DB, projects []domain.Project) error {
	for i := range projects {
		p := &projects[i]
		if err := repo.UpsertProject(ctx, db, p); err != nil {
			return fmt.Errorf("seed project %q: %w", p.ID, err)
		}
		log.Debug().Str("project_id", p.ID).Int("milestones", len(p.Milestones)).Msg("catalog project seeded")
	}
	log.Info().Int("projects", len(projects)).Msg("catalog seeded")
	return nil
}

// SeedFile is LoadFile followed by Seed.
func SeedFile(ctx context.Context, db *gorm.DB, path string) (int, error) {
	projects, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := Seed(ctx, db, projects); err != nil {
		return 0, err
	}
	return len(projects), nil
}

func (pe projectEntry) toDomain() (domain.Project, error) {
	id := strings.TrimSpace(pe.ID)
	if id == "" {
		return domain.Project{}, errors.New("id is required")
	}
	if strings.TrimSpace(pe.Title) == "" {
		return domain.Project{}, fmt.Errorf("project %q: title is required", id)
	}
	p := domain.Project{
		ID:                 id,
		Title:              strings.TrimSpace(pe.Title),
		Slug:               pe.Slug,
		Description:        strings.TrimSpace(pe.Description),
		DifficultyLevel:    pe.DifficultyLevel,
		Technologies:       pe.Technologies,
		LearningObjectives: pe.LearningObjectives,
	}

	numbers := make(map[int]struct{}, len(pe.Milestones))
	for i, me := range pe.Milestones {
		n := me.Number
		if n == 0 {
			n = i + 1
		}
		if n < 1 {
			return domain.Project{}, fmt.Errorf("project %q: milestone number %d must be >= 1", id, n)
		}
		if _, dup := numbers[n]; dup {
			return domain.Project{}, fmt.Errorf("project %q: duplicate milestone %d", id, n)
		}
		numbers[n] = struct{}{}
		if strings.TrimSpace(me.Title) == "" {
			return domain.Project{}, fmt.Errorf("project %q: milestone %d: title is required", id, n)
		}
		hints, err := decodeSeedHints(&me.SeedHints)
		if err != nil {
			return domain.Project{}, fmt.Errorf("project %q: milestone %d: %v", id, n, err)
		}
		p.Milestones = append(p.Milestones, domain.Milestone{
			Number:             n,
			Title:              strings.TrimSpace(me.Title),
			Description:        strings.TrimSpace(me.Description),
			ValidationCriteria: me.ValidationCriteria,
			SeedHints:          hints,
		})
	}
	return p, nil
}

// decodeSeedHints accepts a sequence (GUIDED) or a mapping keyed by mode.
func decodeSeedHints(n *yaml.Node) (domain.SeedHints, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return nil, nil
		}
		return nil, fmt.Errorf("seed_hints: expected a list or a mapping, got %q", n.Value)
	case yaml.SequenceNode:
		var flat []string
		if err := n.Decode(&flat); err != nil {
			return nil, fmt.Errorf("seed_hints: %v", err)
		}
		if len(flat) == 0 {
			return nil, nil
		}
		return domain.SeedHints{domain.ModeGuided: flat}, nil
	case yaml.MappingNode:
		var raw map[string][]string
		if err := n.Decode(&raw); err != nil {
			return nil, fmt.Errorf("seed_hints: %v", err)
		}
		out := make(domain.SeedHints, len(raw))
		for k, v := range raw {
			m, err := domain.ParseMode(k)
			if err != nil {
				return nil, fmt.Errorf("seed_hints: %q: %v", k, err)
			}
			out[m] = append(out[m], v...)
		}
		return out, nil
	default:
		return nil, errors.New("seed_hints: expected a list or a mapping")
	}
}
