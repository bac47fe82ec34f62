package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-guide-backend/internal/llm"
)

// Options tunes an Orchestrator built by NewOrchestrator. A zero
// HistoryLimit, GenerationTimeout or MaxPromptRunes takes the package
// default; a zero StreamDelay streams simulated replies without pauses.
type Options struct {
	HistoryLimit      int
	StreamDelay       time.Duration
	NativeStreaming   bool
	GenerationTimeout time.Duration
	MaxPromptRunes    int
}

// NewOrchestrator wires the GORM-backed stores, the catalog and the ledger
// over db and answers with gw.
func NewOrchestrator(db *gorm.DB, gw llm.Gateway, opts Options) *Orchestrator {
	store := NewConversationStore(db)
	catalog := GormCatalog{DB: db}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultMaxMessages
	}
	return &Orchestrator{
		Store:             store,
		Catalog:           catalog,
		Policy:            &ModePolicy{Store: GormModeStore{DB: db}},
		Assembler:         &ContextAssembler{Catalog: catalog, History: store, MaxMessages: limit},
		Hints:             &HintLedger{DB: db, Repo: GormRepo{}, Catalog: catalog},
		Gateway:           gw,
		Simulated:         Simulated{Delay: opts.StreamDelay},
		NativeStreaming:   opts.NativeStreaming,
		GenerationTimeout: opts.GenerationTimeout,
		MaxPromptRunes:    opts.MaxPromptRunes,
	}
}
