package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/remote"
)

// Pipeline binds one normalized card configuration to compiled filter rules.
// A pipeline is immutable; configuration changes build a new one.
type Pipeline struct {
	cfg      *config.CardConfig
	logger   zerolog.Logger
	includes []ruleMatcher
	excludes []ruleMatcher
}

// New compiles the filter rules of a card configuration. The configuration
// must already be normalized; a nil configuration is the one hard error.
func New(cfg *config.CardConfig, logger zerolog.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, config.ErrMissingCard
	}
	p := &Pipeline{cfg: cfg, logger: logger}
	if cfg.Filter != nil {
		includes, err := compileRules(cfg.Filter.Include)
		if err != nil {
			return nil, fmt.Errorf("compile include rules: %w", err)
		}
		excludes, err := compileRules(cfg.Filter.Exclude)
		if err != nil {
			return nil, fmt.Errorf("compile exclude rules: %w", err)
		}
		p.includes = includes
		p.excludes = excludes
	}
	return p, nil
}

// Config returns the card configuration the pipeline was built from.
func (p *Pipeline) Config() *config.CardConfig {
	return p.cfg
}

// Select resolves the configured selection against the live state store into
// a deduplicated list of entity ids. Order is insertion order of the
// resolution steps, deterministic for identical inputs.
func (p *Pipeline) Select(states map[string]remote.Snapshot) []string {
	return p.selection(states)
}

// Run executes the full pipeline: selection, per-entity processing and
// aggregation. Entities missing from the store are skipped silently; stores
// are expected to lag configuration.
func (p *Pipeline) Run(states map[string]remote.Snapshot) Result {
	ids := p.selection(states)

	result := Result{Selected: len(ids)}
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		snap, ok := states[id]
		if !ok {
			result.Missing++
			continue
		}
		record, ok := p.process(id, snap)
		if !ok {
			result.Dropped++
			p.logger.Debug().Str("entity", id).Str("state", snap.State).Msg("dropped invalid state")
			continue
		}
		records = append(records, record)
	}

	result.Records, result.Groups = p.aggregate(records)
	return result
}
