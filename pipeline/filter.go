package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/remote"
)

// ruleMatcher is one compiled filter rule. All present predicates must hold
// for the rule to match; a rule without predicates matches everything.
type ruleMatcher struct {
	rule    config.FilterRule
	pattern *regexp.Regexp
	when    *vm.Program
}

func compileRules(rules []config.FilterRule) ([]ruleMatcher, error) {
	matchers := make([]ruleMatcher, 0, len(rules))
	for i, rule := range rules {
		m := ruleMatcher{rule: rule}
		if rule.EntityID != "" {
			pattern, err := compileGlob(rule.EntityID)
			if err != nil {
				return nil, fmt.Errorf("rule %d: entity_id pattern %q: %w", i, rule.EntityID, err)
			}
			m.pattern = pattern
		}
		if rule.When != "" {
			program, err := expr.Compile(rule.When, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables())
			if err != nil {
				return nil, fmt.Errorf("rule %d: when expression: %w", i, err)
			}
			m.when = program
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// compileGlob translates an entity id glob into an anchored regular
// expression where "*" stands for any run of characters.
func compileGlob(glob string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(glob)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	return regexp.Compile("^" + quoted + "$")
}

func (m ruleMatcher) matches(id string, snap remote.Snapshot, logger zerolog.Logger) bool {
	rule := m.rule
	if rule.Domain != "" && remote.Domain(id) != rule.Domain {
		return false
	}
	if rule.DeviceClass != "" && snap.Attributes.DeviceClass != rule.DeviceClass {
		return false
	}
	if m.pattern != nil && !m.pattern.MatchString(id) {
		return false
	}
	if rule.Area != "" && snap.Attributes.Area != rule.Area {
		return false
	}
	if rule.Floor != "" && snap.Attributes.Floor != rule.Floor {
		return false
	}
	if rule.State != "" && snap.State != rule.State {
		return false
	}
	for key, want := range rule.Attributes {
		got, ok := snap.Attributes.Get(key)
		if !ok || !attributeEqual(got, want) {
			return false
		}
	}
	if m.when != nil {
		out, err := expr.Run(m.when, exprEnv(id, snap))
		if err != nil {
			logger.Debug().Err(err).Str("entity", id).Msg("filter expression failed")
			return false
		}
		ok, isBool := out.(bool)
		if !isBool || !ok {
			return false
		}
	}
	return true
}

func exprEnv(id string, snap remote.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"entity_id":  id,
		"domain":     remote.Domain(id),
		"state":      snap.State,
		"name":       snap.Attributes.FriendlyName,
		"attributes": snap.Attributes.Map(),
	}
}

// attributeEqual compares a snapshot attribute against a configured value.
// Numbers compare numerically regardless of their decoded Go type (YAML
// yields ints where JSON yields float64).
func attributeEqual(got, want interface{}) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		return gf == wf
	}
	return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// selection resolves the configured entity selection against the live state
// store. The result is deduplicated; explicit ids come first, store-derived
// ids follow in sorted store order so that identical inputs always produce
// identical output.
func (p *Pipeline) selection(states map[string]remote.Snapshot) []string {
	cfg := p.cfg

	seen := make(map[string]struct{}, len(cfg.Entities))
	result := make([]string, 0, len(cfg.Entities))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	// Explicit ids are always included verbatim; existence is checked
	// downstream, not here.
	for _, id := range cfg.Entities {
		add(id)
	}

	if cfg.Filter != nil {
		filter := cfg.Filter

		ids := make([]string, 0, len(states))
		for id := range states {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			snap := states[id]
			for _, m := range p.includes {
				if m.matches(id, snap, p.logger) {
					add(id)
					break
				}
			}
			if len(filter.Domain) > 0 && containsString(filter.Domain, remote.Domain(id)) {
				add(id)
			}
			if len(filter.DeviceClass) > 0 && snap.Attributes.DeviceClass != "" &&
				containsString(filter.DeviceClass, snap.Attributes.DeviceClass) {
				add(id)
			}
		}

		if len(p.excludes) > 0 {
			kept := result[:0]
			for _, id := range result {
				snap, ok := states[id]
				excluded := false
				if ok {
					for _, m := range p.excludes {
						if m.matches(id, snap, p.logger) {
							excluded = true
							break
						}
					}
				}
				if excluded {
					delete(seen, id)
					continue
				}
				kept = append(kept, id)
			}
			result = kept
		}
	}

	return result
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
