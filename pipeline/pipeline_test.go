package pipeline

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/remote"
)

func newPipeline(t *testing.T, cfg *config.CardConfig) *Pipeline {
	t.Helper()
	cfg.Normalize()
	p, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func snapshot(state string, attrs remote.Attributes, changed time.Time) remote.Snapshot {
	return remote.Snapshot{State: state, Attributes: attrs, LastChanged: changed}
}

func tempSnapshot(state, area string, changed time.Time) remote.Snapshot {
	return snapshot(state, remote.Attributes{DeviceClass: "temperature", Area: area}, changed)
}

var baseTime = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, zerolog.Nop())
	require.ErrorIs(t, err, config.ErrMissingCard)
}

func TestSelectExplicitEntitiesVerbatim(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Entities: []string{"sensor.kitchen_temp", "sensor.ghost", "sensor.kitchen_temp"},
	})

	ids := p.Select(map[string]remote.Snapshot{
		"sensor.kitchen_temp": tempSnapshot("21.4", "", baseTime),
	})
	// Explicit ids are kept even when absent from the store; duplicates
	// collapse.
	assert.Equal(t, []string{"sensor.kitchen_temp", "sensor.ghost"}, ids)
}

func TestSelectGlobInclude(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{
			Include: []config.FilterRule{{EntityID: "sensor.kitchen_*"}},
		},
	})

	states := map[string]remote.Snapshot{
		"sensor.kitchen_temp":     tempSnapshot("21.4", "", baseTime),
		"sensor.kitchen_humidity": snapshot("55", remote.Attributes{DeviceClass: "humidity"}, baseTime),
		"sensor.living_temp":      tempSnapshot("19.0", "", baseTime),
	}

	ids := p.Select(states)
	assert.ElementsMatch(t, []string{"sensor.kitchen_temp", "sensor.kitchen_humidity"}, ids)
}

func TestSelectExcludeWinsOverAllIncludePaths(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Entities: []string{"sensor.kitchen_temp"},
		Filter: &config.Filter{
			Include: []config.FilterRule{{Domain: "sensor"}},
			Domain:  []string{"sensor"},
			Exclude: []config.FilterRule{{EntityID: "sensor.kitchen_temp"}},
		},
	})

	states := map[string]remote.Snapshot{
		"sensor.kitchen_temp": tempSnapshot("21.4", "", baseTime),
		"sensor.living_temp":  tempSnapshot("19.0", "", baseTime),
	}

	ids := p.Select(states)
	assert.Equal(t, []string{"sensor.living_temp"}, ids)
}

func TestSelectEmptyRuleMatchesEverything(t *testing.T) {
	// A rule without predicates is permissive by contract.
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{Include: []config.FilterRule{{}}},
	})

	states := map[string]remote.Snapshot{
		"sensor.a": tempSnapshot("1", "", baseTime),
		"light.b":  snapshot("on", remote.Attributes{}, baseTime),
	}

	ids := p.Select(states)
	assert.Len(t, ids, 2)
}

func TestSelectDomainAndDeviceClassLists(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{
			Domain:      []string{"light"},
			DeviceClass: []string{"humidity"},
		},
	})

	states := map[string]remote.Snapshot{
		"sensor.hum":   snapshot("55", remote.Attributes{DeviceClass: "humidity"}, baseTime),
		"sensor.temp":  tempSnapshot("21.4", "", baseTime),
		"light.hall":   snapshot("on", remote.Attributes{}, baseTime),
		"switch.plug":  snapshot("off", remote.Attributes{}, baseTime),
		"sensor.blank": snapshot("1", remote.Attributes{}, baseTime),
	}

	ids := p.Select(states)
	assert.ElementsMatch(t, []string{"sensor.hum", "light.hall"}, ids)
}

func TestSelectRulePredicatesAreConjunctive(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{
			Include: []config.FilterRule{{
				Domain:      "sensor",
				DeviceClass: "temperature",
				State:       "21.4",
				Attributes:  map[string]interface{}{"battery_level": 90},
			}},
		},
	})

	match := remote.Snapshot{
		State:      "21.4",
		Attributes: remote.Attributes{DeviceClass: "temperature", Extra: map[string]interface{}{"battery_level": float64(90)}},
	}
	noMatch := match
	noMatch.State = "22.0"

	ids := p.Select(map[string]remote.Snapshot{
		"sensor.match":    match,
		"sensor.mismatch": noMatch,
	})
	assert.Equal(t, []string{"sensor.match"}, ids)
}

func TestSelectWhenExpression(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{
			Include: []config.FilterRule{{When: `domain == "sensor" && float(state) > 20`}},
		},
	})

	ids := p.Select(map[string]remote.Snapshot{
		"sensor.hot":  tempSnapshot("25.0", "", baseTime),
		"sensor.cold": tempSnapshot("15.0", "", baseTime),
	})
	assert.Equal(t, []string{"sensor.hot"}, ids)
}

func TestNewRejectsBrokenWhenExpression(t *testing.T) {
	cfg := &config.CardConfig{
		Filter: &config.Filter{Include: []config.FilterRule{{When: "state >"}}},
	}
	cfg.Normalize()
	_, err := New(cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestRunIdempotent(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{Include: []config.FilterRule{{Domain: "sensor"}}},
		SortBy: config.SortByName,
	})

	states := map[string]remote.Snapshot{
		"sensor.b": tempSnapshot("19.0", "Hall", baseTime),
		"sensor.a": tempSnapshot("21.4", "Kitchen", baseTime.Add(-time.Hour)),
		"sensor.c": snapshot("55", remote.Attributes{DeviceClass: "humidity"}, baseTime),
	}

	first := p.Run(states)
	second := p.Run(states)
	assert.Equal(t, first, second)
}

func TestRunSkipsMissingEntities(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{Entities: []string{"sensor.ghost", "sensor.real"}})

	result := p.Run(map[string]remote.Snapshot{
		"sensor.real": tempSnapshot("21.4", "", baseTime),
	})
	require.Len(t, result.Records, 1)
	assert.Equal(t, "sensor.real", result.Records[0].EntityID)
	assert.Equal(t, 2, result.Selected)
	assert.Equal(t, 1, result.Missing)
}

func TestRunIgnoreInvalid(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Entities:      []string{"sensor.gone", "sensor.presence", "sensor.ok"},
		IgnoreInvalid: true,
	})

	result := p.Run(map[string]remote.Snapshot{
		// Sentinel state.
		"sensor.gone": tempSnapshot("unavailable", "", baseTime),
		// Non-numeric state on a sensor; same flag drops it too.
		"sensor.presence": tempSnapshot("home", "", baseTime),
		"sensor.ok":       tempSnapshot("21.4", "", baseTime),
	})

	require.Len(t, result.Records, 1)
	assert.Equal(t, "sensor.ok", result.Records[0].EntityID)
	assert.Equal(t, 2, result.Dropped)
}

func TestRunMixedSortByState(t *testing.T) {
	// Scenario: three temperature entities, one unavailable, ignore_invalid
	// unset, sorted by state ascending. The non-numeric record sorts as 0.
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{DeviceClass: []string{"temperature"}},
		SortBy: config.SortByState,
	})

	result := p.Run(map[string]remote.Snapshot{
		"sensor.a": tempSnapshot("21.4", "", baseTime),
		"sensor.b": tempSnapshot("19.0", "", baseTime),
		"sensor.c": tempSnapshot("unavailable", "", baseTime),
	})

	require.Len(t, result.Records, 3)
	assert.Equal(t, "sensor.c", result.Records[0].EntityID)
	assert.Equal(t, "sensor.b", result.Records[1].EntityID)
	assert.Equal(t, "sensor.a", result.Records[2].EntityID)
	assert.Nil(t, result.Records[0].Numeric)
}

func TestRunCapBeforeGroupingEliminatesGroup(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter:      &config.Filter{Include: []config.FilterRule{{Domain: "sensor"}}},
		SortBy:      config.SortByName,
		MaxEntities: 1,
	})

	result := p.Run(map[string]remote.Snapshot{
		"sensor.aa_temp": tempSnapshot("21.4", "", baseTime),
		"sensor.zz_hum":  snapshot("55", remote.Attributes{DeviceClass: "humidity"}, baseTime),
	})

	require.Len(t, result.Records, 1)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "temperature", result.Groups[0].Key)
}

func TestRunGroupSentinels(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Entities: []string{"sensor.known", "sensor.blank"},
		GroupBy:  config.GroupByArea,
	})

	result := p.Run(map[string]remote.Snapshot{
		"sensor.known": tempSnapshot("21.4", "Kitchen", baseTime),
		"sensor.blank": tempSnapshot("19.0", "", baseTime),
	})

	keys := make([]string, 0, len(result.Groups))
	for _, g := range result.Groups {
		keys = append(keys, g.Key)
	}
	assert.ElementsMatch(t, []string{"Kitchen", GroupNoArea}, keys)
}

func TestRunGroupByNone(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Entities: []string{"sensor.a", "sensor.b"},
		GroupBy:  config.GroupByNone,
	})

	result := p.Run(map[string]remote.Snapshot{
		"sensor.a": tempSnapshot("21.4", "", baseTime),
		"sensor.b": tempSnapshot("19.0", "", baseTime),
	})

	require.Len(t, result.Groups, 1)
	assert.Equal(t, GroupAll, result.Groups[0].Key)
	assert.Len(t, result.Groups[0].Records, 2)
}

func TestSortLastChangedDefaultsDescending(t *testing.T) {
	older := tempSnapshot("1", "", baseTime.Add(-time.Hour))
	newer := tempSnapshot("2", "", baseTime)

	p := newPipeline(t, &config.CardConfig{
		Entities: []string{"sensor.older", "sensor.newer"},
		SortBy:   config.SortByLastChanged,
	})
	result := p.Run(map[string]remote.Snapshot{
		"sensor.older": older,
		"sensor.newer": newer,
	})
	require.Len(t, result.Records, 2)
	assert.Equal(t, "sensor.newer", result.Records[0].EntityID)

	// The reverse flag flips this key's descending default to ascending.
	p = newPipeline(t, &config.CardConfig{
		Entities:    []string{"sensor.older", "sensor.newer"},
		SortBy:      config.SortByLastChanged,
		SortReverse: true,
	})
	result = p.Run(map[string]remote.Snapshot{
		"sensor.older": older,
		"sensor.newer": newer,
	})
	assert.Equal(t, "sensor.older", result.Records[0].EntityID)
}

func TestSortAreaEmptyFirst(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Entities: []string{"sensor.b", "sensor.a"},
		SortBy:   config.SortByArea,
	})

	result := p.Run(map[string]remote.Snapshot{
		"sensor.a": tempSnapshot("1", "Kitchen", baseTime),
		"sensor.b": tempSnapshot("2", "", baseTime),
	})
	require.Len(t, result.Records, 2)
	assert.Equal(t, "sensor.b", result.Records[0].EntityID)
}

func TestRunEmptyStore(t *testing.T) {
	p := newPipeline(t, &config.CardConfig{
		Filter: &config.Filter{Include: []config.FilterRule{{Domain: "sensor"}}},
	})

	result := p.Run(map[string]remote.Snapshot{})
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Groups)
}
