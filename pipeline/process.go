package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/timzifer/entitycard/classify"
	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/remote"
)

// invalidStates are the raw state sentinels a host emits for entities that
// currently carry no usable reading.
var invalidStates = map[string]struct{}{
	"unknown":     {},
	"none":        {},
	"unavailable": {},
	"null":        {},
	"undefined":   {},
	"nan":         {},
}

// process derives the display record for one snapshot. The second return is
// false when the entity is suppressed by ignore_invalid. Lookups degrade to
// defaults; this stage never fails.
func (p *Pipeline) process(id string, snap remote.Snapshot) (Record, bool) {
	cfg := p.cfg

	deviceClass := snap.Attributes.DeviceClass
	if deviceClass == "" {
		deviceClass = classify.UnknownClass
	}
	typeCfg := classify.Resolve(deviceClass, cfg.TypeOverride(deviceClass))

	raw := snap.State
	numeric, isNumeric := parseNumeric(raw)
	// Rounding is opt-in per type: overrides without a precision pass the
	// value through untouched.
	if isNumeric && typeCfg.Precision != nil {
		numeric = roundTo(numeric, *typeCfg.Precision)
	}

	if cfg.IgnoreInvalid {
		if _, invalid := invalidStates[strings.ToLower(strings.TrimSpace(raw))]; invalid || !isNumeric {
			return Record{}, false
		}
	}

	// Ranges only ever apply to numeric values.
	var matched *config.ValueRange
	if isNumeric {
		matched = classify.MatchRange(numeric, typeCfg.Ranges)
	}

	unit := snap.Attributes.Unit
	if unit == "" {
		unit = typeCfg.Unit
	}

	icon := typeCfg.Icon
	if matched != nil && matched.Icon != "" {
		icon = matched.Icon
	}
	if icon == "" {
		icon = classify.DomainIcon(remote.Domain(id))
	}

	color := classify.FallbackColor
	if matched != nil && matched.Color != "" {
		color = matched.Color
	}

	name := snap.Attributes.FriendlyName
	if name == "" {
		name = id
	}

	record := Record{
		EntityID:    id,
		Name:        name,
		RawState:    raw,
		Display:     raw,
		Unit:        unit,
		Icon:        icon,
		Color:       color,
		DeviceClass: deviceClass,
		Area:        snap.Attributes.Area,
		Floor:       snap.Attributes.Floor,
		LastChanged: snap.LastChanged,
		Attributes:  snap.Attributes.Map(),
		Percent:     50,
		ShowGraph:   typeCfg.ShowGraph,
		GraphHours:  p.lookbackHours(typeCfg.GraphHours),
	}
	if matched != nil {
		record.Warning = matched.Warning
		record.Label = matched.Label
	}
	if isNumeric {
		v := numeric
		record.Numeric = &v
		if typeCfg.Precision != nil {
			record.Display = formatNumber(numeric, *typeCfg.Precision)
		}
		record.Percent = classify.Percent(numeric, typeCfg.Ranges)
	}
	return record, true
}

func (p *Pipeline) lookbackHours(typeHours int) int {
	if typeHours > 0 {
		return typeHours
	}
	if p.cfg.GraphHours > 0 {
		return p.cfg.GraphHours
	}
	return 24
}

// parseNumeric coerces a raw state to a finite float.
func parseNumeric(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// roundTo rounds through decimal arithmetic so that display values do not
// pick up binary float artifacts.
func roundTo(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	return decimal.NewFromFloat(v).Round(int32(precision)).InexactFloat64()
}

func formatNumber(v float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	d := decimal.NewFromFloat(v).Round(int32(precision))
	return d.String()
}
