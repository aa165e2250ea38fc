package classify

import "github.com/timzifer/entitycard/config"

const (
	// UnknownClass is the sentinel device class for snapshots without one.
	UnknownClass = "unknown"

	fallbackIcon      = "mdi:eye"
	fallbackPrecision = 1

	// FallbackColor is used when no range supplies a color.
	FallbackColor = "#44739e"
)

// Resolve returns the effective type configuration for a device class. A
// user override wins over the built-in table, which wins over the generic
// fallback (eye icon, precision 1, no ranges).
func Resolve(deviceClass string, override *config.EntityTypeConfig) config.EntityTypeConfig {
	if override != nil {
		return *override
	}
	if cfg, ok := builtin[deviceClass]; ok {
		return cfg
	}
	precision := fallbackPrecision
	return config.EntityTypeConfig{
		DeviceClass: deviceClass,
		Icon:        fallbackIcon,
		Precision:   &precision,
	}
}

// Builtin returns the built-in configuration for a device class.
func Builtin(deviceClass string) (config.EntityTypeConfig, bool) {
	cfg, ok := builtin[deviceClass]
	return cfg, ok
}

// MatchRange returns the first range whose bounds contain v, or nil when
// none does. Ranges may overlap; declaration order decides.
func MatchRange(v float64, ranges []config.ValueRange) *config.ValueRange {
	for i := range ranges {
		if ranges[i].Contains(v) {
			return &ranges[i]
		}
	}
	return nil
}

// DomainIcon returns the generic icon for an entity domain.
func DomainIcon(domain string) string {
	if icon, ok := domainIcons[domain]; ok {
		return icon
	}
	return fallbackIcon
}

// Percent positions v between the first range's lower bound and the last
// range's upper bound, clamped to [0, 100]. Without ranges the midpoint is
// returned, keeping gauge layouts renderable for unclassified types.
func Percent(v float64, ranges []config.ValueRange) float64 {
	if len(ranges) == 0 {
		return 50
	}
	min := 0.0
	if ranges[0].Min != nil {
		min = *ranges[0].Min
	}
	max := 100.0
	if last := ranges[len(ranges)-1].Max; last != nil {
		max = *last
	}
	if max == min {
		return 50
	}
	pct := (v - min) / (max - min) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
