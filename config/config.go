package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Layout selects one of the card's visual arrangements.
type Layout string

const (
	LayoutList     Layout = "list"
	LayoutGrid     Layout = "grid"
	LayoutGauge    Layout = "gauge"
	LayoutCompact  Layout = "compact"
	LayoutDetailed Layout = "detailed"
)

// GroupKey selects the attribute records are partitioned by.
type GroupKey string

const (
	GroupByType  GroupKey = "type"
	GroupByArea  GroupKey = "area"
	GroupByFloor GroupKey = "floor"
	GroupByNone  GroupKey = "none"
)

// SortKey selects the comparator applied to the record collection.
//
// Every key sorts ascending by default except SortByLastChanged, which sorts
// descending (most recent first). The reverse flag flips whichever default
// the key carries.
type SortKey string

const (
	SortByName        SortKey = "name"
	SortByState       SortKey = "state"
	SortByLastChanged SortKey = "last_changed"
	SortByArea        SortKey = "area"
)

// FilterRule is a conjunction of optional predicates. Only predicates that
// are present are evaluated; a rule without any predicate matches every
// entity.
type FilterRule struct {
	Domain      string                 `yaml:"domain,omitempty"`
	DeviceClass string                 `yaml:"device_class,omitempty"`
	EntityID    string                 `yaml:"entity_id,omitempty"`
	Area        string                 `yaml:"area,omitempty"`
	Floor       string                 `yaml:"floor,omitempty"`
	State       string                 `yaml:"state,omitempty"`
	Attributes  map[string]interface{} `yaml:"attributes,omitempty"`
	// When holds an optional expression evaluated against the entity
	// snapshot. It participates in the conjunction like any other predicate.
	When string `yaml:"when,omitempty"`
}

// Empty reports whether the rule carries no predicate at all.
func (r FilterRule) Empty() bool {
	return r.Domain == "" && r.DeviceClass == "" && r.EntityID == "" &&
		r.Area == "" && r.Floor == "" && r.State == "" &&
		len(r.Attributes) == 0 && r.When == ""
}

// Filter describes the declarative part of the entity selection.
type Filter struct {
	Include     []FilterRule `yaml:"include,omitempty"`
	Exclude     []FilterRule `yaml:"exclude,omitempty"`
	Domain      []string     `yaml:"domain,omitempty"`
	DeviceClass []string     `yaml:"device_class,omitempty"`
}

// ValueRange maps an inclusive numeric interval onto display properties.
// Ranges are evaluated in declaration order and the first match wins, so
// overlapping ranges are legal and their order is part of the contract.
type ValueRange struct {
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
	Color   string   `yaml:"color"`
	Icon    string   `yaml:"icon,omitempty"`
	Label   string   `yaml:"label,omitempty"`
	Warning bool     `yaml:"warning,omitempty"`
}

// Contains reports whether v lies within the range. A missing bound leaves
// that side unbounded.
func (r ValueRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// EntityTypeConfig describes how one device class is displayed.
type EntityTypeConfig struct {
	DeviceClass string       `yaml:"device_class"`
	Icon        string       `yaml:"icon,omitempty"`
	Color       string       `yaml:"color,omitempty"`
	Unit        string       `yaml:"unit,omitempty"`
	Precision   *int         `yaml:"precision,omitempty"`
	Ranges      []ValueRange `yaml:"ranges,omitempty"`
	ShowGraph   bool         `yaml:"show_graph,omitempty"`
	GraphHours  int          `yaml:"graph_hours,omitempty"`
	CustomName  string       `yaml:"custom_name,omitempty"`
}

// CardConfig is the user-authored configuration of one card instance. It is
// treated as immutable once normalized; replacing it wholesale is the only
// supported update.
type CardConfig struct {
	Title    string   `yaml:"title,omitempty"`
	Entities []string `yaml:"entities,omitempty"`
	Filter   *Filter  `yaml:"filter,omitempty"`

	Layout  Layout `yaml:"layout,omitempty"`
	Columns int    `yaml:"columns,omitempty"`
	Theme   string `yaml:"theme,omitempty"`

	GroupBy     GroupKey `yaml:"group_by,omitempty"`
	SortBy      SortKey  `yaml:"sort_by,omitempty"`
	SortReverse bool     `yaml:"sort_reverse,omitempty"`

	IgnoreInvalid bool `yaml:"ignore_invalid,omitempty"`
	MaxEntities   int  `yaml:"max_entities,omitempty"`

	EntityTypes []EntityTypeConfig `yaml:"entity_types,omitempty"`

	ShowHeader      *bool `yaml:"show_header,omitempty"`
	ShowState       *bool `yaml:"show_state,omitempty"`
	ShowIcon        *bool `yaml:"show_icon,omitempty"`
	ShowName        *bool `yaml:"show_name,omitempty"`
	ShowUnit        *bool `yaml:"show_unit,omitempty"`
	ShowLastChanged *bool `yaml:"show_last_changed,omitempty"`
	ShowGraph       *bool `yaml:"show_graph,omitempty"`

	GraphType      string `yaml:"graph_type,omitempty"`
	GraphHours     int    `yaml:"graph_hours,omitempty"`
	GraphHeight    int    `yaml:"graph_height,omitempty"`
	GraphLineColor string `yaml:"graph_line_color,omitempty"`
	GraphFill      bool   `yaml:"graph_fill,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures the Prometheus telemetry exporter.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ViewConfig configures the JSON view server.
type ViewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// HostConfig describes how to reach the state and history host.
type HostConfig struct {
	URL          string   `yaml:"url"`
	Token        string   `yaml:"token,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	PollInterval Duration `yaml:"poll_interval,omitempty"`
}

// Config is the root configuration for the service binary.
type Config struct {
	Host      HostConfig      `yaml:"host"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	View      ViewConfig      `yaml:"view"`
	HotReload bool            `yaml:"hot_reload"`
	Card      *CardConfig     `yaml:"card"`
}

// ErrMissingCard is returned when no card configuration is supplied at all.
// Rendering without a configuration is meaningless, so this is the single
// anomaly that surfaces as a hard error.
var ErrMissingCard = errors.New("card configuration is required")

// Load reads, validates and normalizes the configuration file from disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := ValidateDocument(raw); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if cfg.Card == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingCard)
	}
	cfg.Card.Normalize()
	if err := cfg.Card.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// PollInterval returns the configured host poll interval.
func (c *Config) PollInterval() time.Duration {
	if c == nil || c.Host.PollInterval.Duration <= 0 {
		return 10 * time.Second
	}
	return c.Host.PollInterval.Duration
}

// Normalize fills in the documented defaults for fields the user left unset.
func (c *CardConfig) Normalize() {
	if c == nil {
		return
	}
	if c.Layout == "" {
		c.Layout = LayoutList
	}
	if c.Columns <= 0 {
		c.Columns = 2
	}
	if c.GroupBy == "" {
		c.GroupBy = GroupByType
	}
	if c.Theme == "" {
		c.Theme = "default"
	}
	if c.GraphType == "" {
		c.GraphType = "line"
	}
	if c.GraphHours <= 0 {
		c.GraphHours = 24
	}
	if c.GraphHeight <= 0 {
		c.GraphHeight = 80
	}
	if c.ShowHeader == nil {
		c.ShowHeader = boolPtr(true)
	}
	if c.ShowState == nil {
		c.ShowState = boolPtr(true)
	}
	if c.ShowIcon == nil {
		c.ShowIcon = boolPtr(true)
	}
	if c.ShowName == nil {
		c.ShowName = boolPtr(true)
	}
	if c.ShowUnit == nil {
		c.ShowUnit = boolPtr(true)
	}
	if c.ShowLastChanged == nil {
		c.ShowLastChanged = boolPtr(false)
	}
	if c.ShowGraph == nil {
		c.ShowGraph = boolPtr(false)
	}
}

// Validate checks the invariants a normalized card configuration must hold.
// A nil receiver reports ErrMissingCard.
func (c *CardConfig) Validate() error {
	if c == nil {
		return ErrMissingCard
	}
	switch c.Layout {
	case LayoutList, LayoutGrid, LayoutGauge, LayoutCompact, LayoutDetailed:
	default:
		return fmt.Errorf("unknown layout %q", c.Layout)
	}
	switch c.GroupBy {
	case GroupByType, GroupByArea, GroupByFloor, GroupByNone:
	default:
		return fmt.Errorf("unknown group_by %q", c.GroupBy)
	}
	switch c.SortBy {
	case "", SortByName, SortByState, SortByLastChanged, SortByArea:
	default:
		return fmt.Errorf("unknown sort_by %q", c.SortBy)
	}
	if c.Columns < 1 {
		return fmt.Errorf("columns must be at least 1, got %d", c.Columns)
	}
	if c.MaxEntities < 0 {
		return fmt.Errorf("max_entities must not be negative, got %d", c.MaxEntities)
	}
	for _, t := range c.EntityTypes {
		if strings.TrimSpace(t.DeviceClass) == "" {
			return errors.New("entity type override missing device_class")
		}
		if t.Precision != nil && *t.Precision < 0 {
			return fmt.Errorf("entity type %s: precision must not be negative", t.DeviceClass)
		}
		for i, r := range t.Ranges {
			if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
				return fmt.Errorf("entity type %s: range %d has min %v above max %v", t.DeviceClass, i, *r.Min, *r.Max)
			}
		}
	}
	return nil
}

// TypeOverride returns the user override for the given device class, if any.
func (c *CardConfig) TypeOverride(deviceClass string) *EntityTypeConfig {
	if c == nil {
		return nil
	}
	for i := range c.EntityTypes {
		if c.EntityTypes[i].DeviceClass == deviceClass {
			return &c.EntityTypes[i]
		}
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }

// Show reports the effective value of a tri-state show flag.
func Show(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}
