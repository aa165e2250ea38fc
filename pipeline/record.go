// Package pipeline implements the entity selection, classification and
// aggregation pipeline. Every run recomputes the full record collection from
// the live state store; records are never mutated in place.
package pipeline

import (
	"time"
)

// Record is the fully resolved, render-ready representation of one entity
// for one update cycle. Immutable once built.
type Record struct {
	EntityID    string                 `json:"entity_id"`
	Name        string                 `json:"name"`
	Numeric     *float64               `json:"numeric,omitempty"`
	RawState    string                 `json:"raw_state"`
	Display     string                 `json:"display"`
	Unit        string                 `json:"unit,omitempty"`
	Icon        string                 `json:"icon"`
	Color       string                 `json:"color"`
	DeviceClass string                 `json:"device_class"`
	Area        string                 `json:"area,omitempty"`
	Floor       string                 `json:"floor,omitempty"`
	LastChanged time.Time              `json:"last_changed"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	Warning     bool                   `json:"warning"`
	Label       string                 `json:"label,omitempty"`
	Percent     float64                `json:"percent"`
	ShowGraph   bool                   `json:"show_graph"`
	GraphHours  int                    `json:"graph_hours,omitempty"`
}

// SortValue is the numeric stand-in used when records are compared by state.
// Non-numeric states deliberately compare as zero.
func (r Record) SortValue() float64 {
	if r.Numeric == nil {
		return 0
	}
	return *r.Numeric
}

// Group is one partition of the aggregated record collection.
type Group struct {
	Key     string   `json:"key"`
	Records []Record `json:"records"`
}

// Result is the output of one full pipeline run.
type Result struct {
	// Records is the flat, sorted, size-capped collection.
	Records []Record `json:"records"`
	// Groups partitions Records under the configured group key. With
	// grouping disabled it holds the single implicit "all" group.
	Groups []Group `json:"groups"`

	// Selected counts entity ids resolved by the filter stage, Missing the
	// ids absent from the store, Dropped the snapshots suppressed as
	// invalid.
	Selected int `json:"selected"`
	Missing  int `json:"missing"`
	Dropped  int `json:"dropped"`
}
