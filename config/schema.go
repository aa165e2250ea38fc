package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"gopkg.in/yaml.v3"
)

// schema constrains the raw configuration document before it is decoded into
// Go structs. Structural problems (wrong enum value, negative counts) are
// reported against the document instead of surfacing later as zero values.
const schema = `
#Range: {
	min?:     number
	max?:     number
	color:    string
	icon?:    string
	label?:   string
	warning?: bool
}

#TypeConfig: {
	device_class: string
	icon?:        string
	color?:       string
	unit?:        string
	precision?:   int & >=0
	ranges?: [...#Range]
	show_graph?:  bool
	graph_hours?: int & >0
	custom_name?: string
}

#Rule: {
	domain?:       string
	device_class?: string
	entity_id?:    string
	area?:         string
	floor?:        string
	state?:        string
	when?:         string
	attributes?: {...}
}

#Card: {
	title?: string
	entities?: [...string]
	filter?: {
		include?: [...#Rule]
		exclude?: [...#Rule]
		domain?: [...string]
		device_class?: [...string]
	}
	layout?:         "list" | "grid" | "gauge" | "compact" | "detailed"
	columns?:        int & >=1
	theme?:          "default" | "modern" | "minimal"
	group_by?:       "type" | "area" | "floor" | "none"
	sort_by?:        "name" | "state" | "last_changed" | "area"
	sort_reverse?:   bool
	ignore_invalid?: bool
	max_entities?:   int & >=0
	entity_types?: [...#TypeConfig]
	show_header?:       bool
	show_state?:        bool
	show_icon?:         bool
	show_name?:         bool
	show_unit?:         bool
	show_last_changed?: bool
	show_graph?:        bool
	graph_type?:        "line" | "bar" | "area"
	graph_hours?:       int & >0
	graph_height?:      int & >0
	graph_line_color?:  string
	graph_fill?:        bool
}

#Root: {
	host?: {
		url:            string
		token?:         string
		timeout?:       string
		poll_interval?: string
	}
	logging?: {
		level?:  string
		format?: string
		loki?: {
			enabled?: bool
			url?:     string
			labels?: {[string]: string}
		}
	}
	telemetry?: {
		enabled?: bool
	}
	view?: {
		enabled?: bool
		listen?:  string
	}
	hot_reload?: bool
	card?:       #Card
}
`

// ValidateDocument checks a raw YAML document against the configuration
// schema.
func ValidateDocument(raw []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	ctx := cuecontext.New()
	def := ctx.CompileString(schema)
	if err := def.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	root := def.LookupPath(cue.ParsePath("#Root"))
	if err := root.Err(); err != nil {
		return fmt.Errorf("resolve schema root: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	unified := root.Unify(value)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
