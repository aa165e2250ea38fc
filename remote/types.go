package remote

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Snapshot is one entity's live state as reported by the host. Snapshots are
// owned by the host and treated as read-only.
type Snapshot struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastChanged time.Time  `json:"last_changed"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Domain returns the part of an entity id before the first dot.
func Domain(entityID string) string {
	if idx := strings.IndexByte(entityID, '.'); idx >= 0 {
		return entityID[:idx]
	}
	return entityID
}

// Attributes exposes the snapshot attributes the pipeline understands as
// typed fields and keeps everything else in Extra. The host may attach any
// keys it likes; a fixed schema must never be assumed.
type Attributes struct {
	FriendlyName string
	DeviceClass  string
	Area         string
	Floor        string
	Unit         string
	Icon         string
	Extra        map[string]interface{}
}

const (
	attrFriendlyName = "friendly_name"
	attrDeviceClass  = "device_class"
	attrArea         = "area"
	attrFloor        = "floor"
	attrUnit         = "unit_of_measurement"
	attrIcon         = "icon"
)

// UnmarshalJSON splits the open attribute map into the known typed fields
// and the residual Extra map.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode attributes: %w", err)
	}
	a.FriendlyName = takeString(raw, attrFriendlyName)
	a.DeviceClass = takeString(raw, attrDeviceClass)
	a.Area = takeString(raw, attrArea)
	a.Floor = takeString(raw, attrFloor)
	a.Unit = takeString(raw, attrUnit)
	a.Icon = takeString(raw, attrIcon)
	a.Extra = raw
	return nil
}

// MarshalJSON reassembles the full attribute map.
func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.Extra)+6)
	for k, v := range a.Extra {
		out[k] = v
	}
	putString(out, attrFriendlyName, a.FriendlyName)
	putString(out, attrDeviceClass, a.DeviceClass)
	putString(out, attrArea, a.Area)
	putString(out, attrFloor, a.Floor)
	putString(out, attrUnit, a.Unit)
	putString(out, attrIcon, a.Icon)
	return json.Marshal(out)
}

// Get looks up an attribute by its wire key, typed fields included.
func (a Attributes) Get(key string) (interface{}, bool) {
	switch key {
	case attrFriendlyName:
		return stringOrMissing(a.FriendlyName)
	case attrDeviceClass:
		return stringOrMissing(a.DeviceClass)
	case attrArea:
		return stringOrMissing(a.Area)
	case attrFloor:
		return stringOrMissing(a.Floor)
	case attrUnit:
		return stringOrMissing(a.Unit)
	case attrIcon:
		return stringOrMissing(a.Icon)
	}
	v, ok := a.Extra[key]
	return v, ok
}

// Map returns the attributes as a single wire-keyed map.
func (a Attributes) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(a.Extra)+6)
	for k, v := range a.Extra {
		out[k] = v
	}
	putString(out, attrFriendlyName, a.FriendlyName)
	putString(out, attrDeviceClass, a.DeviceClass)
	putString(out, attrArea, a.Area)
	putString(out, attrFloor, a.Floor)
	putString(out, attrUnit, a.Unit)
	putString(out, attrIcon, a.Icon)
	return out
}

func stringOrMissing(v string) (interface{}, bool) {
	if v == "" {
		return nil, false
	}
	return v, true
}

func takeString(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	delete(raw, key)
	return s
}

func putString(out map[string]interface{}, key, v string) {
	if v != "" {
		out[key] = v
	}
}

// RawSample is one historical sample. The host emits either a verbose
// encoding (named keys, ISO timestamps) or a compact one (short keys,
// unix-second timestamps); both decode into the same struct.
type RawSample struct {
	State string
	Time  time.Time
}

// Numeric reports the sample's state as a finite float when it parses as one.
func (s RawSample) Numeric() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.State), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type verboseSample struct {
	State       string     `json:"state"`
	LastChanged *time.Time `json:"last_changed"`
	LastUpdated *time.Time `json:"last_updated"`
}

type compactSample struct {
	State json.RawMessage `json:"s"`
	Unix  float64         `json:"lu"`
}

// UnmarshalJSON accepts both history sample encodings.
func (s *RawSample) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode history sample: %w", err)
	}

	if _, ok := probe["s"]; ok {
		var compact compactSample
		if err := json.Unmarshal(data, &compact); err != nil {
			return fmt.Errorf("decode compact sample: %w", err)
		}
		s.State = rawScalarString(compact.State)
		sec, frac := int64(compact.Unix), compact.Unix-float64(int64(compact.Unix))
		s.Time = time.Unix(sec, int64(frac*float64(time.Second))).UTC()
		return nil
	}

	var verbose verboseSample
	if err := json.Unmarshal(data, &verbose); err != nil {
		return fmt.Errorf("decode verbose sample: %w", err)
	}
	s.State = verbose.State
	switch {
	case verbose.LastChanged != nil:
		s.Time = verbose.LastChanged.UTC()
	case verbose.LastUpdated != nil:
		s.Time = verbose.LastUpdated.UTC()
	}
	return nil
}

// rawScalarString renders a JSON scalar as its string form. Compact samples
// may carry the state as either a string or a bare number.
func rawScalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strings.Trim(string(raw), `"`)
}
