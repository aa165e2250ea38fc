package pipeline

import (
	"sort"
	"strings"

	"github.com/timzifer/entitycard/config"
)

// Sentinel group keys for records whose grouping attribute is absent.
const (
	GroupOther   = "other"
	GroupNoArea  = "no area"
	GroupNoFloor = "no floor"
	GroupAll     = "all"
)

// aggregate sorts the flat collection, applies the result cap and partitions
// the remainder under the configured group key. The cap runs before the
// split, so a low cap can eliminate entire groups.
func (p *Pipeline) aggregate(records []Record) ([]Record, []Group) {
	cfg := p.cfg

	sortRecords(records, cfg.SortBy, cfg.SortReverse)

	if cfg.MaxEntities > 0 && len(records) > cfg.MaxEntities {
		records = records[:cfg.MaxEntities]
	}

	if cfg.GroupBy == config.GroupByNone {
		return records, []Group{{Key: GroupAll, Records: records}}
	}

	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, record := range records {
		key := groupKey(cfg.GroupBy, record)
		idx, ok := index[key]
		if !ok {
			idx = len(groups)
			index[key] = idx
			groups = append(groups, Group{Key: key})
		}
		groups[idx].Records = append(groups[idx].Records, record)
	}

	// Within-group order honors the same comparator as the flat collection.
	for i := range groups {
		sortRecords(groups[i].Records, cfg.SortBy, cfg.SortReverse)
	}
	return records, groups
}

func groupKey(key config.GroupKey, record Record) string {
	switch key {
	case config.GroupByArea:
		if record.Area == "" {
			return GroupNoArea
		}
		return record.Area
	case config.GroupByFloor:
		if record.Floor == "" {
			return GroupNoFloor
		}
		return record.Floor
	default:
		if record.DeviceClass == "" {
			return GroupOther
		}
		return record.DeviceClass
	}
}

// sortRecords orders the collection by the configured key. Name and area
// compare lexically ascending, state numerically ascending with non-numeric
// values as zero, and last_changed descending (most recent first). The
// reverse flag flips whichever default the key carries.
func sortRecords(records []Record, key config.SortKey, reverse bool) {
	if key == "" {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		less := lessByKey(records[i], records[j], key)
		if reverse {
			return lessByKey(records[j], records[i], key)
		}
		return less
	})
}

func lessByKey(a, b Record, key config.SortKey) bool {
	switch key {
	case config.SortByState:
		return a.SortValue() < b.SortValue()
	case config.SortByLastChanged:
		return a.LastChanged.After(b.LastChanged)
	case config.SortByArea:
		return strings.Compare(a.Area, b.Area) < 0
	default:
		return strings.Compare(a.Name, b.Name) < 0
	}
}
