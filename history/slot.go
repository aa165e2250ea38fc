package history

import "sync"

// SlotState describes where a chart slot is in its load cycle.
type SlotState string

const (
	SlotLoading SlotState = "loading"
	SlotReady   SlotState = "ready"
	SlotFailed  SlotState = "failed"
)

// Slot holds the chart series for one entity. A slot moves Loading -> Ready
// or Loading -> Failed per fetch generation; a new request bumps the
// generation so results of superseded fetches are dropped instead of
// overwriting fresher data.
type Slot struct {
	mu         sync.Mutex
	state      SlotState
	points     []Point
	generation uint64
}

func NewSlot() *Slot {
	return &Slot{state: SlotLoading}
}

// Begin marks the slot loading and returns the generation token the eventual
// Complete or Fail call must present.
func (s *Slot) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.state = SlotLoading
	return s.generation
}

// Complete stores the fetched points. Stale generations are ignored.
func (s *Slot) Complete(generation uint64, points []Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false
	}
	s.state = SlotReady
	s.points = points
	return true
}

// Fail marks the slot failed without discarding previously loaded points.
func (s *Slot) Fail(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false
	}
	s.state = SlotFailed
	return true
}

// Snapshot returns the current state and a copy of the points.
func (s *Slot) Snapshot() (SlotState, []Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make([]Point, len(s.points))
	copy(points, s.points)
	return s.state, points
}
