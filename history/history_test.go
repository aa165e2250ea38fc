package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/entitycard/remote"
)

type stubProvider struct {
	samples []remote.RawSample
	err     error

	entityID string
	start    time.Time
	end      time.Time
}

func (s *stubProvider) History(_ context.Context, entityID string, start, end time.Time) ([]remote.RawSample, error) {
	s.entityID = entityID
	s.start = start
	s.end = end
	return s.samples, s.err
}

var epoch = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

func sampleAt(state string, offset time.Duration) remote.RawSample {
	return remote.RawSample{State: state, Time: epoch.Add(offset)}
}

func TestSampleWindow(t *testing.T) {
	provider := &stubProvider{}
	sampler := NewSampler(provider, zerolog.Nop())
	now := epoch.Add(72 * time.Hour)
	sampler.now = func() time.Time { return now }

	sampler.Sample(context.Background(), "sensor.kitchen", 48)

	assert.Equal(t, "sensor.kitchen", provider.entityID)
	assert.Equal(t, now.Add(-48*time.Hour), provider.start)
	assert.Equal(t, now, provider.end)
}

func TestSampleDefaultLookback(t *testing.T) {
	provider := &stubProvider{}
	sampler := NewSampler(provider, zerolog.Nop())
	now := epoch.Add(72 * time.Hour)
	sampler.now = func() time.Time { return now }

	sampler.Sample(context.Background(), "sensor.kitchen", 0)

	assert.Equal(t, now.Add(-24*time.Hour), provider.start)
}

func TestSampleFetchFailureYieldsEmptySeries(t *testing.T) {
	provider := &stubProvider{err: errors.New("boom")}
	sampler := NewSampler(provider, zerolog.Nop())

	points := sampler.Sample(context.Background(), "sensor.kitchen", 24)

	require.NotNil(t, points)
	assert.Empty(t, points)
}

func TestNormalizeDiscardsNonNumeric(t *testing.T) {
	points := Normalize([]remote.RawSample{
		sampleAt("21.4", 0),
		sampleAt("unavailable", time.Minute),
		sampleAt("22.0", 2*time.Minute),
	})

	require.Len(t, points, 2)
	assert.Equal(t, 21.4, points[0].Value)
	assert.Equal(t, 22.0, points[1].Value)
}

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	points := Normalize([]remote.RawSample{
		sampleAt("3", 2*time.Minute),
		sampleAt("1", 0),
		sampleAt("2", time.Minute),
		sampleAt("4", time.Minute),
	})

	require.Len(t, points, 3)
	assert.Equal(t, []float64{1, 4, 3}, []float64{points[0].Value, points[1].Value, points[2].Value})
	assert.True(t, points[0].TS < points[1].TS && points[1].TS < points[2].TS)
}

func TestDownsampleCapsAtLimit(t *testing.T) {
	raw := make([]Point, 0, 250)
	for i := 0; i < 250; i++ {
		raw = append(raw, Point{TS: int64(i * 1000), Value: float64(i)})
	}

	out := Downsample(raw, MaxPoints)

	require.Len(t, out, MaxPoints)

	// Each output point is the arithmetic mean of its contiguous bucket.
	size := float64(len(raw)) / float64(MaxPoints)
	for i, p := range out {
		lo := int(float64(i) * size)
		hi := int(float64(i+1) * size)
		if i == MaxPoints-1 {
			hi = len(raw)
		}
		var sum float64
		for _, src := range raw[lo:hi] {
			sum += src.Value
		}
		assert.InDelta(t, sum/float64(hi-lo), p.Value, 1e-9, "bucket %d", i)
	}
}

func TestDownsampleLeavesShortSeriesAlone(t *testing.T) {
	raw := []Point{{TS: 1, Value: 1}, {TS: 2, Value: 2}}
	assert.Equal(t, raw, Downsample(raw, MaxPoints))
}

func TestSlotGenerations(t *testing.T) {
	slot := NewSlot()

	state, _ := slot.Snapshot()
	assert.Equal(t, SlotLoading, state)

	first := slot.Begin()
	second := slot.Begin()

	// The superseded fetch result is dropped.
	assert.False(t, slot.Complete(first, []Point{{TS: 1, Value: 1}}))
	state, points := slot.Snapshot()
	assert.Equal(t, SlotLoading, state)
	assert.Empty(t, points)

	assert.True(t, slot.Complete(second, []Point{{TS: 2, Value: 2}}))
	state, points = slot.Snapshot()
	assert.Equal(t, SlotReady, state)
	require.Len(t, points, 1)
	assert.Equal(t, int64(2), points[0].TS)
}

func TestSlotFailKeepsPoints(t *testing.T) {
	slot := NewSlot()
	gen := slot.Begin()
	require.True(t, slot.Complete(gen, []Point{{TS: 1, Value: 1}}))

	gen = slot.Begin()
	require.True(t, slot.Fail(gen))

	state, points := slot.Snapshot()
	assert.Equal(t, SlotFailed, state)
	assert.Len(t, points, 1)
}
