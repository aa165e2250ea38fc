// Package history turns raw host history responses into chart-ready point
// sequences: chronological, deduplicated and capped to a fixed resolution.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/entitycard/remote"
)

// MaxPoints is the resolution cap for one chart series.
const MaxPoints = 100

// Point is one chart sample. The timestamp is milliseconds since the Unix
// epoch, matching what chart front-ends consume directly.
type Point struct {
	TS    int64   `json:"ts"`
	Value float64 `json:"value"`
}

// Provider supplies raw history samples for one entity over a window.
type Provider interface {
	History(ctx context.Context, entityID string, start, end time.Time) ([]remote.RawSample, error)
}

// Sampler fetches and normalizes history series. Fetch failures degrade to an
// empty series so that a chart renders blank instead of breaking the view.
type Sampler struct {
	provider Provider
	logger   zerolog.Logger
	now      func() time.Time
}

func NewSampler(provider Provider, logger zerolog.Logger) *Sampler {
	return &Sampler{provider: provider, logger: logger, now: time.Now}
}

// Fetch retrieves the lookback window for one entity and returns at most
// MaxPoints chronological points. Non-numeric samples are discarded.
func (s *Sampler) Fetch(ctx context.Context, entityID string, hours int) ([]Point, error) {
	if hours <= 0 {
		hours = 24
	}
	end := s.now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	samples, err := s.provider.History(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	return Normalize(samples), nil
}

// Sample is Fetch with failures degraded to an empty series, so a chart
// renders blank instead of breaking the view.
func (s *Sampler) Sample(ctx context.Context, entityID string, hours int) []Point {
	points, err := s.Fetch(ctx, entityID, hours)
	if err != nil {
		s.logger.Warn().Err(err).Str("entity", entityID).Msg("history fetch failed")
		return []Point{}
	}
	return points
}

// Normalize converts raw samples to chart points: numeric values only,
// chronological order, duplicate timestamps collapsed to the last occurrence,
// and the result downsampled to MaxPoints.
func Normalize(samples []remote.RawSample) []Point {
	points := make([]Point, 0, len(samples))
	for _, sample := range samples {
		v, ok := sample.Numeric()
		if !ok {
			continue
		}
		points = append(points, Point{TS: sample.Time.UnixMilli(), Value: v})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].TS < points[j].TS
	})

	deduped := points[:0]
	for _, p := range points {
		if n := len(deduped); n > 0 && deduped[n-1].TS == p.TS {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	return Downsample(deduped, MaxPoints)
}
