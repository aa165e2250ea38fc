// Package service drives the periodic refresh cycle: it polls the host state
// store, runs the display pipeline over the snapshot and serves the result.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/history"
	"github.com/timzifer/entitycard/pipeline"
	"github.com/timzifer/entitycard/remote"
	"github.com/timzifer/entitycard/telemetry"
)

// Service owns the refresh loop for one card.
type Service struct {
	logger zerolog.Logger
	client remote.Client

	mu        sync.RWMutex
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	result    pipeline.Result
	metrics   metrics
	telemetry telemetry.Collector

	slotMu sync.Mutex
	slots  map[string]*history.Slot

	sampler *history.Sampler
	view    *viewServer
}

type metrics struct {
	RefreshCount uint64        `json:"refresh_count"`
	LastDuration time.Duration `json:"last_duration"`
	LastSelected int           `json:"last_selected"`
	LastMissing  int           `json:"last_missing"`
	LastDropped  int           `json:"last_dropped"`
	LastRefresh  time.Time     `json:"last_refresh"`
}

// New builds a service from configuration and a host client factory.
func New(cfg *config.Config, logger zerolog.Logger, factory remote.ClientFactory) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if factory == nil {
		return nil, errors.New("client factory must not be nil")
	}
	p, err := pipeline.New(cfg.Card, logger)
	if err != nil {
		return nil, err
	}
	client, err := factory(cfg.Host)
	if err != nil {
		return nil, err
	}
	svc := &Service{
		logger:    logger,
		client:    client,
		cfg:       cfg,
		pipeline:  p,
		slots:     make(map[string]*history.Slot),
		telemetry: telemetry.Noop(),
	}
	svc.sampler = history.NewSampler(client, logger.With().Str("component", "history").Logger())
	return svc, nil
}

// Validate performs a dry-run build of the pipeline without touching the host.
func Validate(cfg *config.Config, logger zerolog.Logger) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}
	_, err := pipeline.New(cfg.Card, logger)
	return err
}

// SetTelemetry configures the collector used for refresh metrics emission.
func (s *Service) SetTelemetry(collector telemetry.Collector) {
	if s == nil {
		return
	}
	if collector == nil {
		collector = telemetry.Noop()
	}
	s.mu.Lock()
	s.telemetry = collector
	s.mu.Unlock()
}

// SetCard replaces the card configuration wholesale. The new configuration is
// compiled before the old one is discarded, so a broken replacement leaves
// the running card untouched.
func (s *Service) SetCard(card *config.CardConfig) error {
	if card == nil {
		return config.ErrMissingCard
	}
	card.Normalize()
	if err := card.Validate(); err != nil {
		return err
	}
	p, err := pipeline.New(card, s.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.Card = card
	s.pipeline = p
	s.mu.Unlock()

	// Chart lookbacks may have changed; loaded series are stale.
	s.slotMu.Lock()
	s.slots = make(map[string]*history.Slot)
	s.slotMu.Unlock()
	return nil
}

// Refresh fetches the full state store and recomputes the display result.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()
	states, err := s.client.States(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	result := s.pipeline.Run(states)
	s.result = result
	s.metrics.RefreshCount++
	s.metrics.LastDuration = time.Since(start)
	s.metrics.LastSelected = result.Selected
	s.metrics.LastMissing = result.Missing
	s.metrics.LastDropped = result.Dropped
	s.metrics.LastRefresh = start
	title := s.cfg.Card.Title
	collector := s.telemetry
	s.mu.Unlock()

	collector.IncRefresh(title)
	collector.IncDropped(title, result.Dropped)
	collector.ObserveRefreshDuration(title, time.Since(start))
	// Groups absent from this result must not keep their previous gauge.
	collector.ResetRecords(title)
	for _, group := range result.Groups {
		collector.SetRecords(title, group.Key, len(group.Records))
	}

	s.logger.Debug().
		Int("selected", result.Selected).
		Int("records", len(result.Records)).
		Int("dropped", result.Dropped).
		Dur("duration", time.Since(start)).
		Msg("refresh complete")
	return nil
}

// Run polls the host until the context is cancelled. The first refresh runs
// immediately so the view has data before the first tick.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial refresh failed")
	}

	interval := s.pollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error().Err(err).Msg("refresh failed")
			}
		}
	}
}

func (s *Service) pollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.PollInterval()
}

// Result returns the outcome of the most recent refresh.
func (s *Service) Result() pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Metrics returns the last recorded refresh metrics.
func (s *Service) Metrics() metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Record returns the current display record for one entity.
func (s *Service) Record(entityID string) (pipeline.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.result.Records {
		if record.EntityID == entityID {
			return record, true
		}
	}
	return pipeline.Record{}, false
}

// RequestChart starts an asynchronous history fetch for one entity and
// returns its slot. Results of superseded requests are dropped by the slot's
// generation check.
func (s *Service) RequestChart(ctx context.Context, entityID string) *history.Slot {
	record, ok := s.Record(entityID)
	hours := 24
	if ok {
		hours = record.GraphHours
	}

	s.slotMu.Lock()
	slot, exists := s.slots[entityID]
	if !exists {
		slot = history.NewSlot()
		s.slots[entityID] = slot
	}
	s.slotMu.Unlock()

	generation := slot.Begin()
	// The fetch must survive the caller's context (typically one HTTP request).
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		points, err := s.sampler.Fetch(fetchCtx, entityID, hours)
		if err != nil {
			s.logger.Warn().Err(err).Str("entity", entityID).Msg("history fetch failed")
			if slot.Fail(generation) {
				s.mu.RLock()
				title := s.cfg.Card.Title
				collector := s.telemetry
				s.mu.RUnlock()
				collector.IncHistoryFailure(title, entityID)
			}
			return
		}
		slot.Complete(generation, points)
	}()
	return slot
}

// ChartSeries returns the slot state and points for one entity, if a chart
// was ever requested for it.
func (s *Service) ChartSeries(entityID string) (history.SlotState, []history.Point, bool) {
	s.slotMu.Lock()
	slot, ok := s.slots[entityID]
	s.slotMu.Unlock()
	if !ok {
		return "", nil, false
	}
	state, points := slot.Snapshot()
	return state, points, true
}

// EnableView starts the optional JSON view server.
func (s *Service) EnableView(listen string) error {
	if s == nil {
		return errors.New("service is nil")
	}
	if s.view != nil {
		return errors.New("view already enabled")
	}
	if listen == "" {
		s.mu.RLock()
		listen = s.cfg.View.Listen
		s.mu.RUnlock()
	}
	if listen == "" {
		listen = ":18080"
	}
	logger := s.logger.With().Str("component", "view").Logger()
	server, err := newViewServer(listen, s, logger)
	if err != nil {
		return err
	}
	s.view = server
	return nil
}

// ViewAddress returns the bound listen address of the view server, if enabled.
func (s *Service) ViewAddress() string {
	if s == nil || s.view == nil {
		return ""
	}
	return s.view.addr()
}

// Close releases the host client and stops the view server.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	if s.view != nil {
		s.view.close()
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
