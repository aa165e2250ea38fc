package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/history"
	"github.com/timzifer/entitycard/localize"
	"github.com/timzifer/entitycard/pipeline"
)

// viewServer exposes the current display result as JSON for external
// renderers and debugging.
type viewServer struct {
	logger  zerolog.Logger
	service *Service
	server  *http.Server
	ln      net.Listener
}

type viewStateResponse struct {
	Title   string      `json:"title,omitempty"`
	Layout  string      `json:"layout"`
	Display viewDisplay `json:"display"`
	Records []viewEntry `json:"records"`
	Groups  []viewGroup `json:"groups"`
	Empty   string      `json:"empty,omitempty"`
	Metrics metrics     `json:"metrics"`
}

// viewDisplay carries the resolved presentation switches so renderers do not
// re-implement the flag defaults.
type viewDisplay struct {
	Columns         int    `json:"columns"`
	Theme           string `json:"theme,omitempty"`
	ShowHeader      bool   `json:"show_header"`
	ShowIcon        bool   `json:"show_icon"`
	ShowName        bool   `json:"show_name"`
	ShowState       bool   `json:"show_state"`
	ShowUnit        bool   `json:"show_unit"`
	ShowLastChanged bool   `json:"show_last_changed"`
	ShowGraph       bool   `json:"show_graph"`
}

type viewEntry struct {
	pipeline.Record
	LastChangedMS int64 `json:"last_changed_ms"`
}

type viewGroup struct {
	Key     string      `json:"key"`
	Title   string      `json:"title"`
	Records []viewEntry `json:"records"`
}

type viewHistoryResponse struct {
	EntityID string          `json:"entity_id"`
	State    string          `json:"state"`
	Points   []history.Point `json:"points"`
}

func newViewServer(listen string, svc *Service, logger zerolog.Logger) (*viewServer, error) {
	mux := http.NewServeMux()
	server := &viewServer{logger: logger, service: svc}
	mux.HandleFunc("/api/state", server.handleState)
	mux.HandleFunc("/api/history/", server.handleHistory)
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux}
	server.server = srv
	server.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("view server stopped")
		}
	}()

	logger.Info().Str("listen", ln.Addr().String()).Msg("view started")
	return server, nil
}

func toViewEntry(record pipeline.Record) viewEntry {
	entry := viewEntry{Record: record}
	if !record.LastChanged.IsZero() {
		entry.LastChangedMS = record.LastChanged.UnixMilli()
	}
	return entry
}

func (s *viewServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = localize.DefaultLanguage
	}

	result := s.service.Result()
	s.service.mu.RLock()
	card := s.service.cfg.Card
	s.service.mu.RUnlock()

	records := make([]viewEntry, 0, len(result.Records))
	for _, record := range result.Records {
		records = append(records, toViewEntry(record))
	}
	groups := make([]viewGroup, 0, len(result.Groups))
	for _, group := range result.Groups {
		entries := make([]viewEntry, 0, len(group.Records))
		for _, record := range group.Records {
			entries = append(entries, toViewEntry(record))
		}
		groups = append(groups, viewGroup{
			Key:     group.Key,
			Title:   localize.GroupTitle(group.Key, lang),
			Records: entries,
		})
	}

	resp := viewStateResponse{
		Layout: string(card.Layout),
		Display: viewDisplay{
			Columns:         card.Columns,
			Theme:           card.Theme,
			ShowHeader:      config.Show(card.ShowHeader, true),
			ShowIcon:        config.Show(card.ShowIcon, true),
			ShowName:        config.Show(card.ShowName, true),
			ShowState:       config.Show(card.ShowState, true),
			ShowUnit:        config.Show(card.ShowUnit, true),
			ShowLastChanged: config.Show(card.ShowLastChanged, false),
			ShowGraph:       config.Show(card.ShowGraph, false),
		},
		Records: records,
		Groups:  groups,
		Metrics: s.service.Metrics(),
	}
	if card.Title != "" {
		resp.Title = card.Title
	}
	if len(records) == 0 {
		resp.Empty = localize.Localize("empty_no_entities", lang)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error().Err(err).Msg("encode view state")
	}
}

func (s *viewServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entityID := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if entityID == "" || strings.Contains(entityID, "/") {
		http.NotFound(w, r)
		return
	}

	state, points, ok := s.service.ChartSeries(entityID)
	if !ok {
		slot := s.service.RequestChart(r.Context(), entityID)
		state, points = slot.Snapshot()
	}

	resp := viewHistoryResponse{EntityID: entityID, State: string(state), Points: points}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error().Err(err).Str("entity", entityID).Msg("encode history response")
	}
}

func (s *viewServer) addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *viewServer) close() {
	if s == nil || s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil && err != context.Canceled {
		s.logger.Error().Err(err).Msg("shutdown view")
	}
}
