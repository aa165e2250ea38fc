package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the refresh loop.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with the refresh cycle.
type Collector interface {
	IncRefresh(card string)
	SetRecords(card, group string, count int)
	ResetRecords(card string)
	IncDropped(card string, count int)
	IncHistoryFailure(card, entity string)
	ObserveRefreshDuration(card string, d time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncRefresh(string)                            {}
func (noopCollector) SetRecords(string, string, int)               {}
func (noopCollector) ResetRecords(string)                          {}
func (noopCollector) IncDropped(string, int)                       {}
func (noopCollector) IncHistoryFailure(string, string)             {}
func (noopCollector) ObserveRefreshDuration(string, time.Duration) {}

// PrometheusCollector exposes refresh telemetry via Prometheus.
type PrometheusCollector struct {
	refreshes       *prometheus.CounterVec
	records         *prometheus.GaugeVec
	dropped         *prometheus.CounterVec
	historyFailures *prometheus.CounterVec
	refreshSeconds  *prometheus.GaugeVec
}

var (
	refreshCounter         *prometheus.CounterVec
	refreshCounterLock     sync.Mutex
	recordGauge            *prometheus.GaugeVec
	recordGaugeLock        sync.Mutex
	droppedCounter         *prometheus.CounterVec
	droppedCounterLock     sync.Mutex
	historyFailCounter     *prometheus.CounterVec
	historyFailCounterLock sync.Mutex
	refreshDurationGauge   *prometheus.GaugeVec
	refreshDurationLock    sync.Mutex
)

func registerCounterVec(reg prometheus.Registerer, target **prometheus.CounterVec, lock *sync.Mutex, opts prometheus.CounterOpts, labels []string) error {
	lock.Lock()
	defer lock.Unlock()
	if *target != nil {
		return nil
	}
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return err
		}
		*target = existing
		return nil
	}
	*target = counter
	return nil
}

func registerGaugeVec(reg prometheus.Registerer, target **prometheus.GaugeVec, lock *sync.Mutex, opts prometheus.GaugeOpts, labels []string) error {
	lock.Lock()
	defer lock.Unlock()
	if *target != nil {
		return nil
	}
	gauge := prometheus.NewGaugeVec(opts, labels)
	if err := reg.Register(gauge); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		existing, ok := already.ExistingCollector.(*prometheus.GaugeVec)
		if !ok {
			return err
		}
		*target = existing
		return nil
	}
	*target = gauge
	return nil
}

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	if err := registerCounterVec(reg, &refreshCounter, &refreshCounterLock, prometheus.CounterOpts{
		Name: "entitycard_refresh_total",
		Help: "Number of refresh cycles executed per card.",
	}, []string{"card"}); err != nil {
		return nil, err
	}

	if err := registerGaugeVec(reg, &recordGauge, &recordGaugeLock, prometheus.GaugeOpts{
		Name: "entitycard_records",
		Help: "Number of display records produced in the last refresh, per group.",
	}, []string{"card", "group"}); err != nil {
		return nil, err
	}

	if err := registerCounterVec(reg, &droppedCounter, &droppedCounterLock, prometheus.CounterOpts{
		Name: "entitycard_dropped_total",
		Help: "Number of entities dropped for invalid or non-numeric states.",
	}, []string{"card"}); err != nil {
		return nil, err
	}

	if err := registerCounterVec(reg, &historyFailCounter, &historyFailCounterLock, prometheus.CounterOpts{
		Name: "entitycard_history_failures_total",
		Help: "Number of failed history fetches per entity.",
	}, []string{"card", "entity"}); err != nil {
		return nil, err
	}

	if err := registerGaugeVec(reg, &refreshDurationGauge, &refreshDurationLock, prometheus.GaugeOpts{
		Name: "entitycard_refresh_duration_seconds",
		Help: "Wall-clock duration of the last refresh cycle.",
	}, []string{"card"}); err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		refreshes:       refreshCounter,
		records:         recordGauge,
		dropped:         droppedCounter,
		historyFailures: historyFailCounter,
		refreshSeconds:  refreshDurationGauge,
	}, nil
}

// IncRefresh increments the refresh counter for a card.
func (p *PrometheusCollector) IncRefresh(card string) {
	if p == nil || p.refreshes == nil {
		return
	}
	p.refreshes.WithLabelValues(card).Inc()
}

// SetRecords updates the record gauge for one group of a card.
func (p *PrometheusCollector) SetRecords(card, group string, count int) {
	if p == nil || p.records == nil {
		return
	}
	p.records.WithLabelValues(card, group).Set(float64(count))
}

// ResetRecords removes all group gauges of a card. Called before a refresh
// re-populates them so that groups absent from the new result do not keep a
// stale value.
func (p *PrometheusCollector) ResetRecords(card string) {
	if p == nil || p.records == nil {
		return
	}
	p.records.DeletePartialMatch(prometheus.Labels{"card": card})
}

// IncDropped records entities suppressed during a refresh.
func (p *PrometheusCollector) IncDropped(card string, count int) {
	if p == nil || p.dropped == nil || count == 0 {
		return
	}
	p.dropped.WithLabelValues(card).Add(float64(count))
}

// IncHistoryFailure records one failed history fetch.
func (p *PrometheusCollector) IncHistoryFailure(card, entity string) {
	if p == nil || p.historyFailures == nil {
		return
	}
	p.historyFailures.WithLabelValues(card, entity).Inc()
}

// ObserveRefreshDuration stores the duration of the last refresh cycle.
func (p *PrometheusCollector) ObserveRefreshDuration(card string, d time.Duration) {
	if p == nil || p.refreshSeconds == nil {
		return
	}
	p.refreshSeconds.WithLabelValues(card).Set(d.Seconds())
}
