// Package metrics holds the Prometheus collectors for the diagnostics engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry owns a private Prometheus registry and every routedash collector.
type Registry struct {
	reg *prometheus.Registry

	StepDuration  *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
	Rebuilds      *prometheus.CounterVec
	FitRows       prometheus.Gauge
	ModelR2       prometheus.Gauge
	LetterWeight  *prometheus.GaugeVec
	CatchupDays   prometheus.Gauge
	Dismissed     prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
	HTTPRateLimit prometheus.Counter
}

// NewRegistry creates and registers every collector. Each call returns an
// independent registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routedash_step_duration_seconds",
				Help:    "Duration of each diagnostics pipeline step in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"step", "result"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedash_cache_lookups_total",
				Help: "Cache lookups by cache and outcome",
			},
			[]string{"cache", "outcome"},
		),
		Rebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedash_rebuilds_total",
				Help: "Pipeline rebuilds by trigger",
			},
			[]string{"trigger"},
		),
		FitRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routedash_fit_rows",
			Help: "Rows used in the latest model fit",
		}),
		ModelR2: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routedash_model_r2",
			Help: "Display R² of the latest model, clamped to [0, 1]",
		}),
		LetterWeight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "routedash_letter_weight",
				Help: "Persisted letter weight by learning strategy",
			},
			[]string{"strategy"},
		),
		CatchupDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routedash_holiday_catchup_days",
			Help: "Days flagged as holiday catch-up in the latest rebuild",
		}),
		Dismissed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "routedash_dismissed_days",
			Help: "Residual days currently dismissed",
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routedash_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		HTTPRateLimit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "routedash_http_rate_limited_total",
			Help: "HTTP requests rejected by the rate limiter",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		r.StepDuration,
		r.CacheLookups,
		r.Rebuilds,
		r.FitRows,
		r.ModelR2,
		r.LetterWeight,
		r.CatchupDays,
		r.Dismissed,
		r.HTTPRequests,
		r.HTTPRateLimit,
	)
	return r
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// StepTimer tracks execution time for one pipeline step.
type StepTimer struct {
	r     *Registry
	step  string
	start time.Time
}

// StartStep begins timing a pipeline step. A nil registry yields a no-op timer.
func (r *Registry) StartStep(step string) *StepTimer {
	return &StepTimer{r: r, step: step, start: time.Now()}
}

// Stop records the step duration under result.
func (t *StepTimer) Stop(result string) {
	d := time.Since(t.start)
	if t.r != nil {
		t.r.StepDuration.WithLabelValues(t.step, result).Observe(d.Seconds())
	}
	log.Debug().Str("step", t.step).Str("result", result).Dur("duration", d).Msg("Pipeline step completed")
}

// CacheHit records a hit for cache.
func (r *Registry) CacheHit(cache string) {
	if r != nil {
		r.CacheLookups.WithLabelValues(cache, "hit").Inc()
	}
}

// CacheMiss records a miss for cache.
func (r *Registry) CacheMiss(cache string) {
	if r != nil {
		r.CacheLookups.WithLabelValues(cache, "miss").Inc()
	}
}

// Rebuild counts a pipeline rebuild.
func (r *Registry) Rebuild(trigger string) {
	if r != nil {
		r.Rebuilds.WithLabelValues(trigger).Inc()
	}
}

// HTTPRequest counts one served request.
func (r *Registry) HTTPRequest(route string, code int) {
	if r != nil {
		r.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	}
}

// RateLimited counts one request rejected by the limiter.
func (r *Registry) RateLimited() {
	if r != nil {
		r.HTTPRateLimit.Inc()
	}
}
