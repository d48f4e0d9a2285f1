// Package metrics exposes planner and API metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soltixdb/clusterplan/internal/models"
	"github.com/soltixdb/clusterplan/internal/planerr"
)

const namespace = "clusterplan"

// Metrics holds every collector of the service on its own registry
type Metrics struct {
	registry *prometheus.Registry

	resolveTotal    *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	allocatedNodes  *prometheus.GaugeVec
	downscaled      *prometheus.CounterVec
	quorumChanges   *prometheus.CounterVec
	belowMinRed     *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		resolveTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Cluster resolutions by cluster type and outcome",
		}, []string{"cluster_type", "outcome"}),
		resolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Duration of a planning run covering all requested clusters",
			Buckets:   prometheus.DefBuckets,
		}),
		allocatedNodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allocated_nodes",
			Help:      "Active nodes in the latest plan of a cluster",
		}, []string{"cluster"}),
		downscaled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downscaled_total",
			Help:      "Plans that allocated fewer nodes than requested",
		}, []string{"cluster"}),
		quorumChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quorum_member_changes_total",
			Help:      "Ensemble members joining or retiring",
		}, []string{"cluster", "change"}),
		belowMinRed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "below_min_redundancy",
			Help:      "1 when the latest plan of a cluster cannot reach its minimum redundancy",
		}, []string{"cluster"}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records one planning run and the plans it produced
func (m *Metrics) ObserveRun(started time.Time, plans []*models.ClusterPlan) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(time.Since(started).Seconds())

	for _, p := range plans {
		m.resolveTotal.WithLabelValues(string(p.Cluster.Type), "ok").Inc()
		m.allocatedNodes.WithLabelValues(p.Cluster.ID).Set(float64(p.Allocated))
		if p.Downscaled {
			m.downscaled.WithLabelValues(p.Cluster.ID).Inc()
		}
		if p.Redundancy != nil {
			below := 0.0
			if p.Redundancy.BelowMinRedundancy {
				below = 1
			}
			m.belowMinRed.WithLabelValues(p.Cluster.ID).Set(below)
		}
		if p.Quorum != nil {
			m.quorumChanges.WithLabelValues(p.Cluster.ID, "joining").Add(float64(len(p.Quorum.Joining())))
			m.quorumChanges.WithLabelValues(p.Cluster.ID, "retiring").Add(float64(len(p.Quorum.Retiring())))
		}
	}
}

// ObserveFailure records a failed planning run, labelled by error kind
func (m *Metrics) ObserveFailure(err error) {
	if m == nil {
		return
	}
	kind := strings.ToLower(string(planerr.KindOf(err)))
	if kind == "" {
		kind = "internal"
	}
	m.resolveTotal.WithLabelValues("", kind).Inc()
}

// Forget drops the per-cluster series of a deleted plan
func (m *Metrics) Forget(cluster string) {
	if m == nil {
		return
	}
	m.allocatedNodes.DeleteLabelValues(cluster)
	m.belowMinRed.DeleteLabelValues(cluster)
}

// FiberMiddleware records request counts and durations by route pattern
func (m *Metrics) FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < 400 {
				status = fiber.StatusInternalServerError
			}
		}

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		m.httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}
