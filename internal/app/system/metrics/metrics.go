// Package metrics records calendar outcomes.
//
// The engine talks to a Collector. Nop discards everything and is what
// tests use; Prometheus registers its collectors lazily on first use.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector receives calendar events.
type Collector interface {
	// ObserveOperation records one finished operation. result is "ok" or
	// the error code.
	ObserveOperation(op, result string, took time.Duration)
	// RecordRejection counts a business rejection by code.
	RecordRejection(code string)
	// RecordLeaseContention counts a confirm that lost the lease race.
	RecordLeaseContention()
	// RecordLeasesReaped counts expired leases restored by the reaper.
	RecordLeasesReaped(n int)
}

// Nop discards all metrics.
type Nop struct{}

var _ Collector = Nop{}

func NewNop() Nop { return Nop{} }

func (Nop) ObserveOperation(string, string, time.Duration) {}
func (Nop) RecordRejection(string)                         {}
func (Nop) RecordLeaseContention()                         {}
func (Nop) RecordLeasesReaped(int)                         {}

// Prometheus is a Collector backed by client_golang.
type Prometheus struct {
	reg       prometheus.Registerer
	gatherer  prometheus.Gatherer
	namespace string
	once      sync.Once

	operations      *prometheus.CounterVec
	operationTime   *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	leaseContention prometheus.Counter
	leasesReaped    prometheus.Counter
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus returns a collector registering into reg. A nil reg uses a
// fresh registry; an empty namespace uses "sevadesk".
func NewPrometheus(reg *prometheus.Registry, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "sevadesk"
	}
	return &Prometheus{reg: reg, gatherer: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.operations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "calendar",
			Name:      "operations_total",
			Help:      "Calendar operations by operation and result code.",
		}, []string{"op", "result"})
		p.operationTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "calendar",
			Name:      "operation_seconds",
			Help:      "Calendar operation latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}, []string{"op"})
		p.rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "calendar",
			Name:      "rejections_total",
			Help:      "Business rejections by code.",
		}, []string{"code"})
		p.leaseContention = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "calendar",
			Name:      "lease_contention_total",
			Help:      "Confirms that found the group already held.",
		})
		p.leasesReaped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "calendar",
			Name:      "leases_reaped_total",
			Help:      "Expired confirm leases restored by the reaper.",
		})

		p.reg.MustRegister(p.operations)
		p.reg.MustRegister(p.operationTime)
		p.reg.MustRegister(p.rejections)
		p.reg.MustRegister(p.leaseContention)
		p.reg.MustRegister(p.leasesReaped)
	})
}

func (p *Prometheus) ObserveOperation(op, result string, took time.Duration) {
	p.ensureRegistered()
	p.operations.WithLabelValues(op, result).Inc()
	p.operationTime.WithLabelValues(op).Observe(took.Seconds())
}

func (p *Prometheus) RecordRejection(code string) {
	p.ensureRegistered()
	p.rejections.WithLabelValues(code).Inc()
}

func (p *Prometheus) RecordLeaseContention() {
	p.ensureRegistered()
	p.leaseContention.Inc()
}

func (p *Prometheus) RecordLeasesReaped(n int) {
	if n <= 0 {
		return
	}
	p.ensureRegistered()
	p.leasesReaped.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	p.ensureRegistered()
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
