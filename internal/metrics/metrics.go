// Package metrics exposes the monitor's state as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storewatch/internal/probe"
)

// Collector registers and updates all storewatch metrics on its own
// registry, keeping the default registry untouched for tests.
type Collector struct {
	registry *prometheus.Registry

	storeUp      *prometheus.GaugeVec
	storeLatency *prometheus.GaugeVec
	probesTotal  *prometheus.CounterVec
	cyclesTotal  prometheus.Counter
	flipsTotal   prometheus.Counter
}

// NewCollector builds a collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		storeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storewatch_store_up",
			Help: "Whether the store passed the quorum check this cycle (1=online).",
		}, []string{"store", "ip"}),
		storeLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "storewatch_store_latency_seconds",
			Help: "Average latency of successful probes in the last cycle.",
		}, []string{"store", "ip"}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storewatch_probes_total",
			Help: "Probe samples by outcome.",
		}, []string{"result"}),
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storewatch_cycles_total",
			Help: "Completed polling cycles.",
		}),
		flipsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storewatch_status_flips_total",
			Help: "Online/offline transitions observed.",
		}),
	}
	c.registry.MustRegister(c.storeUp, c.storeLatency, c.probesTotal, c.cyclesTotal, c.flipsTotal)
	return c
}

// ObserveVerdict records one store's cycle verdict.
func (c *Collector) ObserveVerdict(number, addr string, v probe.Verdict) {
	up := 0.0
	if v.Online {
		up = 1
	}
	c.storeUp.WithLabelValues(number, addr).Set(up)
	if v.HasLatency() {
		c.storeLatency.WithLabelValues(number, addr).Set(v.AvgLatency.Seconds())
	}
	c.probesTotal.WithLabelValues("success").Add(float64(v.SuccessCount))
}

// ObserveFailures records failed probe samples. Unresolved stores dispatch
// no samples and add nothing here.
func (c *Collector) ObserveFailures(n int) {
	if n > 0 {
		c.probesTotal.WithLabelValues("failure").Add(float64(n))
	}
}

// CycleCompleted bumps the cycle counter.
func (c *Collector) CycleCompleted() {
	c.cyclesTotal.Inc()
}

// Flip records one status transition.
func (c *Collector) Flip() {
	c.flipsTotal.Inc()
}

// Drop removes the per-store series for a deleted store.
func (c *Collector) Drop(number string) {
	c.storeUp.DeletePartialMatch(prometheus.Labels{"store": number})
	c.storeLatency.DeletePartialMatch(prometheus.Labels{"store": number})
}

// Handler serves the collector's registry in the exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve runs an HTTP server for /metrics until the context is cancelled.
func Serve(ctx context.Context, addr string, collector *Collector) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}
