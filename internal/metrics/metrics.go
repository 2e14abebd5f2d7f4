// Package metrics holds rankbot's Prometheus collectors.
//
// Collectors are package-level and only record after Register succeeded, so
// packages can call the helpers unconditionally (tests never register).
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "rankbot/pkg/logx"
)

var (
	regOK atomic.Bool

	workerStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankbot",
			Subsystem: "worker",
			Name:      "starts_total",
			Help:      "Number of worker process starts, restarts included.",
		}, []string{"worker"},
	)
	workerRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankbot",
			Subsystem: "worker",
			Name:      "restarts_total",
			Help:      "Number of worker restarts after an exit.",
		}, []string{"worker"},
	)
	workerUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rankbot",
			Subsystem: "worker",
			Name:      "up",
			Help:      "1 while the worker process is alive.",
		}, []string{"worker"},
	)

	itemUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankbot",
			Subsystem: "stats",
			Name:      "item_updates_total",
			Help:      "Item updates by variant and result (ok, transient_5xx, client_http, unexpected).",
		}, []string{"variant", "result"},
	)
	itemChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankbot",
			Subsystem: "stats",
			Name:      "changes_total",
			Help:      "Detected changes by variant.",
		}, []string{"variant"},
	)
	passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rankbot",
			Subsystem: "stats",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one full pass over all blocks, cooldown excluded.",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
	)
)

// Register registers all collectors with r.
// It is safe to call multiple times.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{workerStarts, workerRestarts, workerUp, itemUpdates, itemChanges, passDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

func IncWorkerStart(name string) {
	if regOK.Load() {
		workerStarts.WithLabelValues(name).Inc()
	}
}

func IncWorkerRestart(name string) {
	if regOK.Load() {
		workerRestarts.WithLabelValues(name).Inc()
	}
}

func SetWorkerUp(name string, up bool) {
	if !regOK.Load() {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	workerUp.WithLabelValues(name).Set(v)
}

func IncItemUpdate(variant, result string) {
	if regOK.Load() {
		itemUpdates.WithLabelValues(variant, result).Inc()
	}
}

func IncChange(variant string) {
	if regOK.Load() {
		itemChanges.WithLabelValues(variant).Inc()
	}
}

func ObservePass(d time.Duration) {
	if regOK.Load() {
		passDuration.Observe(d.Seconds())
	}
}

// Serve registers the collectors on the default registry and serves /metrics on
// addr until ctx is done. An empty addr disables the endpoint.
func Serve(ctx context.Context, addr string, log logx.Logger) error {
	if addr == "" {
		return nil
	}
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("metrics endpoint listening", logx.String("addr", addr))

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
