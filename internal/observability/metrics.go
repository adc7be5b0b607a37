package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "slot"

// Metrics holds the spin counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	spins    *prometheus.CounterVec
	wins     *prometheus.CounterVec
	rejected *prometheus.CounterVec
	balance  prometheus.Gauge
	duration prometheus.Histogram
}

// NewMetrics registers the slot collectors and the Go runtime collectors on
// a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		spins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Completed spins by outcome.",
		}, []string{"outcome"}),
		wins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wins_total",
			Help:      "Winning spins by symbol.",
		}, []string{"symbol"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_rejected_total",
			Help:      "Spin requests declined before starting.",
		}, []string{"reason"}),
		balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance",
			Help:      "Displayed credit balance.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spin_duration_seconds",
			Help:      "Wall time of a spin including animation and credit ramp.",
			Buckets:   []float64{0.5, 1, 1.5, 2, 3, 5, 10},
		}),
	}
}

// RecordSpin counts a completed spin.
func (m *Metrics) RecordSpin(win bool, symbol string, elapsed time.Duration) {
	outcome := "loss"
	if win {
		outcome = "win"
		m.wins.WithLabelValues(symbol).Inc()
	}
	m.spins.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// RecordRejected counts a declined spin request.
func (m *Metrics) RecordRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// RecordBalance sets the balance gauge.
func (m *Metrics) RecordBalance(balance int64) {
	m.balance.Set(float64(balance))
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// MetricsServer exposes a Metrics handler over HTTP. It implements
// server.Service.
type MetricsServer struct {
	addr   string
	logger *zap.Logger
	srv    *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewMetricsServer creates a server for m on addr at path.
//
// Precondition: addr must be a valid listen address; path must start with "/".
func NewMetricsServer(addr, path string, m *Metrics, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return &MetricsServer{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start listens and serves until Stop is called.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, or nil before Start has listened.
func (s *MetricsServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down, waiting up to five seconds for in-flight scrapes.
func (s *MetricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics shutdown", zap.Error(err))
	}
}
