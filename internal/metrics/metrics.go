package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JD-Gaming/jd-gaming/internal/dispatch"
	"github.com/JD-Gaming/jd-gaming/internal/evo"
	"github.com/JD-Gaming/jd-gaming/internal/model"
)

const namespace = "jdgame"

// Job outcomes used as the "outcome" label.
const (
	OutcomeScored    = "scored"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Collector exposes worker pool and generation metrics of one training run.
// It implements dispatch.Observer.
type Collector struct {
	registry *prometheus.Registry

	jobsStarted  prometheus.Counter
	jobsFinished *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	inFlight     prometheus.Gauge
	generation   prometheus.Gauge
	bestScore    prometheus.Gauge
	meanScore    prometheus.Gauge
	level        prometheus.Gauge
}

var _ dispatch.Observer = (*Collector)(nil)

// New builds a collector on its own registry. Every series carries the task
// name as a constant label.
func New(task string) *Collector {
	labels := prometheus.Labels{"task": task}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pool", Name: "jobs_started_total",
			Help: "Evaluation jobs taken by a worker.", ConstLabels: labels,
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pool", Name: "jobs_finished_total",
			Help: "Evaluation jobs completed, by outcome.", ConstLabels: labels,
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pool", Name: "job_duration_seconds",
			Help: "Time a worker spent on one job.", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "jobs_in_flight",
			Help: "Jobs currently being evaluated.", ConstLabels: labels,
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "generation",
			Help: "Last completed generation.", ConstLabels: labels,
		}),
		bestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "best_score",
			Help: "Best score of the last completed generation.", ConstLabels: labels,
		}),
		meanScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "mean_score",
			Help: "Mean valid score of the last completed generation.", ConstLabels: labels,
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "curriculum_level",
			Help: "Current curriculum level of the task.", ConstLabels: labels,
		}),
	}
	c.registry.MustRegister(
		c.jobsStarted, c.jobsFinished, c.jobDuration, c.inFlight,
		c.generation, c.bestScore, c.meanScore, c.level,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) JobStarted(int, *dispatch.Job) {
	c.jobsStarted.Inc()
	c.inFlight.Inc()
}

func (c *Collector) JobFinished(_ int, job *dispatch.Job) {
	c.inFlight.Dec()
	c.jobDuration.Observe(job.Elapsed.Seconds())
	c.jobsFinished.WithLabelValues(Outcome(job)).Inc()
}

// Outcome classifies a finished job.
func Outcome(job *dispatch.Job) string {
	switch {
	case job.Cancelled:
		return OutcomeCancelled
	case job.Err != nil:
		return OutcomeFailed
	default:
		return OutcomeScored
	}
}

// ObserveGeneration records the diagnostics of a completed generation.
// Generations without a valid score leave the score gauges untouched.
func (c *Collector) ObserveGeneration(d model.GenerationDiagnostics) {
	c.generation.Set(float64(d.Generation))
	c.level.Set(float64(d.Level))
	if d.Scored > 0 && evo.Valid(d.BestScore) {
		c.bestScore.Set(d.BestScore)
		c.meanScore.Set(d.MeanScore)
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry}))
	return mux
}

// Serve exposes /metrics on addr until ctx is done. It returns once the
// listener is bound; errors after that are logged.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) (net.Addr, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: c.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", ln.Addr().String(), "err", err)
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr(), nil
}
