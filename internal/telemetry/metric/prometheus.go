package metric

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Attempt outcomes recorded by ObserveAttempt.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeServer   = "server_error"
	OutcomeNetwork  = "network_error"
	OutcomeTimeout  = "timeout"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Request metrics
	APIAttempts *prometheus.CounterVec
	APIRetries  prometheus.Counter
	APIDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the request client collectors
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		APIAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kasb_api_attempts_total",
			Help: "HTTP attempts made by the request client",
		}, []string{"method", "outcome"}),
		APIRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kasb_api_retries_total",
			Help: "Attempts scheduled after a transient failure",
		}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kasb_api_request_duration_seconds",
			Help:    "Duration of a single HTTP attempt",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"method"}),
	}

	r.reg.MustRegister(r.APIAttempts, r.APIRetries, r.APIDuration)
	return r
}

// Prometheus exposes the underlying registry so other components (the
// storage engine) can register collectors on it.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// ObserveAttempt records one finished attempt. Safe on a nil Registry.
func (r *Registry) ObserveAttempt(method, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.APIAttempts.WithLabelValues(method, outcome).Inc()
	r.APIDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncRetry records a retry. Safe on a nil Registry.
func (r *Registry) IncRetry() {
	if r == nil {
		return
	}
	r.APIRetries.Inc()
}

// Sample is a flattened metric value, one per label combination.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers every registered family and flattens it into samples
// sorted by name and labels. Histograms report their sample count.
func (r *Registry) Snapshot() ([]Sample, error) {
	if r == nil {
		return nil, nil
	}
	families, err := r.reg.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: formatLabels(m.GetLabel()),
				Value:  sampleValue(mf.GetType(), m),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return m.GetUntyped().GetValue()
	}
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, lp := range pairs {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	return strings.Join(parts, ",")
}
