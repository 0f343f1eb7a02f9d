package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kbdlightd"

// PrometheusRecorder implements Recorder using Prometheus metrics
type PrometheusRecorder struct {
	decisions     *prom.CounterVec
	writes        *prom.CounterVec
	writeDuration prom.Histogram
	keyEvents     *prom.CounterVec
	notifications *prom.CounterVec
	level         prom.Gauge
	intent        prom.Gauge
	enabled       prom.Gauge
}

// NewPrometheusRecorder constructs and registers the engine metrics on reg
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	pr := &PrometheusRecorder{
		decisions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Backlight on/off decisions by direction and cause",
		}, []string{"direction", "cause"}),
		writes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "device_writes_total",
			Help:      "Device level writes by result",
		}, []string{"result"}),
		writeDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "device_write_duration_seconds",
			Help:      "Time spent in a single device level write",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		}),
		keyEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "key_events_total",
			Help:      "Key events seen by the activity loop by result",
		}, []string{"result"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "change_notifications_total",
			Help:      "External brightness change notifications by re-query result",
		}, []string{"result"}),
		level: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "level",
			Help:      "Last known brightness level",
		}),
		intent: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "intent_on",
			Help:      "1 when the backlight should be on",
		}),
		enabled: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "enabled",
			Help:      "1 when activity management is enabled",
		}),
	}
	reg.MustRegister(pr.decisions, pr.writes, pr.writeDuration, pr.keyEvents,
		pr.notifications, pr.level, pr.intent, pr.enabled)
	return pr
}

// HTTPHandler serves the metrics registered on reg
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) IncDecision(on bool, cause string) {
	direction := "off"
	if on {
		direction = "on"
	}
	p.decisions.WithLabelValues(direction, cause).Inc()
}

func (p *PrometheusRecorder) IncWrite(success bool) {
	p.writes.WithLabelValues(result(success)).Inc()
}

func (p *PrometheusRecorder) ObserveWriteDuration(d time.Duration) {
	p.writeDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncKeyEvent(r KeyResult) {
	p.keyEvents.WithLabelValues(string(r)).Inc()
}

func (p *PrometheusRecorder) IncNotification(success bool) {
	p.notifications.WithLabelValues(result(success)).Inc()
}

func (p *PrometheusRecorder) SetState(level int, intent, enabled bool) {
	p.level.Set(float64(level))
	p.intent.Set(boolGauge(intent))
	p.enabled.Set(boolGauge(enabled))
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
