package monitoring

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/embedlab/hooking"
	"github.com/sarchlab/embedlab/lab"
	"github.com/sarchlab/embedlab/lab/deadline"
	"github.com/sarchlab/embedlab/lab/interrupt"
	"github.com/sarchlab/embedlab/lab/memory"
)

// Metrics is a hook that turns lab frames and transitions into Prometheus
// metrics. Register it on a lab.State with AcceptHook.
type Metrics struct {
	gatherer prometheus.Gatherer

	Frames          prometheus.Counter
	Inputs          *prometheus.CounterVec
	Ticks           prometheus.Counter
	ISRDispatches   *prometheus.CounterVec
	ISRLatency      *prometheus.HistogramVec
	DeadlineResults *prometheus.CounterVec
	MemoryOverflows prometheus.Counter

	EventsQueued prometheus.Gauge
	Voltage      prometheus.Gauge
	RPM          prometheus.Gauge
	HeapBytes    prometheus.Gauge
}

// NewMetrics registers the lab metrics against the provided registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedlab_frames_total",
			Help: "Frames stepped, paused or not.",
		}),
		Inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "embedlab_inputs_total",
			Help: "User inputs applied, by kind.",
		}, []string{"input"}),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedlab_ticks_total",
			Help: "Frames that advanced the models.",
		}),
		ISRDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "embedlab_isr_dispatches_total",
			Help: "Events dispatched to the interrupt handler.",
		}, []string{"mode"}),
		ISRLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "embedlab_isr_latency_positions",
			Help:    "Timeline positions between an event becoming ready and its dispatch.",
			Buckets: []float64{0, 2, 5, 10, 25, 50, 100, 150, 200},
		}, []string{"mode"}),
		DeadlineResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "embedlab_deadline_results_total",
			Help: "Resolved deadline tasks by outcome.",
		}, []string{"status"}),
		MemoryOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "embedlab_memory_overflows_total",
			Help: "Stack and heap collisions.",
		}),
		EventsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embedlab_events_queued",
			Help: "Events held by the scheduler, finished ones included.",
		}),
		Voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embedlab_sensor_voltage_volts",
			Help: "Latest sensor sample.",
		}),
		RPM: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embedlab_actuator_rpm",
			Help: "Displayed motor speed.",
		}),
		HeapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "embedlab_memory_heap_bytes",
			Help: "Allocated heap.",
		}),
	}

	collectors := map[string]prometheus.Collector{
		"embedlab_frames_total":           m.Frames,
		"embedlab_inputs_total":           m.Inputs,
		"embedlab_ticks_total":            m.Ticks,
		"embedlab_isr_dispatches_total":   m.ISRDispatches,
		"embedlab_isr_latency_positions":  m.ISRLatency,
		"embedlab_deadline_results_total": m.DeadlineResults,
		"embedlab_memory_overflows_total": m.MemoryOverflows,
		"embedlab_events_queued":          m.EventsQueued,
		"embedlab_sensor_voltage_volts":   m.Voltage,
		"embedlab_actuator_rpm":           m.RPM,
		"embedlab_memory_heap_bytes":      m.HeapBytes,
	}

	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}

	return m, nil
}

// Gatherer returns the Prometheus gatherer associated with the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Func updates the metrics from a hook site.
func (m *Metrics) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case lab.HookPosFrame:
		m.observeFrame(ctx)
	case lab.HookPosInput:
		m.Inputs.WithLabelValues(ctx.Item.(lab.Input).Name()).Inc()
	case interrupt.HookPosDispatch:
		detail := ctx.Detail.(interrupt.DispatchDetail)
		mode := detail.Mode.String()
		m.ISRDispatches.WithLabelValues(mode).Inc()
		m.ISRLatency.WithLabelValues(mode).Observe(float64(detail.Latency))
	case deadline.HookPosResolved:
		status := ctx.Item.(deadline.Status)
		m.DeadlineResults.WithLabelValues(status.String()).Inc()
	case memory.HookPosOverflow:
		m.MemoryOverflows.Inc()
	}
}

func (m *Metrics) observeFrame(ctx hooking.HookCtx) {
	snap := ctx.Item.(lab.Snapshot)
	effects := ctx.Detail.(lab.FrameEffects)

	m.Frames.Inc()
	if effects.Advanced {
		m.Ticks.Inc()
	}

	m.EventsQueued.Set(float64(len(snap.Scheduler.Events)))
	m.Voltage.Set(snap.Sensor.Voltage)
	m.RPM.Set(float64(snap.Actuator.DisplayRPM))
	m.HeapBytes.Set(float64(snap.Memory.Heap))
}

var _ hooking.Hook = (*Metrics)(nil)
