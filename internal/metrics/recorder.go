package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

const namespace = "housemocktat"

// Recorder mirrors every reading into prometheus gauges on its own registry.
type Recorder struct {
	reg *prometheus.Registry
	svc ports.HouseService

	temperature prometheus.Gauge
	draw        prometheus.Gauge
	simTime     prometheus.Gauge
	ticks       prometheus.Counter
	power       *prometheus.GaugeVec
	locked      *prometheus.GaugeVec
}

func NewRecorder(svc ports.HouseService, deviceID string) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := prometheus.Labels{"device_id": deviceID}

	return &Recorder{
		reg: reg,
		svc: svc,
		temperature: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "indoor_temperature_celsius",
			Help:        "Indoor air temperature after the last tick.",
			ConstLabels: labels,
		}),
		draw: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "power_draw_kilowatts",
			Help:        "Total household draw including the background load.",
			ConstLabels: labels,
		}),
		simTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "simulated_time_seconds",
			Help:        "Simulated unix time of the last tick.",
			ConstLabels: labels,
		}),
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ticks_total",
			Help:        "Number of ticks published.",
			ConstLabels: labels,
		}),
		power: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "appliance_power_state",
			Help:        "1 when the appliance drew power on the last tick.",
			ConstLabels: labels,
		}, []string{"index", "kind"}),
		locked: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "appliance_power_locked",
			Help:        "1 when the appliance is power locked.",
			ConstLabels: labels,
		}, []string{"index", "kind"}),
	}
}

// Publish implements simulation.Sink.
func (m *Recorder) Publish(_ context.Context, r household.Reading) error {
	m.temperature.Set(r.Temperature)
	m.draw.Set(r.TotalDraw)
	m.simTime.Set(float64(r.Time))
	m.ticks.Inc()

	for _, a := range m.svc.Appliances() {
		idx, kind := strconv.Itoa(a.Index), a.Kind.String()
		on := a.Index < len(r.PowerStates) && r.PowerStates[a.Index]
		m.power.WithLabelValues(idx, kind).Set(boolToFloat(on))
		m.locked.WithLabelValues(idx, kind).Set(boolToFloat(a.State.PowerLocked))
	}
	return nil
}

func (m *Recorder) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
