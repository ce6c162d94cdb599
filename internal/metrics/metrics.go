// Package metrics exports simulation activity to Prometheus.
// The Collector is an engine observer; everything it reports comes from notifications.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/everforgeworks/protocell/internal/game"
)

// Collector gathers simulation metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	notifications *prometheus.CounterVec
	ticks         prometheus.Gauge
	amount        *prometheus.GaugeVec
	capacity      *prometheus.GaugeVec
	rate          *prometheus.GaugeVec
	level         *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "protocell",
			Name:      "notifications_total",
			Help:      "State change notifications by reason.",
		}, []string{"reason"}),
		ticks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "protocell",
			Name:      "ticks_applied",
			Help:      "Simulation steps applied since start.",
		}),
		amount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "protocell",
			Name:      "resource_amount",
			Help:      "Current stock of each unlocked resource.",
		}, []string{"resource"}),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "protocell",
			Name:      "resource_capacity",
			Help:      "Capacity of each unlocked resource.",
		}, []string{"resource"}),
		rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "protocell",
			Name:      "resource_rate",
			Help:      "Accumulation per second of each unlocked resource.",
		}, []string{"resource"}),
		level: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "protocell",
			Name:      "upgrade_level",
			Help:      "Levels purchased per upgrade.",
		}, []string{"upgrade"}),
	}
	c.registry.MustRegister(c.notifications, c.ticks, c.amount, c.capacity, c.rate, c.level)
	return c
}

// OnStateChanged implements game.Observer.
func (c *Collector) OnStateChanged(n game.Notification) {
	c.notifications.WithLabelValues(string(n.Reason)).Inc()
	c.ticks.Set(float64(n.Snapshot.Ticks))

	for _, r := range n.Snapshot.Resources {
		if !r.Unlocked {
			continue
		}
		c.amount.WithLabelValues(r.ID).Set(r.Amount)
		c.capacity.WithLabelValues(r.ID).Set(r.Capacity)
		c.rate.WithLabelValues(r.ID).Set(r.Rate)
	}
	for _, u := range n.Snapshot.Upgrades {
		c.level.WithLabelValues(u.ID).Set(float64(u.Count))
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
