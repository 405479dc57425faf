package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics wraps the three instruments the controller exercises. Constructed
// with an injected prometheus.Registerer so tests can pass
// prometheus.NewRegistry() instead of mutating the global default
// registry.
type Metrics struct {
	PointsServed   prometheus.Counter
	NodesVisited   prometheus.Counter
	ActiveRequests prometheus.Gauge
}

// NewMetrics registers and returns the controller's instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PointsServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pointcloud_profile_points_served_total",
			Help: "Total number of points emitted by profile extraction across all sources.",
		}),
		NodesVisited: factory.NewCounter(prometheus.CounterOpts{
			Name: "pointcloud_profile_nodes_visited_total",
			Help: "Total number of octree nodes promoted to filtering by profile extraction.",
		}),
		ActiveRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pointcloud_profile_active_requests",
			Help: "Number of profile extraction requests currently in flight.",
		}),
	}
}
