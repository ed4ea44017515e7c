package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutsTotal counts successful connection checkouts.
	CheckoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossdb_pool_checkouts_total",
			Help: "Total number of connection checkouts",
		},
	)
	// InUse is the number of connections currently checked out.
	InUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossdb_pool_in_use",
			Help: "Connections currently checked out",
		},
	)
	// Retained is the number of checked-in connections parked because a
	// ResultSet they produced is still open.
	Retained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crossdb_pool_retained",
			Help: "Checked-in connections held by an open result set",
		},
	)
	// ParksTotal counts checkins that had to park a retained connection.
	ParksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crossdb_pool_retention_parks_total",
			Help: "Checkins parked until their result set closed",
		},
	)
)
