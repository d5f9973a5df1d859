package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus mirrors of the pool counters, exported for scrape alongside
// GetStats.
var (
	metricDevicesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snmpsim_pool_devices_active",
		Help: "Number of live device actors in the registry",
	})

	metricDevicesPeak = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snmpsim_pool_devices_peak",
		Help: "High-water mark of live device actors",
	})

	metricDevicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snmpsim_pool_devices_created_total",
		Help: "Total device actors materialized",
	})

	metricDevicesCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snmpsim_pool_devices_cleaned_total",
		Help: "Total device actors deliberately evicted (idle or shutdown)",
	})

	metricDevicesCrashed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snmpsim_pool_devices_crashed_total",
		Help: "Total device actors that terminated unexpectedly",
	})
)
