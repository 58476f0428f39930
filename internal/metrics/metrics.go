// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WidgetLoadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_load_total",
			Help: "Cumulative number of settled widget loads by outcome.",
		}, []string{"widget", "outcome"})

	WidgetLoadSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_load_seconds",
			Help:    "Time spent inside widget loaders.",
			Buckets: prometheus.DefBuckets,
		}, []string{"widget"})

	WidgetTickSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_tick_skipped_total",
			Help: "Auto-refresh ticks dropped because a load was in flight.",
		}, []string{"widget"})

	WidgetResultDiscardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_result_discarded_total",
			Help: "Load results ignored because the controller stopped or moved on.",
		}, []string{"widget"})

	ActiveControllers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "widget_controllers_active",
			Help: "Number of started, not yet stopped widget controllers.",
		})

	ActiveBoards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_active",
			Help: "Number of homepage boards currently held in memory.",
		})

	BoardCreateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "board_create_total",
			Help: "Cumulative number of boards mounted.",
		})

	BoardEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "board_evict_total",
			Help: "Cumulative number of boards evicted or invalidated.",
		})
)

func init() {
	prometheus.MustRegister(
		WidgetLoadTotal,
		WidgetLoadSeconds,
		WidgetTickSkippedTotal,
		WidgetResultDiscardedTotal,
		ActiveControllers,
		ActiveBoards,
		BoardCreateTotal,
		BoardEvictTotal,
	)
}
