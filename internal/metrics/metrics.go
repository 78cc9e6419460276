// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assets_item_mutations_total",
		Help: "Item mutations committed, by kind",
	}, []string{"kind"})

	ReconcileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assets_reconcile_failures_total",
		Help: "Nested record replacements that were skipped or failed, by record kind and reason",
	}, []string{"kind", "reason"})

	NotificationsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assets_notifications_persisted_total",
		Help: "Notification rows written by fan-out",
	})

	FanoutFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assets_fanout_failures_total",
		Help: "Fan-out batches that failed to persist",
	})

	LiveDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assets_live_deliveries_total",
		Help: "Live channel deliveries by result",
	}, []string{"result"})

	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assets_realtime_connections",
		Help: "Currently registered live connections",
	})

	WebPushSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assets_webpush_sends_total",
		Help: "Web push attempts by result",
	}, []string{"result"})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assets_event_publish_failures_total",
		Help: "Item events the bus publisher could not deliver",
	})
)
