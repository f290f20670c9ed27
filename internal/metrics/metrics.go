// Package metrics defines Prometheus metrics for the hub and publisher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks the current number of live connections.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Current number of connected overlay clients",
		},
	)

	// HubSubscriptions tracks current subscriptions by channel.
	HubSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_channel_subscriptions",
			Help: "Current subscriptions by channel",
		},
		[]string{"channel"},
	)

	// HubBroadcastsTotal tracks broadcasts by channel.
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcasts by channel",
		},
		[]string{"channel"},
	)

	// HubBroadcastDuration tracks the fan-out time of a single broadcast.
	HubBroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_broadcast_duration_seconds",
			Help:    "Broadcast fan-out duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// HubSlowClientsEvicted counts clients dropped for not keeping up.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total clients evicted because their send buffer was full",
		},
	)

	// HubDroppedFramesTotal counts inbound frames dropped by reason.
	HubDroppedFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_dropped_frames_total",
			Help: "Total inbound frames dropped by reason (malformed, unknown_type, rate_limited)",
		},
		[]string{"reason"},
	)

	// HubCommandChannelDepth tracks queued commands in the hub actor.
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current depth of the hub command channel",
		},
	)

	// HubStopTimeoutsTotal counts hub shutdowns that exceeded the grace period.
	HubStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_stop_timeouts_total",
			Help: "Total hub stops that exceeded the shutdown timeout",
		},
	)

	// HubPanicsTotal counts recovered panics in the hub actor loop.
	HubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_panics_recovered_total",
			Help: "Total panics recovered in the hub actor loop",
		},
	)
)

// Publisher metrics
var (
	// PublishedEventsTotal tracks published envelopes by channel.
	PublishedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_events_total",
			Help: "Total published envelopes by channel",
		},
		[]string{"channel"},
	)

	// AcksReceivedTotal tracks acknowledgments by outcome.
	AcksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_acks_received_total",
			Help: "Total acknowledgments received by outcome (success, failure, stale)",
		},
		[]string{"outcome"},
	)

	// AckTimeoutsTotal counts pending acks reclaimed by timeout.
	AckTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publisher_ack_timeouts_total",
			Help: "Total pending acknowledgments reclaimed by timeout",
		},
	)

	// PendingAcks tracks the current size of the pending-ack table.
	PendingAcks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "publisher_pending_acks",
			Help: "Current number of unacknowledged deliveries",
		},
	)

	// AckRoundTrip tracks publish-to-ack latency in seconds.
	AckRoundTrip = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "publisher_ack_round_trip_seconds",
			Help:    "Publish-to-ack round trip in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// DisconnectCleanupsTotal counts pending acks cleared because a channel
	// lost its last subscriber.
	DisconnectCleanupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publisher_disconnect_cleanups_total",
			Help: "Total pending acks cleared by disconnect-triggered cleanup",
		},
	)
)

// WebSocket transport metrics
var (
	// WebSocketMessageSendDuration tracks per-message write latency.
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// WebSocketPingFailures counts failed keepalive pings.
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures",
		},
	)

	// ConnectionsRejectedTotal counts rejected connection attempts by reason.
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_rejected_total",
			Help: "Total rejected connection attempts by limit reason",
		},
		[]string{"reason"},
	)
)
