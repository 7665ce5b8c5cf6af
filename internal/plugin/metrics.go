// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusDenied    = "denied"
)

// MessagesDelivered counts messages pushed through the viewer pipeline,
// labelled by phase (bulk or stream).
// Use RegisterMetrics to register this with a Prometheus registry.
var MessagesDelivered = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "loglens_pipeline_messages_total",
		Help: "Total number of messages delivered through the pipeline",
	},
	[]string{"phase"},
)

// DecodeResults counts decoder outcomes per plugin.
var DecodeResults = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "loglens_decode_results_total",
		Help: "Total number of decode attempts by plugin and outcome",
	},
	[]string{"plugin", "outcome"},
)

// CommandExecutions counts plugin command executions.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "loglens_command_executions_total",
		Help: "Total number of plugin command executions",
	},
	[]string{"plugin", "command", "status"},
)

// CommandDuration observes plugin command execution duration.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "loglens_command_duration_seconds",
		Help:    "Plugin command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"plugin", "command"},
)

// RegisterMetrics registers this package's metrics with the given
// Prometheus registry. Call once at startup; panics on double registration
// (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(MessagesDelivered)
	reg.MustRegister(DecodeResults)
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
}

// RecordDecode increments the decode outcome counter.
func RecordDecode(plugin, outcome string) {
	DecodeResults.WithLabelValues(plugin, outcome).Inc()
}

// RecordCommandExecution increments the command execution counter.
func RecordCommandExecution(plugin, command, status string) {
	CommandExecutions.WithLabelValues(plugin, command, status).Inc()
}

// RecordCommandDuration records how long a command execution took.
func RecordCommandDuration(plugin, command string, duration time.Duration) {
	CommandDuration.WithLabelValues(plugin, command).Observe(duration.Seconds())
}
