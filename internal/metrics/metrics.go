package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinesReceived counts inbound lines by parsed kind.
	LinesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyromancer_lines_received_total",
			Help: "Inbound protocol lines by kind",
		},
		[]string{"kind"},
	)

	// HandlerRuns counts handler invocations by command id.
	HandlerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyromancer_handler_runs_total",
			Help: "Handler invocations by command id",
		},
		[]string{"command"},
	)

	// DispatchErrors counts failed handler runs and timer firings.
	DispatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyromancer_dispatch_errors_total",
			Help: "Errors returned while dispatching lines or firing timers",
		},
		[]string{"source"},
	)

	TimersFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyromancer_timers_fired_total",
		Help: "Timers fired by the scheduler",
	})

	TimersPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyromancer_timers_pending",
		Help: "Timers waiting in the scheduler",
	})

	// MessagesSent counts outbound lines by kind (privmsg or raw).
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pyromancer_messages_sent_total",
			Help: "Outbound lines written to the server",
		},
		[]string{"kind"},
	)

	TrackedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyromancer_tracked_users",
		Help: "Users currently held in the membership store",
	})

	TrackedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyromancer_tracked_channels",
		Help: "Channels currently held in the membership store",
	})

	// TickDuration is how long one iteration of the dispatch loop took.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyromancer_tick_seconds",
		Help:    "Duration of one dispatch loop tick",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
	})

	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyromancer_connected",
		Help: "Whether the bot finished registration with the server (1) or not (0)",
	})
)
