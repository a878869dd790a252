package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsScheduled tracks jobs handed to the queue or sent immediately
	JobsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifier_jobs_scheduled_total",
			Help: "Total number of notification jobs produced",
		},
		[]string{"environment", "trigger"},
	)

	// JobsSentNow tracks already-due jobs executed synchronously
	JobsSentNow = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifier_jobs_sent_now_total",
			Help: "Total number of jobs sent synchronously via forceNow",
		},
		[]string{"environment"},
	)

	// RenderFailures tracks template render failures
	RenderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_notifier_render_failures_total",
			Help: "Total number of template render failures",
		},
	)

	// CollaboratorErrors tracks upstream collaborator failures
	CollaboratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifier_collaborator_errors_total",
			Help: "Total number of billing/paylink/queue/channel call failures",
		},
		[]string{"collaborator"},
	)

	// RateLimitExceeded tracks rate limit violations
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_notifier_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"environment"},
	)

	// ConfigVersion tracks the current config blob version per environment
	ConfigVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_notifier_config_version",
			Help: "Current notification config version",
		},
		[]string{"environment"},
	)

	// ConfigRules tracks the number of rules per environment
	ConfigRules = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_notifier_config_rules",
			Help: "Number of rules in the notification config",
		},
		[]string{"environment"},
	)

	// ConsumerRestarts tracks event consumer restart events
	ConsumerRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_notifier_consumer_restarts_total",
			Help: "Total number of event consumer restarts",
		},
	)
)
