package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/metrics"
	"github.com/vhvplatform/go-billing-notifier/internal/repository"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
)

// BillingClient loads subscription context from the billing platform.
type BillingClient interface {
	GetSubscriptionContext(ctx context.Context, subscriptionID string) (*domain.SubscriptionContext, error)
}

// PaylinkClient idempotently ensures a payment link for a subscription:
// create if absent, no-op if present.
type PaylinkClient interface {
	EnsurePaymentLink(ctx context.Context, subscriptionID string) (*domain.PaymentLink, error)
}

// JobQueue receives job descriptors; ownership transfers at enqueue.
type JobQueue interface {
	Enqueue(ctx context.Context, job *domain.ScheduledJob) (string, error)
}

// Channel delivers an already-due job synchronously (the forceNow path).
type Channel interface {
	SendNow(ctx context.Context, job *domain.ScheduledJob) (string, error)
}

// Dispatcher orchestrates the engine for one subscription: resolve rules,
// compute fire times, render, and hand jobs to the queue. Per-rule and
// per-job failures are isolated and logged; callers only see the
// aggregate count.
type Dispatcher struct {
	store    repository.Store
	billing  BillingClient
	paylink  PaylinkClient
	queue    JobQueue
	channel  Channel
	offsets  OffsetScheduler
	renderer Renderer
	log      *logger.Logger
	now      func() time.Time
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(store repository.Store, billing BillingClient, paylink PaylinkClient, queue JobQueue, channel Channel, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		billing: billing,
		paylink: paylink,
		queue:   queue,
		channel: channel,
		log:     log,
		now:     time.Now,
	}
}

// ScheduleForSubscription schedules due-date notifications for one
// subscription and returns the number of jobs produced. Re-invoking it
// recomputes and re-emits from scratch; deduplication, if any, belongs to
// the external queue.
func (d *Dispatcher) ScheduleForSubscription(ctx context.Context, subscriptionID string, env domain.Environment, forceNow bool) (int, error) {
	return d.ScheduleForTrigger(ctx, env, domain.TriggerSubscriptionDue, subscriptionID, forceNow)
}

// ScheduleForTrigger runs the scheduling pipeline for any lifecycle
// trigger. The anchor is the due date for due-reminder rules and the
// current time for payment events, which fire relative to the event
// itself.
func (d *Dispatcher) ScheduleForTrigger(ctx context.Context, env domain.Environment, trigger domain.TriggerType, subscriptionID string, forceNow bool) (int, error) {
	sub, err := d.billing.GetSubscriptionContext(ctx, subscriptionID)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("billing").Inc()
		return 0, err
	}

	cfg, err := d.store.Get(ctx, env)
	if err != nil {
		return 0, err
	}

	rules := Resolve(cfg, trigger, sub)
	if len(rules) == 0 {
		d.log.Debug("No rules matched", "environment", env, "trigger", trigger, "subscription_id", subscriptionID)
		return 0, nil
	}

	anchor := sub.DueDate
	if trigger != domain.TriggerSubscriptionDue {
		anchor = d.now()
	}

	scheduled := 0
	for _, rule := range rules {
		scheduled += d.scheduleRule(ctx, env, rule, cfg, sub, anchor, forceNow)
	}

	d.log.Info("Scheduling complete", "environment", env, "trigger", trigger, "subscription_id", subscriptionID, "scheduled", scheduled)
	return scheduled, nil
}

// scheduleRule produces jobs for one matched rule. Errors are logged and
// isolated so the remaining rules still schedule.
func (d *Dispatcher) scheduleRule(ctx context.Context, env domain.Environment, rule domain.Rule, cfg *domain.NotificationConfig, sub *domain.SubscriptionContext, anchor time.Time, forceNow bool) int {
	tpl := cfg.TemplateByID(rule.TemplateID)
	if tpl == nil {
		// The template was deleted after the rule was written.
		d.log.Warn("Rule references missing template, skipping", "rule_id", rule.ID, "template_id", rule.TemplateID)
		return 0
	}

	vars := sub.Variables()
	if rule.EnsurePaymentLink {
		link, err := d.paylink.EnsurePaymentLink(ctx, sub.SubscriptionID)
		if err != nil {
			metrics.CollaboratorErrors.WithLabelValues("paylink").Inc()
			d.log.Error("Failed to ensure payment link, skipping rule", "error", err, "rule_id", rule.ID, "subscription_id", sub.SubscriptionID)
			return 0
		}
		vars["paymentLink"] = map[string]any{"url": link.CheckoutURL}
	}

	fireTimes := d.offsets.ComputeFireTimes(anchor, rule.OffsetsSeconds, rule.AtTimeUTC)

	scheduled := 0
	for _, fireAt := range fireTimes {
		payload, err := d.renderer.Render(tpl, vars)
		if err != nil {
			metrics.RenderFailures.Inc()
			d.log.Error("Failed to render template", "error", err, "rule_id", rule.ID, "template_id", tpl.ID)
			continue
		}

		job := &domain.ScheduledJob{
			JobID:          uuid.NewString(),
			Environment:    env,
			SubscriptionID: sub.SubscriptionID,
			RuleID:         rule.ID,
			TemplateID:     tpl.ID,
			Recipient:      sub.Recipient(),
			FireAt:         fireAt,
			Payload:        payload,
		}

		if forceNow && !fireAt.After(d.now()) {
			if _, err := d.channel.SendNow(ctx, job); err != nil {
				metrics.CollaboratorErrors.WithLabelValues("channel").Inc()
				d.log.Error("Failed to send job immediately", "error", err, "job_id", job.JobID, "rule_id", rule.ID)
				continue
			}
			metrics.JobsSentNow.WithLabelValues(string(env)).Inc()
		} else {
			if _, err := d.queue.Enqueue(ctx, job); err != nil {
				metrics.CollaboratorErrors.WithLabelValues("queue").Inc()
				d.log.Error("Failed to enqueue job", "error", err, "job_id", job.JobID, "rule_id", rule.ID)
				continue
			}
		}

		metrics.JobsScheduled.WithLabelValues(string(env), string(rule.Trigger)).Inc()
		scheduled++
	}

	return scheduled
}
