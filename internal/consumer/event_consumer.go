package consumer

import (
	"context"
	"encoding/json"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/engine"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/rabbitmq"
)

const (
	billingExchange   = "billing_events"
	billingQueue      = "notifier_billing_events"
	billingRoutingKey = "billing.*"
	consumerTag       = "billing-notifier"
)

// eventTriggers maps billing event types to lifecycle triggers. Payment
// events notify about something that already happened, so their jobs are
// due immediately and go out through the forceNow path; due events are
// scheduled ahead of time.
var eventTriggers = map[string]struct {
	trigger  domain.TriggerType
	forceNow bool
}{
	"subscription.due":     {domain.TriggerSubscriptionDue, false},
	"payment_link.created": {domain.TriggerPaymentLinkCreated, true},
	"payment.approved":     {domain.TriggerPaymentApproved, true},
	"payment.declined":     {domain.TriggerPaymentDeclined, true},
}

// EventConsumer consumes billing lifecycle events from RabbitMQ and feeds
// them to the dispatcher.
type EventConsumer struct {
	client     *rabbitmq.RabbitMQClient
	dispatcher *engine.Dispatcher
	log        *logger.Logger
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(client *rabbitmq.RabbitMQClient, dispatcher *engine.Dispatcher, log *logger.Logger) *EventConsumer {
	return &EventConsumer{
		client:     client,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Start starts consuming events. It blocks until the channel closes.
func (c *EventConsumer) Start() error {
	c.log.Info("Starting event consumer", "queue", billingQueue)

	if err := c.client.DeclareExchange(billingExchange, "topic"); err != nil {
		c.log.Error("Failed to declare exchange", "error", err)
		return err
	}
	if err := c.client.DeclareQueue(billingQueue); err != nil {
		c.log.Error("Failed to declare queue", "error", err)
		return err
	}
	if err := c.client.BindQueue(billingQueue, billingRoutingKey, billingExchange); err != nil {
		c.log.Error("Failed to bind queue", "error", err)
		return err
	}

	messages, err := c.client.Consume(billingQueue, consumerTag)
	if err != nil {
		c.log.Error("Failed to start consuming", "error", err)
		return err
	}

	for msg := range messages {
		c.log.Debug("Received message", "routing_key", msg.RoutingKey)

		var event domain.BillingEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			c.log.Error("Failed to unmarshal event", "error", err)
			msg.Nack(false, false) // Don't requeue invalid messages
			continue
		}

		if err := c.processEvent(context.Background(), &event); err != nil {
			c.log.Error("Failed to process event", "error", err, "type", event.Type)
			msg.Nack(false, true) // Requeue for retry
			continue
		}

		msg.Ack(false)
	}

	return nil
}

// processEvent maps an event to a trigger and schedules notifications.
func (c *EventConsumer) processEvent(ctx context.Context, event *domain.BillingEvent) error {
	mapping, ok := eventTriggers[event.Type]
	if !ok {
		c.log.Warn("Unknown event type", "type", event.Type)
		return nil
	}

	env, ok := domain.ParseEnvironment(event.Environment)
	if !ok {
		c.log.Warn("Event carries unknown environment", "environment", event.Environment, "type", event.Type)
		return nil
	}

	scheduled, err := c.dispatcher.ScheduleForTrigger(ctx, env, mapping.trigger, event.SubscriptionID, mapping.forceNow)
	if err != nil {
		return err
	}

	c.log.Info("Event processed", "type", event.Type, "subscription_id", event.SubscriptionID, "scheduled", scheduled)
	return nil
}
