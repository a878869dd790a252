// Package queue publishes job descriptors to RabbitMQ. The external
// worker that polls for fireAt <= now consumes from the same queue; this
// side only hands ownership over.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/rabbitmq"
)

const jobsQueue = "notification_jobs"

// Publisher hands job descriptors to the external job queue.
type Publisher struct {
	client *rabbitmq.RabbitMQClient
	log    *logger.Logger
}

// NewPublisher creates a publisher and declares the jobs queue.
func NewPublisher(client *rabbitmq.RabbitMQClient, log *logger.Logger) (*Publisher, error) {
	if err := client.DeclareQueue(jobsQueue); err != nil {
		return nil, fmt.Errorf("failed to declare jobs queue: %w", err)
	}
	return &Publisher{client: client, log: log}, nil
}

// Enqueue publishes a job and returns its id. The engine performs no
// deduplication; a consumer wanting idempotency must key on
// (subscription_id, rule_id, fire_at).
func (p *Publisher) Enqueue(_ context.Context, job *domain.ScheduledJob) (string, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := p.client.Publish("", jobsQueue, body); err != nil {
		return "", fmt.Errorf("failed to publish job: %w", err)
	}

	p.log.Debug("Enqueued job", "job_id", job.JobID, "rule_id", job.RuleID, "fire_at", job.FireAt)
	return job.JobID, nil
}
