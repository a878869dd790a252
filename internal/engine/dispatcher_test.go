package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/repository"
	apperrors "github.com/vhvplatform/go-billing-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
)

type fakeBilling struct {
	sub *domain.SubscriptionContext
	err error
}

func (f *fakeBilling) GetSubscriptionContext(_ context.Context, id string) (*domain.SubscriptionContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub := *f.sub
	sub.SubscriptionID = id
	return &sub, nil
}

type fakePaylink struct {
	calls int
	err   error
}

func (f *fakePaylink) EnsurePaymentLink(_ context.Context, _ string) (*domain.PaymentLink, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PaymentLink{CheckoutURL: "https://pay.example/abc"}, nil
}

type fakeQueue struct {
	jobs []*domain.ScheduledJob
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job *domain.ScheduledJob) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return job.JobID, nil
}

type fakeChannel struct {
	sent []*domain.ScheduledJob
	err  error
}

func (f *fakeChannel) SendNow(_ context.Context, job *domain.ScheduledJob) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, job)
	return "sent", nil
}

// seedConfig writes the canonical due-reminder setup: one template, a
// day-before reminder, and a day-after past-due reminder.
func seedConfig(t *testing.T, store repository.Store) {
	t.Helper()
	cfg := &domain.NotificationConfig{
		Templates: []domain.Template{
			{
				ID:      "tpl_due",
				Name:    "Due",
				Kind:    domain.TemplateKindText,
				Content: "Hola {{customer.name}}, paga en {{paymentLink.url}}",
			},
		},
		Rules: []domain.Rule{
			{
				ID:                "rul_before",
				Enabled:           true,
				Trigger:           domain.TriggerSubscriptionDue,
				TemplateID:        "tpl_due",
				OffsetsSeconds:    []int64{-86400},
				EnsurePaymentLink: true,
				Conditions:        &domain.RuleConditions{SkipIfStatusIn: []string{"CANCELED"}},
			},
			{
				ID:                "rul_after",
				Enabled:           true,
				Trigger:           domain.TriggerSubscriptionDue,
				TemplateID:        "tpl_due",
				OffsetsSeconds:    []int64{86400},
				EnsurePaymentLink: true,
				Conditions:        &domain.RuleConditions{SkipIfStatusIn: []string{"CANCELED", "PAID"}},
			},
		},
	}
	if err := store.Put(context.Background(), domain.EnvironmentProduction, cfg, 0); err != nil {
		t.Fatalf("seed config: %v", err)
	}
}

func newTestDispatcher(store repository.Store, billing *fakeBilling, paylink *fakePaylink, queue *fakeQueue, channel *fakeChannel) *Dispatcher {
	d := NewDispatcher(store, billing, paylink, queue, channel, logger.NewLogger())
	d.now = func() time.Time { return time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestScheduleForSubscription(t *testing.T) {
	store := repository.NewMemoryStore()
	seedConfig(t, store)

	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:   "PENDING",
		Customer: map[string]any{"name": "Ana", "phone": "+521555"},
	}}
	paylink := &fakePaylink{}
	queue := &fakeQueue{}
	channel := &fakeChannel{}

	d := newTestDispatcher(store, billing, paylink, queue, channel)
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheduled != 2 {
		t.Fatalf("expected 2 jobs scheduled, got %d", scheduled)
	}
	if len(queue.jobs) != 2 {
		t.Fatalf("expected 2 enqueued jobs, got %d", len(queue.jobs))
	}
	if len(channel.sent) != 0 {
		t.Errorf("expected no synchronous sends, got %d", len(channel.sent))
	}

	expected := []time.Time{
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, job := range queue.jobs {
		if !job.FireAt.Equal(expected[i]) {
			t.Errorf("job %d: expected fire time %s, got %s", i, expected[i], job.FireAt)
		}
		if job.SubscriptionID != "sub_1" || job.Environment != domain.EnvironmentProduction {
			t.Errorf("job %d: unexpected identity %+v", i, job)
		}
		if job.Recipient != "+521555" {
			t.Errorf("job %d: expected recipient from customer phone, got %q", i, job.Recipient)
		}
		if job.Payload.Content != "Hola Ana, paga en https://pay.example/abc" {
			t.Errorf("job %d: unexpected rendered content %q", i, job.Payload.Content)
		}
		if job.JobID == "" {
			t.Errorf("job %d: expected a job id", i)
		}
	}
	if queue.jobs[0].JobID == queue.jobs[1].JobID {
		t.Error("expected distinct job ids")
	}
	if paylink.calls != 2 {
		t.Errorf("expected paylink ensured once per rule, got %d calls", paylink.calls)
	}
}

func TestScheduleSkipsByStatus(t *testing.T) {
	store := repository.NewMemoryStore()
	seedConfig(t, store)

	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:  "PAID",
	}}
	queue := &fakeQueue{}

	d := newTestDispatcher(store, billing, &fakePaylink{}, queue, &fakeChannel{})
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// PAID skips the past-due rule but still gets the upcoming reminder.
	if scheduled != 1 {
		t.Fatalf("expected 1 job, got %d", scheduled)
	}
	if queue.jobs[0].RuleID != "rul_before" {
		t.Errorf("expected the day-before rule, got %s", queue.jobs[0].RuleID)
	}
}

func TestScheduleForceNowSendsDueJobs(t *testing.T) {
	store := repository.NewMemoryStore()
	seedConfig(t, store)

	// Due today: the day-before fire time is already past, the
	// past-due one is still in the future.
	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
		Status:  "PENDING",
	}}
	queue := &fakeQueue{}
	channel := &fakeChannel{}

	d := newTestDispatcher(store, billing, &fakePaylink{}, queue, channel)
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheduled != 2 {
		t.Fatalf("expected 2 jobs, got %d", scheduled)
	}
	if len(channel.sent) != 1 || channel.sent[0].RuleID != "rul_before" {
		t.Fatalf("expected the past fire time sent synchronously, got %+v", channel.sent)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].RuleID != "rul_after" {
		t.Fatalf("expected the future fire time enqueued, got %+v", queue.jobs)
	}
}

func TestSchedulePaylinkFailureSkipsRule(t *testing.T) {
	store := repository.NewMemoryStore()
	seedConfig(t, store)

	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:  "PENDING",
	}}
	queue := &fakeQueue{}

	d := newTestDispatcher(store, billing, &fakePaylink{err: errors.New("paylink down")}, queue, &fakeChannel{})
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, false)
	if err != nil {
		t.Fatalf("expected failures isolated, got error: %v", err)
	}
	if scheduled != 0 || len(queue.jobs) != 0 {
		t.Errorf("expected nothing scheduled when every rule needs a link, got %d", scheduled)
	}
}

func TestScheduleQueueFailureIsolatedPerJob(t *testing.T) {
	store := repository.NewMemoryStore()
	seedConfig(t, store)

	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:  "PENDING",
	}}

	d := newTestDispatcher(store, billing, &fakePaylink{}, &fakeQueue{err: errors.New("queue full")}, &fakeChannel{})
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, false)
	if err != nil {
		t.Fatalf("expected failures isolated, got error: %v", err)
	}
	if scheduled != 0 {
		t.Errorf("expected 0 scheduled when every enqueue fails, got %d", scheduled)
	}
}

func TestScheduleSkipsMissingTemplate(t *testing.T) {
	store := repository.NewMemoryStore()
	cfg := &domain.NotificationConfig{
		Rules: []domain.Rule{
			{ID: "rul_orphan", Enabled: true, Trigger: domain.TriggerSubscriptionDue, TemplateID: "tpl_gone", OffsetsSeconds: []int64{0}},
		},
	}
	if err := store.Put(context.Background(), domain.EnvironmentProduction, cfg, 0); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}}
	queue := &fakeQueue{}

	d := newTestDispatcher(store, billing, &fakePaylink{}, queue, &fakeChannel{})
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheduled != 0 || len(queue.jobs) != 0 {
		t.Errorf("expected dangling template skipped, got %d jobs", scheduled)
	}
}

func TestScheduleBillingErrorPropagates(t *testing.T) {
	store := repository.NewMemoryStore()
	seedConfig(t, store)

	billing := &fakeBilling{err: apperrors.NewNotFoundError("subscription not found", nil)}
	d := newTestDispatcher(store, billing, &fakePaylink{}, &fakeQueue{}, &fakeChannel{})

	_, err := d.ScheduleForSubscription(context.Background(), "sub_missing", domain.EnvironmentProduction, false)
	if !apperrors.IsCode(err, "not_found") {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestScheduleForTriggerUsesEventAnchor(t *testing.T) {
	store := repository.NewMemoryStore()
	cfg := &domain.NotificationConfig{
		Templates: []domain.Template{
			{ID: "tpl_ok", Kind: domain.TemplateKindText, Content: "Pago aprobado"},
		},
		Rules: []domain.Rule{
			{ID: "rul_ok", Enabled: true, Trigger: domain.TriggerPaymentApproved, TemplateID: "tpl_ok", OffsetsSeconds: []int64{0}},
		},
	}
	if err := store.Put(context.Background(), domain.EnvironmentSandbox, cfg, 0); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	// DueDate is far away; payment events anchor on the current time.
	billing := &fakeBilling{sub: &domain.SubscriptionContext{
		DueDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	queue := &fakeQueue{}

	d := newTestDispatcher(store, billing, &fakePaylink{}, queue, &fakeChannel{})
	scheduled, err := d.ScheduleForTrigger(context.Background(), domain.EnvironmentSandbox, domain.TriggerPaymentApproved, "sub_1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheduled != 1 {
		t.Fatalf("expected 1 job, got %d", scheduled)
	}
	expected := time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC)
	if !queue.jobs[0].FireAt.Equal(expected) {
		t.Errorf("expected fire time at the event anchor %s, got %s", expected, queue.jobs[0].FireAt)
	}
}

func TestScheduleNoConfig(t *testing.T) {
	store := repository.NewMemoryStore()
	billing := &fakeBilling{sub: &domain.SubscriptionContext{}}

	d := newTestDispatcher(store, billing, &fakePaylink{}, &fakeQueue{}, &fakeChannel{})
	scheduled, err := d.ScheduleForSubscription(context.Background(), "sub_1", domain.EnvironmentProduction, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheduled != 0 {
		t.Errorf("expected 0 for empty environment, got %d", scheduled)
	}
}
