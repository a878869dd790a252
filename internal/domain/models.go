package domain

import (
	"time"
)

// Environment partitions all notification configuration. There are no
// cross-environment reads: a sandbox rule can never fire in production.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// ParseEnvironment maps a request string to a known environment.
func ParseEnvironment(s string) (Environment, bool) {
	switch Environment(s) {
	case EnvironmentProduction, EnvironmentSandbox:
		return Environment(s), true
	}
	return "", false
}

// TemplateKind represents the kind of message template
type TemplateKind string

const (
	TemplateKindText       TemplateKind = "text"
	TemplateKindStructured TemplateKind = "structured"
)

// TriggerType represents the billing lifecycle event a rule responds to
type TriggerType string

const (
	TriggerSubscriptionDue    TriggerType = "subscription_due"
	TriggerPaymentLinkCreated TriggerType = "payment_link_created"
	TriggerPaymentApproved    TriggerType = "payment_approved"
	TriggerPaymentDeclined    TriggerType = "payment_declined"
)

// ValidTrigger reports whether t is one of the allowed trigger values.
func ValidTrigger(t TriggerType) bool {
	switch t {
	case TriggerSubscriptionDue, TriggerPaymentLinkCreated, TriggerPaymentApproved, TriggerPaymentDeclined:
		return true
	}
	return false
}

// StructuredRef addresses an externally registered message template by name
// and language. OrderedParams are positional: parameter index 1 downstream
// is OrderedParams[0] here, so order must never change.
type StructuredRef struct {
	Name          string   `json:"name" bson:"name"`
	Language      string   `json:"language" bson:"language"`
	OrderedParams []string `json:"ordered_params" bson:"ordered_params"`
}

// Template represents message content, either free text with {{path}}
// placeholders or a reference to a structured channel template.
type Template struct {
	ID            string         `json:"id" bson:"id"`
	Name          string         `json:"name" bson:"name"`
	Channel       string         `json:"channel" bson:"channel"`
	Kind          TemplateKind   `json:"kind" bson:"kind"`
	Content       string         `json:"content,omitempty" bson:"content,omitempty"`
	StructuredRef *StructuredRef `json:"structured_ref,omitempty" bson:"structured_ref,omitempty"`
}

// RuleConditions are declarative filters evaluated against the subscription
// context at schedule time. An absent list means that check always passes.
type RuleConditions struct {
	SkipIfStatusIn       []string `json:"skip_if_status_in,omitempty" bson:"skip_if_status_in,omitempty"`
	RequirePaymentTypeIn []string `json:"require_payment_type_in,omitempty" bson:"require_payment_type_in,omitempty"`
}

// Rule binds a trigger to a template with timing and conditions.
type Rule struct {
	ID                string          `json:"id" bson:"id"`
	Name              string          `json:"name" bson:"name"`
	Enabled           bool            `json:"enabled" bson:"enabled"`
	Trigger           TriggerType     `json:"trigger" bson:"trigger"`
	TemplateID        string          `json:"template_id" bson:"template_id"`
	OffsetsSeconds    []int64         `json:"offsets_seconds" bson:"offsets_seconds"`
	AtTimeUTC         string          `json:"at_time_utc,omitempty" bson:"at_time_utc,omitempty"`
	Conditions        *RuleConditions `json:"conditions,omitempty" bson:"conditions,omitempty"`
	EnsurePaymentLink bool            `json:"ensure_payment_link,omitempty" bson:"ensure_payment_link,omitempty"`
}

// NotificationConfig is the single configuration blob for one environment.
// It is only ever replaced wholesale; there is no partial patch primitive.
type NotificationConfig struct {
	Version   int64      `json:"version" bson:"version"`
	Templates []Template `json:"templates" bson:"templates"`
	Rules     []Rule     `json:"rules" bson:"rules"`
}

// TemplateByID returns the template with the given id, or nil. A rule may
// reference a deleted template; callers skip the rule rather than fail.
func (c *NotificationConfig) TemplateByID(id string) *Template {
	for i := range c.Templates {
		if c.Templates[i].ID == id {
			return &c.Templates[i]
		}
	}
	return nil
}

// HasTemplateID reports whether a template id exists in the environment.
func (c *NotificationConfig) HasTemplateID(id string) bool {
	return c.TemplateByID(id) != nil
}

// RenderedPayload is the output of template rendering: either free text or
// a structured template reference with substituted positional parameters.
type RenderedPayload struct {
	Kind           TemplateKind `json:"kind"`
	Content        string       `json:"content,omitempty"`
	StructuredName string       `json:"structured_name,omitempty"`
	Language       string       `json:"language,omitempty"`
	OrderedParams  []string     `json:"ordered_params,omitempty"`
}

// ScheduledJob is an ephemeral job descriptor. Ownership transfers to the
// external queue at enqueue time; the engine never persists it.
type ScheduledJob struct {
	JobID          string          `json:"job_id"`
	Environment    Environment     `json:"environment"`
	SubscriptionID string          `json:"subscription_id"`
	RuleID         string          `json:"rule_id"`
	TemplateID     string          `json:"template_id"`
	Recipient      string          `json:"recipient,omitempty"`
	FireAt         time.Time       `json:"fire_at"`
	Payload        RenderedPayload `json:"payload"`
}

// PaymentLink is the result of the idempotent payment-link ensure call.
type PaymentLink struct {
	CheckoutURL string `json:"checkout_url"`
}

// SubscriptionContext is the billing state a scheduling call operates on.
type SubscriptionContext struct {
	SubscriptionID string         `json:"subscription_id"`
	DueDate        time.Time      `json:"due_date"`
	Status         string         `json:"status"`
	PaymentType    string         `json:"payment_type"`
	Customer       map[string]any `json:"customer,omitempty"`
	Plan           map[string]any `json:"plan,omitempty"`
}

// Variables exposes the context as the dotted-path variable tree the
// renderer walks. Missing branches render as empty strings downstream.
func (s *SubscriptionContext) Variables() map[string]any {
	return map[string]any{
		"subscription": map[string]any{
			"id":          s.SubscriptionID,
			"dueDate":     s.DueDate.UTC().Format(time.RFC3339),
			"status":      s.Status,
			"paymentType": s.PaymentType,
		},
		"customer": s.Customer,
		"plan":     s.Plan,
	}
}

// Recipient returns the customer's messaging address, if populated.
func (s *SubscriptionContext) Recipient() string {
	if s.Customer == nil {
		return ""
	}
	phone, _ := s.Customer["phone"].(string)
	return phone
}

// BillingEvent is a lifecycle event received from the billing platform.
type BillingEvent struct {
	Type           string    `json:"type"`
	Environment    string    `json:"environment"`
	SubscriptionID string    `json:"subscription_id"`
	Timestamp      time.Time `json:"timestamp"`
}
