package consumer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

func TestEventTriggerMapping(t *testing.T) {
	tests := []struct {
		eventType string
		trigger   domain.TriggerType
		forceNow  bool
	}{
		{"subscription.due", domain.TriggerSubscriptionDue, false},
		{"payment_link.created", domain.TriggerPaymentLinkCreated, true},
		{"payment.approved", domain.TriggerPaymentApproved, true},
		{"payment.declined", domain.TriggerPaymentDeclined, true},
	}

	for _, tt := range tests {
		mapping, ok := eventTriggers[tt.eventType]
		if !ok {
			t.Errorf("event type %s has no trigger mapping", tt.eventType)
			continue
		}
		if mapping.trigger != tt.trigger {
			t.Errorf("%s: expected trigger %s, got %s", tt.eventType, tt.trigger, mapping.trigger)
		}
		if mapping.forceNow != tt.forceNow {
			t.Errorf("%s: expected forceNow %v, got %v", tt.eventType, tt.forceNow, mapping.forceNow)
		}
	}

	if _, ok := eventTriggers["subscription.renewed"]; ok {
		t.Error("expected unknown event types to be unmapped")
	}
}

func TestBillingEventDecode(t *testing.T) {
	body := []byte(`{
		"type": "payment.approved",
		"environment": "production",
		"subscription_id": "sub_1",
		"timestamp": "2024-03-01T09:00:00Z"
	}`)

	var event domain.BillingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != "payment.approved" || event.SubscriptionID != "sub_1" {
		t.Errorf("unexpected event %+v", event)
	}
	if !event.Timestamp.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %s", event.Timestamp)
	}
}
