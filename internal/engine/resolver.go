package engine

import (
	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

// Resolve returns every enabled rule matching the trigger whose conditions
// pass against the context, in stable declaration order. Declaration order
// is the only ordering; rules carry no priority.
func Resolve(cfg *domain.NotificationConfig, trigger domain.TriggerType, sub *domain.SubscriptionContext) []domain.Rule {
	if cfg == nil {
		return nil
	}

	var matched []domain.Rule
	for _, rule := range cfg.Rules {
		if rule.Trigger != trigger {
			continue
		}
		if !Passes(rule, sub) {
			continue
		}
		matched = append(matched, rule)
	}
	return matched
}
