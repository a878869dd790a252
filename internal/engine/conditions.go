// Package engine is the scheduling and templating core: condition
// evaluation, trigger resolution, offset-to-timestamp computation,
// variable rendering, and the dispatcher that ties them to the external
// collaborators.
package engine

import (
	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

// Passes reports whether a rule applies to the given subscription context.
// A disabled rule never passes. An absent condition list is unconstrained.
func Passes(rule domain.Rule, sub *domain.SubscriptionContext) bool {
	if !rule.Enabled {
		return false
	}
	if rule.Conditions == nil {
		return true
	}
	if contains(rule.Conditions.SkipIfStatusIn, sub.Status) {
		return false
	}
	if len(rule.Conditions.RequirePaymentTypeIn) > 0 && !contains(rule.Conditions.RequirePaymentTypeIn, sub.PaymentType) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
