package domain

// NotificationKind is one of the canonical notification kinds an operator
// can compile a rule from. The set is closed; every kind maps to exactly one
// entry in kindDefaults below.
type NotificationKind string

const (
	KindLinkSent             NotificationKind = "link_sent"
	KindApprovedSubscription NotificationKind = "payment_approved_subscription"
	KindApprovedPlan         NotificationKind = "payment_approved_plan"
	KindApprovedLink         NotificationKind = "payment_approved_link"
	KindDeclinedSubscription NotificationKind = "payment_declined_subscription"
	KindDeclinedPlan         NotificationKind = "payment_declined_plan"
	KindDeclinedLink         NotificationKind = "payment_declined_link"
	KindReminderDue          NotificationKind = "reminder_due"
	KindReminderPastDue      NotificationKind = "reminder_past_due"
)

// KindDefaults are the trigger, payment-type filter, and timing a kind
// compiles to unless the caller overrides them.
type KindDefaults struct {
	Trigger           TriggerType
	PaymentTypeIn     []string
	SkipStatusIn      []string
	OffsetsSeconds    []int64
	EnsurePaymentLink bool
}

const daySeconds = 86400

// kindDefaults is the exhaustive mapping table. Adding a kind without an
// entry makes Defaults return ok=false, which the compiler rejects, so a
// new kind cannot silently fall through to a wrong default.
var kindDefaults = map[NotificationKind]KindDefaults{
	KindLinkSent: {
		Trigger:        TriggerPaymentLinkCreated,
		OffsetsSeconds: []int64{0},
	},
	KindApprovedSubscription: {
		Trigger:        TriggerPaymentApproved,
		PaymentTypeIn:  []string{"subscription"},
		OffsetsSeconds: []int64{0},
	},
	KindApprovedPlan: {
		Trigger:        TriggerPaymentApproved,
		PaymentTypeIn:  []string{"plan"},
		OffsetsSeconds: []int64{0},
	},
	KindApprovedLink: {
		Trigger:        TriggerPaymentApproved,
		PaymentTypeIn:  []string{"link"},
		OffsetsSeconds: []int64{0},
	},
	KindDeclinedSubscription: {
		Trigger:        TriggerPaymentDeclined,
		PaymentTypeIn:  []string{"subscription"},
		OffsetsSeconds: []int64{0},
	},
	KindDeclinedPlan: {
		Trigger:        TriggerPaymentDeclined,
		PaymentTypeIn:  []string{"plan"},
		OffsetsSeconds: []int64{0},
	},
	KindDeclinedLink: {
		Trigger:        TriggerPaymentDeclined,
		PaymentTypeIn:  []string{"link"},
		OffsetsSeconds: []int64{0},
	},
	KindReminderDue: {
		Trigger:           TriggerSubscriptionDue,
		SkipStatusIn:      []string{"CANCELED"},
		OffsetsSeconds:    []int64{-daySeconds},
		EnsurePaymentLink: true,
	},
	KindReminderPastDue: {
		Trigger:           TriggerSubscriptionDue,
		SkipStatusIn:      []string{"CANCELED", "PAID"},
		OffsetsSeconds:    []int64{daySeconds},
		EnsurePaymentLink: true,
	},
}

// Defaults returns the canonical defaults for a kind.
func (k NotificationKind) Defaults() (KindDefaults, bool) {
	d, ok := kindDefaults[k]
	return d, ok
}

// Kinds lists the canonical kinds in a stable order for the admin UI.
func Kinds() []NotificationKind {
	return []NotificationKind{
		KindLinkSent,
		KindApprovedSubscription,
		KindApprovedPlan,
		KindApprovedLink,
		KindDeclinedSubscription,
		KindDeclinedPlan,
		KindDeclinedLink,
		KindReminderDue,
		KindReminderPastDue,
	}
}
