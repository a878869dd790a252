package domain

// OffsetInput is one operator-supplied timing entry before compilation.
type OffsetInput struct {
	Direction string  `json:"direction" binding:"required,oneof=before after"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Unit      string  `json:"unit" binding:"required,oneof=seconds minutes hours days"`
}

// TimingInput carries the raw timing fields of a compile or rule request.
type TimingInput struct {
	Offsets   []OffsetInput `json:"offsets,omitempty"`
	AtTimeUTC string        `json:"at_time_utc,omitempty"`
}

// TemplateInput carries the raw template fields of a compile request.
type TemplateInput struct {
	Name          string       `json:"name" binding:"required"`
	Kind          TemplateKind `json:"kind" binding:"required"`
	Content       string       `json:"content,omitempty"`
	TemplateName  string       `json:"template_name,omitempty"`
	Language      string       `json:"language,omitempty"`
	OrderedParams []string     `json:"ordered_params,omitempty"`
}

// CompileRequest compiles a template and rule from a canonical kind.
type CompileRequest struct {
	Environment string           `json:"environment" binding:"required"`
	Kind        NotificationKind `json:"kind" binding:"required"`
	Template    TemplateInput    `json:"template" binding:"required"`
	Timing      *TimingInput     `json:"timing,omitempty"`
}

// AddTextTemplateRequest creates a free-text template.
type AddTextTemplateRequest struct {
	Environment string `json:"environment" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Content     string `json:"content"`
}

// AddStructuredTemplateRequest creates a structured-template reference.
type AddStructuredTemplateRequest struct {
	Environment   string   `json:"environment" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	TemplateName  string   `json:"template_name"`
	Language      string   `json:"language"`
	OrderedParams []string `json:"ordered_params,omitempty"`
}

// AddRuleRequest creates a rule bound to an existing template.
type AddRuleRequest struct {
	Environment       string          `json:"environment" binding:"required"`
	Name              string          `json:"name"`
	Trigger           TriggerType     `json:"trigger"`
	TemplateID        string          `json:"template_id"`
	Timing            *TimingInput    `json:"timing,omitempty"`
	Conditions        *RuleConditions `json:"conditions,omitempty"`
	EnsurePaymentLink bool            `json:"ensure_payment_link,omitempty"`
}

// PutConfigRequest replaces an environment's configuration blob. The
// version must be the one the caller read; stale writes are rejected.
type PutConfigRequest struct {
	Environment string             `json:"environment" binding:"required"`
	Config      NotificationConfig `json:"config" binding:"required"`
}
