// Package compiler turns operator input into validated Template and Rule
// records. All mutations are a full read-modify-write of the environment's
// configuration blob; validation happens before any write, so a rejected
// request never leaves a partial change behind.
package compiler

import (
	"context"
	"strings"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/repository"
	apperrors "github.com/vhvplatform/go-billing-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
)

const messagingChannel = "messaging"

// Compiler validates and persists templates and rules.
type Compiler struct {
	store repository.Store
	log   *logger.Logger
}

// New creates a new compiler backed by the given config store.
func New(store repository.Store, log *logger.Logger) *Compiler {
	return &Compiler{store: store, log: log}
}

// load returns the current blob, lazily creating an empty one in memory.
// The blob is only persisted on the first successful mutation.
func (c *Compiler) load(ctx context.Context, env domain.Environment) (*domain.NotificationConfig, error) {
	cfg, err := c.store.Get(ctx, env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &domain.NotificationConfig{}
	}
	return cfg, nil
}

// buildTemplate validates template input and produces a Template record
// with an environment-unique id. No write happens here.
func buildTemplate(in domain.TemplateInput, cfg *domain.NotificationConfig) (domain.Template, error) {
	tpl := domain.Template{
		Name:    in.Name,
		Channel: messagingChannel,
		Kind:    in.Kind,
	}

	switch in.Kind {
	case domain.TemplateKindText:
		if strings.TrimSpace(in.Content) == "" {
			return domain.Template{}, apperrors.NewValidationError(apperrors.CodeMissingMessage, "text templates require content")
		}
		tpl.Content = in.Content
	case domain.TemplateKindStructured:
		if strings.TrimSpace(in.TemplateName) == "" || strings.TrimSpace(in.Language) == "" {
			return domain.Template{}, apperrors.NewValidationError(apperrors.CodeMissingTemplateFields, "structured templates require a template name and language")
		}
		tpl.StructuredRef = &domain.StructuredRef{
			Name:          in.TemplateName,
			Language:      in.Language,
			OrderedParams: in.OrderedParams,
		}
	default:
		return domain.Template{}, apperrors.NewValidationError(apperrors.CodeInvalidTemplateKind, "template kind must be text or structured")
	}

	tpl.ID = templateID(in.Name, cfg)
	return tpl, nil
}

// buildTiming validates timing input and returns the signed offsets plus
// the optional exact-time override.
func buildTiming(in *domain.TimingInput) ([]int64, string, error) {
	if in == nil {
		return []int64{0}, "", nil
	}
	if in.AtTimeUTC != "" && !ValidAtTime(in.AtTimeUTC) {
		return nil, "", apperrors.NewValidationError(apperrors.CodeInvalidTime, "at_time_utc must be HH:MM in 24-hour UTC")
	}
	return ConvertOffsets(in.Offsets), in.AtTimeUTC, nil
}

// Compile builds a template and rule from a canonical notification kind,
// applying the kind's default trigger, conditions, and timing unless the
// request overrides them, and persists both in one blob write.
func (c *Compiler) Compile(ctx context.Context, env domain.Environment, kind domain.NotificationKind, tplIn domain.TemplateInput, timing *domain.TimingInput) (domain.Template, domain.Rule, error) {
	defaults, ok := kind.Defaults()
	if !ok {
		return domain.Template{}, domain.Rule{}, apperrors.NewValidationError(apperrors.CodeInvalidTrigger, "unknown notification kind")
	}

	cfg, err := c.load(ctx, env)
	if err != nil {
		return domain.Template{}, domain.Rule{}, err
	}

	tpl, err := buildTemplate(tplIn, cfg)
	if err != nil {
		return domain.Template{}, domain.Rule{}, err
	}

	// Kind defaults hold unless the request overrides them explicitly.
	offsets := defaults.OffsetsSeconds
	atTime := ""
	if timing != nil {
		if timing.AtTimeUTC != "" && !ValidAtTime(timing.AtTimeUTC) {
			return domain.Template{}, domain.Rule{}, apperrors.NewValidationError(apperrors.CodeInvalidTime, "at_time_utc must be HH:MM in 24-hour UTC")
		}
		atTime = timing.AtTimeUTC
		if len(timing.Offsets) > 0 {
			offsets = ConvertOffsets(timing.Offsets)
		}
	}

	rule := domain.Rule{
		ID:                ruleID(),
		Name:              tplIn.Name,
		Enabled:           true,
		Trigger:           defaults.Trigger,
		TemplateID:        tpl.ID,
		OffsetsSeconds:    offsets,
		AtTimeUTC:         atTime,
		EnsurePaymentLink: defaults.EnsurePaymentLink,
	}
	if len(defaults.PaymentTypeIn) > 0 || len(defaults.SkipStatusIn) > 0 {
		rule.Conditions = &domain.RuleConditions{
			RequirePaymentTypeIn: defaults.PaymentTypeIn,
			SkipIfStatusIn:       defaults.SkipStatusIn,
		}
	}

	cfg.Templates = append(cfg.Templates, tpl)
	cfg.Rules = append(cfg.Rules, rule)
	if err := c.store.Put(ctx, env, cfg, cfg.Version); err != nil {
		return domain.Template{}, domain.Rule{}, err
	}

	c.log.Info("Compiled notification kind", "environment", env, "kind", kind, "template_id", tpl.ID, "rule_id", rule.ID)
	return tpl, rule, nil
}

// AddTextTemplate creates a free-text template.
func (c *Compiler) AddTextTemplate(ctx context.Context, env domain.Environment, name, content string) (domain.Template, error) {
	return c.addTemplate(ctx, env, domain.TemplateInput{
		Name:    name,
		Kind:    domain.TemplateKindText,
		Content: content,
	})
}

// AddStructuredTemplate creates a structured-template reference.
func (c *Compiler) AddStructuredTemplate(ctx context.Context, env domain.Environment, name, templateName, language string, orderedParams []string) (domain.Template, error) {
	return c.addTemplate(ctx, env, domain.TemplateInput{
		Name:          name,
		Kind:          domain.TemplateKindStructured,
		TemplateName:  templateName,
		Language:      language,
		OrderedParams: orderedParams,
	})
}

func (c *Compiler) addTemplate(ctx context.Context, env domain.Environment, in domain.TemplateInput) (domain.Template, error) {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Template{}, apperrors.NewValidationError(apperrors.CodeMissingFields, "template name is required")
	}

	cfg, err := c.load(ctx, env)
	if err != nil {
		return domain.Template{}, err
	}

	tpl, err := buildTemplate(in, cfg)
	if err != nil {
		return domain.Template{}, err
	}

	cfg.Templates = append(cfg.Templates, tpl)
	if err := c.store.Put(ctx, env, cfg, cfg.Version); err != nil {
		return domain.Template{}, err
	}

	c.log.Info("Added template", "environment", env, "template_id", tpl.ID, "kind", tpl.Kind)
	return tpl, nil
}

// AddRule creates a rule. The template reference is not checked for
// existence: a dangling template id is tolerated at schedule time by
// skipping the rule, so write-time rejection would only race deletes.
func (c *Compiler) AddRule(ctx context.Context, env domain.Environment, req domain.AddRuleRequest) (domain.Rule, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.TemplateID) == "" {
		return domain.Rule{}, apperrors.NewValidationError(apperrors.CodeMissingFields, "rule name and template_id are required")
	}
	if !domain.ValidTrigger(req.Trigger) {
		return domain.Rule{}, apperrors.NewValidationError(apperrors.CodeInvalidTrigger, "trigger is not a known lifecycle event")
	}

	offsets, atTime, err := buildTiming(req.Timing)
	if err != nil {
		return domain.Rule{}, err
	}

	cfg, err := c.load(ctx, env)
	if err != nil {
		return domain.Rule{}, err
	}

	rule := domain.Rule{
		ID:                ruleID(),
		Name:              req.Name,
		Enabled:           true,
		Trigger:           req.Trigger,
		TemplateID:        req.TemplateID,
		OffsetsSeconds:    offsets,
		AtTimeUTC:         atTime,
		Conditions:        req.Conditions,
		EnsurePaymentLink: req.EnsurePaymentLink,
	}

	cfg.Rules = append(cfg.Rules, rule)
	if err := c.store.Put(ctx, env, cfg, cfg.Version); err != nil {
		return domain.Rule{}, err
	}

	c.log.Info("Added rule", "environment", env, "rule_id", rule.ID, "trigger", rule.Trigger)
	return rule, nil
}

// ToggleRule flips a rule's enabled flag and returns the updated rule.
func (c *Compiler) ToggleRule(ctx context.Context, env domain.Environment, id string) (domain.Rule, error) {
	cfg, err := c.load(ctx, env)
	if err != nil {
		return domain.Rule{}, err
	}

	for i := range cfg.Rules {
		if cfg.Rules[i].ID != id {
			continue
		}
		cfg.Rules[i].Enabled = !cfg.Rules[i].Enabled
		if err := c.store.Put(ctx, env, cfg, cfg.Version); err != nil {
			return domain.Rule{}, err
		}
		c.log.Info("Toggled rule", "environment", env, "rule_id", id, "enabled", cfg.Rules[i].Enabled)
		return cfg.Rules[i], nil
	}

	return domain.Rule{}, apperrors.NewNotFoundError("rule not found", nil)
}

// DeleteRule removes a rule from the environment.
func (c *Compiler) DeleteRule(ctx context.Context, env domain.Environment, id string) error {
	cfg, err := c.load(ctx, env)
	if err != nil {
		return err
	}

	kept := cfg.Rules[:0]
	found := false
	for _, r := range cfg.Rules {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return apperrors.NewNotFoundError("rule not found", nil)
	}

	cfg.Rules = kept
	if err := c.store.Put(ctx, env, cfg, cfg.Version); err != nil {
		return err
	}

	c.log.Info("Deleted rule", "environment", env, "rule_id", id)
	return nil
}

// DeleteTemplate removes a template and cascades to every rule that
// references it, within a single blob write.
func (c *Compiler) DeleteTemplate(ctx context.Context, env domain.Environment, id string) error {
	cfg, err := c.load(ctx, env)
	if err != nil {
		return err
	}

	templates := cfg.Templates[:0]
	found := false
	for _, t := range cfg.Templates {
		if t.ID == id {
			found = true
			continue
		}
		templates = append(templates, t)
	}
	if !found {
		return apperrors.NewNotFoundError("template not found", nil)
	}

	rules := cfg.Rules[:0]
	removedRules := 0
	for _, r := range cfg.Rules {
		if r.TemplateID == id {
			removedRules++
			continue
		}
		rules = append(rules, r)
	}

	cfg.Templates = templates
	cfg.Rules = rules
	if err := c.store.Put(ctx, env, cfg, cfg.Version); err != nil {
		return err
	}

	c.log.Info("Deleted template", "environment", env, "template_id", id, "cascaded_rules", removedRules)
	return nil
}
