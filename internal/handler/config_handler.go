package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-billing-notifier/internal/compiler"
	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	"github.com/vhvplatform/go-billing-notifier/internal/repository"
	apperrors "github.com/vhvplatform/go-billing-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
)

// ConfigHandler handles configuration and rule-compilation requests
type ConfigHandler struct {
	store    repository.Store
	compiler *compiler.Compiler
	log      *logger.Logger
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(store repository.Store, compiler *compiler.Compiler, log *logger.Logger) *ConfigHandler {
	return &ConfigHandler{
		store:    store,
		compiler: compiler,
		log:      log,
	}
}

// statusFor maps engine error codes to HTTP statuses.
func statusFor(err error) int {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case apperrors.CodeVersionConflict:
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "internal_error":
		return http.StatusInternalServerError
	default:
		// Validation codes are returned verbatim with a 400.
		return http.StatusBadRequest
	}
}

func (h *ConfigHandler) fail(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, "error", err)
		c.JSON(status, apperrors.NewInternalError(msg, err))
		return
	}
	c.JSON(status, err)
}

// environment resolves the environment query parameter.
func environment(c *gin.Context) (domain.Environment, bool) {
	env, ok := domain.ParseEnvironment(c.Query("environment"))
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "environment must be production or sandbox"))
		return "", false
	}
	return env, true
}

// GetConfig returns the environment's configuration blob.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	env, ok := environment(c)
	if !ok {
		return
	}

	cfg, err := h.store.Get(c.Request.Context(), env)
	if err != nil {
		h.fail(c, err, "Failed to load configuration")
		return
	}
	if cfg == nil {
		// Lazily created on first write; absent means empty.
		cfg = &domain.NotificationConfig{}
	}

	c.JSON(http.StatusOK, gin.H{
		"environment": env,
		"config":      cfg,
	})
}

// PutConfig replaces the environment's configuration blob. The body must
// carry the version the caller read; a stale version gets a 409.
func (h *ConfigHandler) PutConfig(c *gin.Context) {
	var req domain.PutConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "invalid request body"))
		return
	}

	env, ok := domain.ParseEnvironment(req.Environment)
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "environment must be production or sandbox"))
		return
	}

	cfg := req.Config
	if err := h.store.Put(c.Request.Context(), env, &cfg, cfg.Version); err != nil {
		h.fail(c, err, "Failed to store configuration")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration updated",
		"version": cfg.Version,
	})
}

// ListKinds returns the canonical notification kind catalog.
func (h *ConfigHandler) ListKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": domain.Kinds()})
}

// CompileKind compiles a template and rule from a canonical kind.
func (h *ConfigHandler) CompileKind(c *gin.Context) {
	var req domain.CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "invalid request body"))
		return
	}

	env, ok := domain.ParseEnvironment(req.Environment)
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "environment must be production or sandbox"))
		return
	}

	tpl, rule, err := h.compiler.Compile(c.Request.Context(), env, req.Kind, req.Template, req.Timing)
	if err != nil {
		h.fail(c, err, "Failed to compile notification kind")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"template": tpl,
		"rule":     rule,
	})
}

// AddTextTemplate creates a free-text template.
func (h *ConfigHandler) AddTextTemplate(c *gin.Context) {
	var req domain.AddTextTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "invalid request body"))
		return
	}

	env, ok := domain.ParseEnvironment(req.Environment)
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "environment must be production or sandbox"))
		return
	}

	tpl, err := h.compiler.AddTextTemplate(c.Request.Context(), env, req.Name, req.Content)
	if err != nil {
		h.fail(c, err, "Failed to add template")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template": tpl})
}

// AddStructuredTemplate creates a structured-template reference.
func (h *ConfigHandler) AddStructuredTemplate(c *gin.Context) {
	var req domain.AddStructuredTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "invalid request body"))
		return
	}

	env, ok := domain.ParseEnvironment(req.Environment)
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "environment must be production or sandbox"))
		return
	}

	tpl, err := h.compiler.AddStructuredTemplate(c.Request.Context(), env, req.Name, req.TemplateName, req.Language, req.OrderedParams)
	if err != nil {
		h.fail(c, err, "Failed to add template")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template": tpl})
}

// AddRule creates a rule.
func (h *ConfigHandler) AddRule(c *gin.Context) {
	var req domain.AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "invalid request body"))
		return
	}

	env, ok := domain.ParseEnvironment(req.Environment)
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "environment must be production or sandbox"))
		return
	}

	rule, err := h.compiler.AddRule(c.Request.Context(), env, req)
	if err != nil {
		h.fail(c, err, "Failed to add rule")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// ToggleRule flips a rule's enabled flag.
func (h *ConfigHandler) ToggleRule(c *gin.Context) {
	env, ok := environment(c)
	if !ok {
		return
	}

	rule, err := h.compiler.ToggleRule(c.Request.Context(), env, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to toggle rule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule removes a rule.
func (h *ConfigHandler) DeleteRule(c *gin.Context) {
	env, ok := environment(c)
	if !ok {
		return
	}

	if err := h.compiler.DeleteRule(c.Request.Context(), env, c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete rule")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}

// DeleteTemplate removes a template and every rule referencing it.
func (h *ConfigHandler) DeleteTemplate(c *gin.Context) {
	env, ok := environment(c)
	if !ok {
		return
	}

	if err := h.compiler.DeleteTemplate(c.Request.Context(), env, c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete template")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}
