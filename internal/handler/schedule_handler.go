package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-billing-notifier/internal/engine"
	apperrors "github.com/vhvplatform/go-billing-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/logger"
)

// ScheduleHandler handles scheduling requests
type ScheduleHandler struct {
	dispatcher *engine.Dispatcher
	log        *logger.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(dispatcher *engine.Dispatcher, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		dispatcher: dispatcher,
		log:        log,
	}
}

// ScheduleSubscription computes and emits due-date notification jobs for
// one subscription. With force_now=1, already-due jobs are sent
// synchronously instead of enqueued.
func (h *ScheduleHandler) ScheduleSubscription(c *gin.Context) {
	env, ok := environment(c)
	if !ok {
		return
	}

	subscriptionID := c.Param("id")
	if subscriptionID == "" {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError(apperrors.CodeMissingFields, "subscription id is required"))
		return
	}

	forceNow := c.Query("force_now") == "1" || c.Query("force_now") == "true"

	scheduled, err := h.dispatcher.ScheduleForSubscription(c.Request.Context(), subscriptionID, env, forceNow)
	if err != nil {
		if apperrors.IsCode(err, "not_found") {
			c.JSON(http.StatusNotFound, err)
			return
		}
		h.log.Error("Failed to schedule subscription", "error", err, "subscription_id", subscriptionID)
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to schedule subscription", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheduled": scheduled})
}
