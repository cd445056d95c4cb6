package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/internal/service"
	"github.com/noah-isme/bloodbank-api/pkg/response"
)

// ActivityHandler exposes the audit trail endpoint.
type ActivityHandler struct {
	activity *service.ActivityService
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// List godoc
// @Summary List activity log entries
// @Description List recent audit entries, newest first
// @Tags Activity
// @Produce json
// @Param type query string false "Filter by activity type"
// @Param actor query string false "Filter by actor ID"
// @Param limit query int false "Max entries" default(100)
// @Success 200 {object} response.Envelope
// @Router /activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	filter := models.ActivityFilter{
		Type:  c.Query("type"),
		Actor: c.Query("actor"),
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}

	logs, err := h.activity.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, logs, len(logs))
}
