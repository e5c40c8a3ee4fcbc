package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/academoscope/academoscope-api/internal/service"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
	"github.com/academoscope/academoscope-api/pkg/response"
)

// AdvisorHandler exposes generative advisory endpoints. Advisory text is an
// optional boundary feature: a disabled provider is a soft state, not an error.
type AdvisorHandler struct {
	advisor  *service.AdvisorService
	insights *service.InsightService
	status   *service.StatusService
}

// NewAdvisorHandler constructs the advisor handler.
func NewAdvisorHandler(advisor *service.AdvisorService, insights *service.InsightService, status *service.StatusService) *AdvisorHandler {
	return &AdvisorHandler{advisor: advisor, insights: insights, status: status}
}

// Recommendations returns platform-level improvement suggestions.
func (h *AdvisorHandler) Recommendations(c *gin.Context) {
	if !h.advisor.Enabled() {
		response.JSON(c, http.StatusOK, gin.H{"status": "disabled", "items": []string{}})
		return
	}

	window := resolveWindow(c)
	summary, _, err := h.insights.Summary(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.advisor.RecommendCourses(c.Request.Context(), window, summary)
	if err != nil {
		h.advisoryError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "ok", "items": items})
}

// StudentInsights returns curator advice for one student.
func (h *AdvisorHandler) StudentInsights(c *gin.Context) {
	if !h.advisor.Enabled() {
		response.JSON(c, http.StatusOK, gin.H{"status": "disabled", "items": []string{}})
		return
	}

	studentID, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	window := resolveWindow(c)
	detail, _, err := h.insights.StudentDetail(c.Request.Context(), studentID, window)
	if err != nil {
		response.Error(c, err)
		return
	}

	var daysInactive *int
	if detail.LastSeenAt != nil {
		days := h.status.DaysInactive(*detail.LastSeenAt, time.Now())
		daysInactive = &days
	}

	items, err := h.advisor.StudentInsights(c.Request.Context(), detail, daysInactive)
	if err != nil {
		h.advisoryError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "ok", "items": items})
}

func (h *AdvisorHandler) advisoryError(c *gin.Context, err error) {
	if errors.Is(err, appErrors.ErrAdvisorEmpty) {
		response.JSON(c, http.StatusOK, gin.H{"status": "empty", "items": []string{}})
		return
	}
	response.Error(c, err)
}
