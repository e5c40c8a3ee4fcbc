package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/academoscope/academoscope-api/internal/middleware"
	"github.com/academoscope/academoscope-api/internal/service"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
	"github.com/academoscope/academoscope-api/pkg/response"
)

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	insights *service.InsightService
	metrics  *service.MetricsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(insights *service.InsightService, metrics *service.MetricsService) *AnalyticsHandler {
	return &AnalyticsHandler{insights: insights, metrics: metrics}
}

// Summary returns the windowed platform dashboard.
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	window := resolveWindow(c)
	start := time.Now()
	summary, cacheHit, err := h.insights.Summary(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, withProcessingTime(c, start))
}

// Courses returns the windowed per-course overview.
func (h *AnalyticsHandler) Courses(c *gin.Context) {
	window := resolveWindow(c)
	start := time.Now()
	items, cacheHit, err := h.insights.CourseOverview(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, withProcessingTime(c, start))
}

// CourseByID returns one course's windowed funnel and lesson breakdown.
func (h *AnalyticsHandler) CourseByID(c *gin.Context) {
	courseID, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	window := resolveWindow(c)
	start := time.Now()
	detail, cacheHit, err := h.insights.CourseDetail(c.Request.Context(), courseID, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, detail, withProcessingTime(c, start))
}

// Students returns the windowed student list with status labels.
func (h *AnalyticsHandler) Students(c *gin.Context) {
	window := resolveWindow(c)
	start := time.Now()
	items, cacheHit, err := h.insights.StudentList(c.Request.Context(), window)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, withProcessingTime(c, start))
}

// StudentByID returns one student's windowed detail view.
func (h *AnalyticsHandler) StudentByID(c *gin.Context) {
	studentID, err := parseID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	window := resolveWindow(c)
	start := time.Now()
	detail, cacheHit, err := h.insights.StudentDetail(c.Request.Context(), studentID, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, detail, withProcessingTime(c, start))
}

// System returns instrumentation metrics snapshots.
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	return id, nil
}

func resolveWindow(c *gin.Context) service.Window {
	window := service.ResolveWindow(c.Query("period"), time.Now())
	middleware.SetWindow(c, window.Label)
	return window
}

func withProcessingTime(c *gin.Context, start time.Time) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}
