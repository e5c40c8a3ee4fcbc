package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/academoscope/academoscope-api/internal/dto"
	"github.com/academoscope/academoscope-api/internal/models"
	"github.com/academoscope/academoscope-api/internal/service"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
	"github.com/academoscope/academoscope-api/pkg/response"
)

const defaultScheduleWindowDays = 7

// ScheduleHandler exposes the teaching schedule endpoints.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs the schedule handler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// List returns slots in the requested window with conflict flags.
func (h *ScheduleHandler) List(c *gin.Context) {
	query, err := parseScheduleQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.schedule.List(c.Request.Context(), models.ScheduleFilter{
		Start:     query.Start,
		End:       query.End,
		TeacherID: query.TeacherID,
		CourseID:  query.CourseID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Create stores a new teaching slot.
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload"))
		return
	}
	slot := slotFromRequest(req)
	if err := h.schedule.Create(c.Request.Context(), slot); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update replaces an existing slot.
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload"))
		return
	}
	slot := slotFromRequest(req)
	slot.ID = c.Param("id")
	if err := h.schedule.Update(c.Request.Context(), slot); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot)
}

// Delete removes a slot.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedule.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export streams the windowed schedule as CSV or PDF.
func (h *ScheduleHandler) Export(c *gin.Context) {
	query, err := parseScheduleQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, contentType, err := h.schedule.Export(c.Request.Context(), models.ScheduleFilter{
		Start:     query.Start,
		End:       query.End,
		TeacherID: query.TeacherID,
		CourseID:  query.CourseID,
	}, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("schedule_%s_%s.%s",
		query.Start.Format("2006-01-02"), query.End.Format("2006-01-02"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// Teachers lists the teacher catalog.
func (h *ScheduleHandler) Teachers(c *gin.Context) {
	teachers, err := h.schedule.Teachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers)
}

// TeacherByID returns one teacher's windowed workload.
func (h *ScheduleHandler) TeacherByID(c *gin.Context) {
	query, err := parseScheduleQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	workload, err := h.schedule.TeacherWorkload(c.Request.Context(), c.Param("id"), query.Start, query.End)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload)
}

// parseScheduleQuery reads the window and filters; the window defaults to
// the next seven days starting today.
func parseScheduleQuery(c *gin.Context) (dto.ScheduleQuery, error) {
	query := dto.ScheduleQuery{
		TeacherID: c.Query("teacher_id"),
		Format:    c.Query("format"),
	}

	now := time.Now()
	query.Start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	query.End = query.Start.AddDate(0, 0, defaultScheduleWindowDays)

	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
		}
		query.Start = start
		query.End = start.AddDate(0, 0, defaultScheduleWindowDays)
	}
	if raw := c.Query("end"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
		}
		// The end date is inclusive on the wire; the filter bound is not.
		query.End = end.AddDate(0, 0, 1)
	}
	if raw := c.Query("course_id"); raw != "" {
		courseID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || courseID <= 0 {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid course_id")
		}
		query.CourseID = courseID
	}
	return query, nil
}

func slotFromRequest(req dto.SlotRequest) *models.TeachingSlot {
	return &models.TeachingSlot{
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		LessonID:  req.LessonID,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		GroupName: req.GroupName,
		Location:  req.Location,
	}
}
