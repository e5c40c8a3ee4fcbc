package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/academoscope/academoscope-api/internal/dto"
	"github.com/academoscope/academoscope-api/internal/service"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
	"github.com/academoscope/academoscope-api/pkg/response"
)

// IngestHandler accepts activity events over HTTP.
type IngestHandler struct {
	ingest *service.IngestService
}

// NewIngestHandler constructs the ingest handler.
func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// Ingest validates and stores one event.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req dto.IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload"))
		return
	}

	event, err := h.ingest.Ingest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.IngestEventResponse{
		EventID:   event.ID,
		CourseID:  event.CourseID,
		StudentID: event.StudentID,
	})
}
