package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

func scheduleContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/schedule?"+rawQuery, nil)
	return c
}

func TestParseScheduleQueryDefaultsToWeekAhead(t *testing.T) {
	query, err := parseScheduleQuery(scheduleContext(t, ""))
	require.NoError(t, err)

	today := time.Now()
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	assert.Equal(t, midnight, query.Start)
	assert.Equal(t, midnight.AddDate(0, 0, 7), query.End)
}

func TestParseScheduleQueryExplicitWindow(t *testing.T) {
	query, err := parseScheduleQuery(scheduleContext(t, "start=2025-09-01&end=2025-09-05&teacher_id=t1&course_id=3"))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), query.Start)
	assert.Equal(t, time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC), query.End, "wire end date is inclusive")
	assert.Equal(t, "t1", query.TeacherID)
	assert.Equal(t, int64(3), query.CourseID)
}

func TestParseScheduleQueryRejectsBadInput(t *testing.T) {
	cases := []struct {
		name     string
		rawQuery string
	}{
		{"bad start", "start=tomorrow"},
		{"bad end", "end=2025-13-40"},
		{"bad course", "course_id=abc"},
		{"negative course", "course_id=-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseScheduleQuery(scheduleContext(t, tc.rawQuery))
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}
