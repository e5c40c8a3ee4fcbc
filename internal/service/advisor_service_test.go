package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academoscope/academoscope-api/internal/models"
	"github.com/academoscope/academoscope-api/pkg/config"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

func TestCleanAdvisoryLines(t *testing.T) {
	text := "- Add a short intro module\n" +
		"\n" +
		"* Split the final project into steps\n" +
		"• Offer a weekly digest\n" +
		"1. Reach out to inactive students\n" +
		"12) Review lesson ordering\n" +
		"Plain advice without a marker\n"

	items := CleanAdvisoryLines(text)
	require.Len(t, items, 6)
	assert.Equal(t, "Add a short intro module", items[0])
	assert.Equal(t, "Split the final project into steps", items[1])
	assert.Equal(t, "Offer a weekly digest", items[2])
	assert.Equal(t, "Reach out to inactive students", items[3])
	assert.Equal(t, "Review lesson ordering", items[4])
	assert.Equal(t, "Plain advice without a marker", items[5])
}

func TestCleanAdvisoryLinesKeepsLeadingNumbersWithoutDelimiter(t *testing.T) {
	items := CleanAdvisoryLines("3 lessons need rework\n2025 cohort is behind")
	require.Len(t, items, 2)
	assert.Equal(t, "3 lessons need rework", items[0])
	assert.Equal(t, "2025 cohort is behind", items[1])
}

func TestCleanAdvisoryLinesEmptyInput(t *testing.T) {
	assert.Empty(t, CleanAdvisoryLines(""))
	assert.Empty(t, CleanAdvisoryLines("\n   \n- \n"))
}

func TestAdvisorDisabledWithoutKey(t *testing.T) {
	svc, err := NewAdvisorService(context.Background(), config.AdvisorConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	_, err = svc.RecommendCourses(context.Background(), Window{Label: "all"}, &models.PlatformSummary{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAdvisorDisabled.Code, appErrors.FromError(err).Code)
}

func TestAdvisorConfigDefaults(t *testing.T) {
	svc, err := NewAdvisorService(context.Background(), config.AdvisorConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", svc.model)
	assert.Equal(t, 40*time.Second, svc.timeout)
}
