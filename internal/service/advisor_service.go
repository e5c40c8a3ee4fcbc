package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/academoscope/academoscope-api/internal/models"
	"github.com/academoscope/academoscope-api/pkg/config"
	appErrors "github.com/academoscope/academoscope-api/pkg/errors"
)

const (
	courseAdvisorInstruction = "You are an experienced product analyst for online courses. " +
		"Based on the metrics provided, suggest 3-5 concrete recommendations for improving " +
		"the course programs and structure. Be brief and answer as a plain list without extra commentary."

	studentAdvisorInstruction = "You are an online course mentor. Given the data about one student, " +
		"assess the risk of them not finishing and suggest 3-5 concrete ways a curator could help. " +
		"Be brief and answer as a plain list without extra commentary."
)

// AdvisorService phrases human-readable suggestions from already-computed
// metrics through a generative text provider. It is a boundary collaborator:
// its output never feeds back into any metric.
type AdvisorService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAdvisorService constructs the advisor. When the provider is not
// configured the returned service is disabled rather than an error: advisory
// text is an optional feature.
func NewAdvisorService(ctx context.Context, cfg config.AdvisorConfig, logger *zap.Logger) (*AdvisorService, error) {
	s := &AdvisorService{model: cfg.Model, timeout: cfg.Timeout, logger: logger}
	if s.model == "" {
		s.model = "gemini-1.5-flash"
	}
	if s.timeout <= 0 {
		s.timeout = 40 * time.Second
	}

	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Info("advisor disabled, no provider configured")
		return s, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create advisor client: %w", err)
	}
	s.client = client
	logger.Info("advisor enabled", zap.String("model", s.model))
	return s, nil
}

// Enabled reports whether a provider is configured.
func (s *AdvisorService) Enabled() bool {
	return s != nil && s.client != nil
}

// RecommendCourses asks the provider for platform-level recommendations
// derived from the windowed summary.
func (s *AdvisorService) RecommendCourses(ctx context.Context, window Window, summary *models.PlatformSummary) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s\n", window.Label)
	fmt.Fprintf(&b, "Total students across courses: %d, completed: %d, average completion rate: %d%%\n",
		summary.TotalStudents, summary.CompletedStudents, summary.OverallCompletionRate)
	b.WriteString("Courses and their metrics:\n")
	for _, course := range summary.Courses {
		fmt.Fprintf(&b, "- %s: students %d, completed %d, completion rate %d%%\n",
			course.Title, course.TotalStudents, course.Completed, course.CompletionRate)
	}
	return s.generate(ctx, courseAdvisorInstruction, b.String())
}

// StudentInsights asks the provider for curator advice about one student.
func (s *AdvisorService) StudentInsights(ctx context.Context, detail *models.StudentDetail, daysInactive *int) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Student: %s\n", detail.Student.ExternalID)
	fmt.Fprintf(&b, "Current status: %s\n", detail.Status)
	fmt.Fprintf(&b, "Average progress across courses: %d%%\n", detail.OverallProgress)
	if daysInactive != nil {
		fmt.Fprintf(&b, "Days since last visit: %d\n", *daysInactive)
	}
	b.WriteString("Courses and the student's progress:\n")
	for _, course := range detail.Courses {
		fmt.Fprintf(&b, "- %s: progress %d%%, completed %d of %d lessons, started %d\n",
			course.CourseTitle, course.Progress, course.CompletedLessons, course.TotalLessons, course.StartedLessons)
	}
	return s.generate(ctx, studentAdvisorInstruction, b.String())
}

func (s *AdvisorService) generate(ctx context.Context, instruction, prompt string) ([]string, error) {
	if !s.Enabled() {
		return nil, appErrors.ErrAdvisorDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, cfg)
	if err != nil {
		s.logger.Warn("advisor generation failed", zap.Error(err))
		return nil, appErrors.Wrap(err, "ADVISOR_ERROR", appErrors.ErrAdvisorEmpty.Status, "advisory provider failed")
	}

	items := CleanAdvisoryLines(result.Text())
	if len(items) == 0 {
		return nil, appErrors.ErrAdvisorEmpty
	}
	return items, nil
}

// CleanAdvisoryLines splits provider text into list items, dropping blank
// lines and stripping bullet and numeric prefixes. This is presentation
// cleanup at the boundary; it never touches metric data.
func CleanAdvisoryLines(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "-•* ")
		line = stripNumericPrefix(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// stripNumericPrefix removes leading "1." / "12)" style list numbering.
func stripNumericPrefix(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return line
	}
	if line[i] != '.' && line[i] != ')' {
		return line
	}
	return strings.TrimSpace(line[i+1:])
}
