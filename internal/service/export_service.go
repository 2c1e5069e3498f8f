package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/edupulse/edupulse-api/internal/models"
	"github.com/edupulse/edupulse-api/pkg/export"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type gradebookBuilder interface {
	BuildTeacherGradebook(ctx context.Context, courseID string) (*models.GradebookView, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportConfig tunes export output.
type ExportConfig struct {
	Enabled bool
	Title   string
}

// ExportResult carries the rendered bytes and transport metadata.
type ExportResult struct {
	Payload     []byte
	ContentType string
	Filename    string
}

// ExportService renders the teacher gradebook as a downloadable file.
type ExportService struct {
	gradebook gradebookBuilder
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(gradebook gradebookBuilder, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Gradebook"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{gradebook: gradebook, csv: csv, pdf: pdf, logger: logger, cfg: cfg}
}

// Generate builds the course gradebook and renders it in the requested format.
func (s *ExportService) Generate(ctx context.Context, courseID string, format ExportFormat) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	view, err := s.gradebook.BuildTeacherGradebook(ctx, courseID)
	if err != nil {
		return nil, err
	}
	table := gradebookTable(view, s.cfg.Title)

	switch format {
	case FormatCSV:
		payload, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Payload:     payload,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("gradebook-%s.csv", view.CourseCode),
		}, nil
	case FormatPDF:
		payload, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Payload:     payload,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("gradebook-%s.pdf", view.CourseCode),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// gradebookTable flattens the view into rows: one per student, one column per
// assessment, then the promotion columns.
func gradebookTable(view *models.GradebookView, title string) export.Table {
	headers := []string{"Student"}
	for _, assessment := range view.Assessments {
		headers = append(headers, assessment.Title)
	}
	headers = append(headers, "Attendance", "Quiz Aggregate", "Final", "Total")

	promotion := make(map[string]models.PromotionRow, len(view.Promotion))
	for _, row := range view.Promotion {
		promotion[row.StudentID] = row
	}

	rows := make([][]string, 0, len(view.Students))
	for _, student := range view.Students {
		name := student.Name
		if name == "" {
			name = student.StudentID
		}
		row := []string{name}
		for _, assessment := range view.Assessments {
			mark, ok := view.Marks[student.StudentID][assessment.ID]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatMark(mark))
		}
		promo := promotion[student.StudentID]
		row = append(row,
			formatMark(promo.AttendanceScore),
			formatMark(promo.QuizScore),
			formatMark(promo.FinalScore),
			formatMark(promo.Total),
		)
		rows = append(rows, row)
	}

	return export.Table{
		Title:   fmt.Sprintf("%s %s (%s)", title, view.CourseCode, view.Policy),
		Headers: headers,
		Rows:    rows,
	}
}

func formatMark(mark float64) string {
	return strconv.FormatFloat(mark, 'f', -1, 64)
}
