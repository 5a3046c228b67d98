package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/openadmit/admissions-api/internal/models"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
	"github.com/openadmit/admissions-api/pkg/export"
)

type applicationDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
}

// ExportService renders decision letters as PDF and rosters as CSV.
type ExportService struct {
	applications applicationDetailReader
	letters      *export.LetterRenderer
	csv          *export.CSVExporter
	letterhead   string
	logger       *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(applications applicationDetailReader, letterhead string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		applications: applications,
		letters:      export.NewLetterRenderer(),
		csv:          export.NewCSVExporter(),
		letterhead:   letterhead,
		logger:       logger,
	}
}

// DecisionLetter renders a PDF letter for a decided application. Only
// applications carrying a recorded decision or a confirmed enrollment can
// produce a letter.
func (s *ExportService) DecisionLetter(ctx context.Context, applicationID string) ([]byte, string, error) {
	detail, err := s.applications.FindDetailByID(ctx, applicationID)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}

	paragraphs, subject := letterBody(detail)
	if paragraphs == nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "application has no recorded decision")
	}

	letterDate := time.Now().UTC()
	if detail.DecisionAt != nil {
		letterDate = *detail.DecisionAt
	}
	payload, err := s.letters.Render(export.Letter{
		Letterhead: s.letterhead,
		Date:       letterDate,
		Recipient:  fmt.Sprintf("The family of %s %s", detail.StudentFirstName, detail.StudentLastName),
		Subject:    subject,
		Paragraphs: paragraphs,
		SignedBy:   "Office of Admissions",
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render decision letter")
	}

	filename := fmt.Sprintf("decision-%s.pdf", detail.ID)
	return payload, filename, nil
}

// ApplicationRoster renders a CSV of applications for a school year.
func (s *ExportService) ApplicationRoster(ctx context.Context, schoolID, schoolYear string, status models.ApplicationStatus) ([]byte, string, error) {
	if schoolID == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "school_id is required")
	}

	filter := models.ApplicationFilter{
		SchoolID:   schoolID,
		SchoolYear: schoolYear,
		Status:     status,
		Page:       1,
		PageSize:   100,
		SortBy:     "created_at",
		SortOrder:  "ASC",
	}

	headers := []string{"application_id", "student", "grade", "school_year", "status", "waitlist_position", "submitted_at", "decision_at", "fee_paid"}
	var rows []map[string]string
	for {
		applications, total, err := s.applications.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
		}
		for _, app := range applications {
			rows = append(rows, rosterRow(app))
		}
		if len(rows) >= total || len(applications) == 0 {
			break
		}
		filter.Page++
	}

	payload, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	filename := fmt.Sprintf("applications-%s.csv", schoolID)
	if schoolYear != "" {
		filename = fmt.Sprintf("applications-%s-%s.csv", schoolID, schoolYear)
	}
	return payload, filename, nil
}

func rosterRow(app models.ApplicationDetail) map[string]string {
	row := map[string]string{
		"application_id": app.ID,
		"student":        app.StudentFirstName + " " + app.StudentLastName,
		"grade":          app.GradeApplyingFor,
		"school_year":    app.SchoolYear,
		"status":         string(app.Status),
		"fee_paid":       strconv.FormatBool(app.ApplicationFeePaid),
	}
	if app.WaitlistPosition != nil {
		row["waitlist_position"] = strconv.Itoa(*app.WaitlistPosition)
	}
	if app.SubmittedAt != nil {
		row["submitted_at"] = app.SubmittedAt.Format(time.RFC3339)
	}
	if app.DecisionAt != nil {
		row["decision_at"] = app.DecisionAt.Format(time.RFC3339)
	}
	return row
}

func letterBody(detail *models.ApplicationDetail) ([]string, string) {
	student := detail.StudentFirstName + " " + detail.StudentLastName
	switch detail.Status {
	case models.ApplicationStatusAccepted, models.ApplicationStatusEnrolled:
		return []string{
			fmt.Sprintf("We are delighted to offer %s a place in grade %s for the %s school year.", student, detail.GradeApplyingFor, detail.SchoolYear),
			"Please confirm enrollment with the admissions office to secure the seat.",
		}, "Offer of Admission"
	case models.ApplicationStatusWaitlisted:
		position := ""
		if detail.WaitlistPosition != nil {
			position = fmt.Sprintf(" Your current position on the waitlist is %d.", *detail.WaitlistPosition)
		}
		return []string{
			fmt.Sprintf("Thank you for applying for %s. We are unable to offer a place at this time and have added %s to our waitlist for the %s school year.%s", student, detail.StudentFirstName, detail.SchoolYear, position),
			"We will contact you as soon as a seat becomes available.",
		}, "Waitlist Notification"
	case models.ApplicationStatusDenied:
		return []string{
			fmt.Sprintf("Thank you for applying for %s. After careful review we are unable to offer admission for the %s school year.", student, detail.SchoolYear),
			"We appreciate your interest and wish your family the very best.",
		}, "Admission Decision"
	default:
		return nil, ""
	}
}
