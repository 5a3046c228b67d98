package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openadmit/admissions-api/internal/models"
)

// ApplicationRepository handles persistence of applications.
//
// Status mutations follow the same compare-and-swap discipline as leads:
// the expected current status rides in the WHERE clause, so a stale writer
// affects zero rows instead of overwriting a concurrent decision.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, school_id, student_id, lead_id, school_year, grade_applying_for, status,
        submitted_at, interview_scheduled_at, interview_completed_at,
        decision_at, decision_by, decision_notes, waitlist_position, application_fee_paid,
        created_at, updated_at`

// Create persists a new application record.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationStatusDraft
	}
	const query = `INSERT INTO applications (id, school_id, student_id, lead_id, school_year, grade_applying_for, status, application_fee_paid, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :lead_id, :school_year, :grade_applying_for, :status, :application_fee_paid, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, err
	}
	return &app, nil
}

// FindDetailByID returns an application with student context.
func (r *ApplicationRepository) FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	const query = `SELECT a.id, a.school_id, a.student_id, a.lead_id, a.school_year, a.grade_applying_for, a.status,
        a.submitted_at, a.interview_scheduled_at, a.interview_completed_at,
        a.decision_at, a.decision_by, a.decision_notes, a.waitlist_position, a.application_fee_paid,
        a.created_at, a.updated_at,
        s.first_name AS student_first_name, s.last_name AS student_last_name, s.household_id
        FROM applications a
        LEFT JOIN students s ON s.id = a.student_id
        WHERE a.id = $1`
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns applications filtered by the provided criteria.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM applications a LEFT JOIN students s ON s.id = a.student_id`
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("a.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SchoolYear != "" {
		conditions = append(conditions, fmt.Sprintf("a.school_year = $%d", len(args)+1))
		args = append(args, filter.SchoolYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "a.created_at",
		"submitted_at": "a.submitted_at",
		"status":       "a.status",
		"student_name": "s.last_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.school_id, a.student_id, a.lead_id, a.school_year, a.grade_applying_for, a.status,
        a.submitted_at, a.interview_scheduled_at, a.interview_completed_at,
        a.decision_at, a.decision_by, a.decision_notes, a.waitlist_position, a.application_fee_paid,
        a.created_at, a.updated_at,
        s.first_name AS student_first_name, s.last_name AS student_last_name, s.household_id
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// UpdateStatus moves an application between statuses guarded by the
// expected current status. Returns false when no row matched.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) (bool, error) {
	const query = `UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	return r.exec(ctx, "update application status", query, id, from, to, time.Now().UTC())
}

// MarkSubmitted transitions to SUBMITTED and stamps submitted_at.
func (r *ApplicationRepository) MarkSubmitted(ctx context.Context, id string, from models.ApplicationStatus, submittedAt time.Time) (bool, error) {
	const query = `UPDATE applications SET status = $3, submitted_at = $4, updated_at = $5 WHERE id = $1 AND status = $2`
	return r.exec(ctx, "submit application", query, id, from, models.ApplicationStatusSubmitted, submittedAt, time.Now().UTC())
}

// ScheduleInterview transitions to INTERVIEW_SCHEDULED and stamps the slot.
func (r *ApplicationRepository) ScheduleInterview(ctx context.Context, id string, from models.ApplicationStatus, interviewAt time.Time) (bool, error) {
	const query = `UPDATE applications SET status = $3, interview_scheduled_at = $4, updated_at = $5 WHERE id = $1 AND status = $2`
	return r.exec(ctx, "schedule interview", query, id, from, models.ApplicationStatusInterviewScheduled, interviewAt, time.Now().UTC())
}

// CompleteInterview transitions to INTERVIEW_COMPLETED with a write-time stamp.
func (r *ApplicationRepository) CompleteInterview(ctx context.Context, id string, from models.ApplicationStatus, completedAt time.Time) (bool, error) {
	const query = `UPDATE applications SET status = $3, interview_completed_at = $4, updated_at = $5 WHERE id = $1 AND status = $2`
	return r.exec(ctx, "complete interview", query, id, from, models.ApplicationStatusInterviewCompleted, completedAt, time.Now().UTC())
}

// RecordDecision stores a decision outcome with its audit fields, and keeps
// the student's enrollment status in step, inside one transaction.
func (r *ApplicationRepository) RecordDecision(ctx context.Context, id string, from models.ApplicationStatus, outcome models.ApplicationStatus, decidedBy string, notes *string, waitlistPosition *int, studentStatus models.EnrollmentStatus) (updated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin decision transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const appQuery = `UPDATE applications SET status = $3, decision_at = $4, decision_by = $5, decision_notes = $6, waitlist_position = $7, updated_at = $4
        WHERE id = $1 AND status = $2`
	res, err := tx.ExecContext(ctx, appQuery, id, from, outcome, now, decidedBy, notes, waitlistPosition)
	if err != nil {
		return false, fmt.Errorf("record decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record decision: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	const studentQuery = `UPDATE students SET enrollment_status = $2, updated_at = $3
        WHERE id = (SELECT student_id FROM applications WHERE id = $1)`
	if _, err = tx.ExecContext(ctx, studentQuery, id, studentStatus, now); err != nil {
		return false, fmt.Errorf("sync student status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit decision: %w", err)
	}
	return true, nil
}

// Enroll flips the application to ENROLLED and the student to enrolled in
// one transaction. The application row is guarded on status and student id;
// when that guard misses, the student row is never touched. Either both
// rows change or neither does.
func (r *ApplicationRepository) Enroll(ctx context.Context, id, studentID string) (updated bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const appQuery = `UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 AND student_id = $5`
	res, err := tx.ExecContext(ctx, appQuery, id, models.ApplicationStatusAccepted, models.ApplicationStatusEnrolled, now, studentID)
	if err != nil {
		return false, fmt.Errorf("enroll application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enroll application: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	const studentQuery = `UPDATE students SET enrollment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, studentQuery, studentID, models.EnrollmentStatusEnrolled, now); err != nil {
		return false, fmt.Errorf("enroll student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit enrollment: %w", err)
	}
	return true, nil
}

// SetFeePaid flips the application fee flag without a status change.
func (r *ApplicationRepository) SetFeePaid(ctx context.Context, id string, paid bool) error {
	const query = `UPDATE applications SET application_fee_paid = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, paid, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set fee paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set fee paid: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates applications per status for a school year.
func (r *ApplicationRepository) CountByStatus(ctx context.Context, schoolID, schoolYear string) ([]models.ApplicationStatusCounts, error) {
	query := `SELECT status, COUNT(*) AS count FROM applications WHERE school_id = $1`
	args := []interface{}{schoolID}
	if schoolYear != "" {
		query += " AND school_year = $2"
		args = append(args, schoolYear)
	}
	query += " GROUP BY status"
	var counts []models.ApplicationStatusCounts
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	return counts, nil
}

func (r *ApplicationRepository) exec(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}
