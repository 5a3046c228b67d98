package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openadmit/admissions-api/internal/models"
)

// LeadRepository handles persistence of leads.
//
// Every stage mutation is a compare-and-swap against the stage the caller
// read: the UPDATE carries the expected current stage in its WHERE clause
// and reports whether a row changed. A concurrent transition leaves the
// second writer with zero affected rows instead of a silent overwrite.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository constructs the repository.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, school_id, first_name, last_name, email, phone, source, stage,
        interested_grades, number_of_students, notes, tour_scheduled_at, tour_completed_at,
        converted_household_id, converted_at, lost_reason, lost_at, created_at, updated_at`

// Create persists a new lead record.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	if lead.Stage == "" {
		lead.Stage = models.LeadStageInquiry
	}
	if lead.NumberOfStudents <= 0 {
		lead.NumberOfStudents = 1
	}
	const query = `INSERT INTO leads (id, school_id, first_name, last_name, email, phone, source, stage,
        interested_grades, number_of_students, notes, created_at, updated_at)
        VALUES (:id, :school_id, :first_name, :last_name, :email, :phone, :source, :stage,
        :interested_grades, :number_of_students, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// FindByID returns a lead by its ID.
func (r *LeadRepository) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1`, leadColumns)
	var lead models.Lead
	if err := r.db.GetContext(ctx, &lead, query, id); err != nil {
		return nil, err
	}
	return &lead, nil
}

// List returns leads filtered by the provided criteria.
func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error) {
	base := "FROM leads"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Stage != "" {
		conditions = append(conditions, fmt.Sprintf("stage = $%d", len(args)+1))
		args = append(args, filter.Stage)
	}
	if filter.Source != "" {
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)+1))
		args = append(args, filter.Source)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"last_name":  "last_name",
		"stage":      "stage",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		leadColumns, base+clause, orderBy, order, size, offset)

	var leads []models.Lead
	if err := r.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}
	return leads, total, nil
}

// UpdateStage moves a lead between stages guarded by the expected current
// stage. Returns false when no row matched.
func (r *LeadRepository) UpdateStage(ctx context.Context, id string, from, to models.LeadStage) (bool, error) {
	const query = `UPDATE leads SET stage = $3, updated_at = $4 WHERE id = $1 AND stage = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update lead stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update lead stage: %w", err)
	}
	return affected > 0, nil
}

// SetTourScheduled transitions to TOUR_SCHEDULED and stamps the tour time.
func (r *LeadRepository) SetTourScheduled(ctx context.Context, id string, from models.LeadStage, tourAt time.Time) (bool, error) {
	const query = `UPDATE leads SET stage = $3, tour_scheduled_at = $4, updated_at = $5 WHERE id = $1 AND stage = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, models.LeadStageTourScheduled, tourAt, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("schedule lead tour: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("schedule lead tour: %w", err)
	}
	return affected > 0, nil
}

// SetTourCompleted transitions to TOUR_COMPLETED with a write-time stamp.
func (r *LeadRepository) SetTourCompleted(ctx context.Context, id string, from models.LeadStage, completedAt time.Time) (bool, error) {
	const query = `UPDATE leads SET stage = $3, tour_completed_at = $4, updated_at = $5 WHERE id = $1 AND stage = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, models.LeadStageTourCompleted, completedAt, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("complete lead tour: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete lead tour: %w", err)
	}
	return affected > 0, nil
}

// MarkLost terminates a lead with an optional reason.
func (r *LeadRepository) MarkLost(ctx context.Context, id string, from models.LeadStage, lostAt time.Time, reason *string) (bool, error) {
	const query = `UPDATE leads SET stage = $3, lost_at = $4, lost_reason = $5, updated_at = $6 WHERE id = $1 AND stage = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, models.LeadStageLost, lostAt, reason, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark lead lost: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark lead lost: %w", err)
	}
	return affected > 0, nil
}

// CountByStage aggregates leads per stage for a school.
func (r *LeadRepository) CountByStage(ctx context.Context, schoolID string) ([]models.LeadStageCounts, error) {
	const query = `SELECT stage, COUNT(*) AS count FROM leads WHERE school_id = $1 GROUP BY stage`
	var counts []models.LeadStageCounts
	if err := r.db.SelectContext(ctx, &counts, query, schoolID); err != nil {
		return nil, fmt.Errorf("count leads by stage: %w", err)
	}
	return counts, nil
}
