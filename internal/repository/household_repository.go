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

// HouseholdRepository handles persistence of households and guardians.
type HouseholdRepository struct {
	db *sqlx.DB
}

// NewHouseholdRepository constructs the repository.
func NewHouseholdRepository(db *sqlx.DB) *HouseholdRepository {
	return &HouseholdRepository{db: db}
}

const householdColumns = `id, school_id, name, primary_email, primary_phone, notes, created_at, updated_at`

// FindByID returns a household by its ID.
func (r *HouseholdRepository) FindByID(ctx context.Context, id string) (*models.Household, error) {
	query := fmt.Sprintf(`SELECT %s FROM households WHERE id = $1`, householdColumns)
	var household models.Household
	if err := r.db.GetContext(ctx, &household, query, id); err != nil {
		return nil, err
	}
	return &household, nil
}

// List returns households filtered by the provided criteria.
func (r *HouseholdRepository) List(ctx context.Context, filter models.HouseholdFilter) ([]models.Household, int, error) {
	base := "FROM households"
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR primary_email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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
		householdColumns, base+clause, orderBy, order, size, offset)

	var households []models.Household
	if err := r.db.SelectContext(ctx, &households, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list households: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count households: %w", err)
	}
	return households, total, nil
}

// ListGuardians returns all guardians for a household.
func (r *HouseholdRepository) ListGuardians(ctx context.Context, householdID string) ([]models.Guardian, error) {
	const query = `SELECT id, household_id, first_name, last_name, email, phone, relationship, is_primary, created_at, updated_at
        FROM guardians WHERE household_id = $1 ORDER BY is_primary DESC, last_name ASC`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, householdID); err != nil {
		return nil, fmt.Errorf("list guardians: %w", err)
	}
	return guardians, nil
}

// ListStudents returns students whose primary household matches.
func (r *HouseholdRepository) ListStudents(ctx context.Context, householdID string) ([]models.Student, error) {
	const query = `SELECT id, school_id, household_id, first_name, last_name, grade_level, birth_date, enrollment_status, created_at, updated_at
        FROM students WHERE household_id = $1 ORDER BY last_name ASC, first_name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, householdID); err != nil {
		return nil, fmt.Errorf("list household students: %w", err)
	}
	return students, nil
}

// AddGuardian persists a new guardian record.
func (r *HouseholdRepository) AddGuardian(ctx context.Context, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if guardian.CreatedAt.IsZero() {
		guardian.CreatedAt = now
	}
	guardian.UpdatedAt = now
	const query = `INSERT INTO guardians (id, household_id, first_name, last_name, email, phone, relationship, is_primary, created_at, updated_at)
        VALUES (:id, :household_id, :first_name, :last_name, :email, :phone, :relationship, :is_primary, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, guardian); err != nil {
		return fmt.Errorf("add guardian: %w", err)
	}
	return nil
}

// SetPrimaryGuardian promotes one guardian and demotes the rest inside a
// transaction, keeping the one-primary-per-household invariant.
func (r *HouseholdRepository) SetPrimaryGuardian(ctx context.Context, householdID, guardianID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin primary guardian transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const demote = `UPDATE guardians SET is_primary = FALSE, updated_at = $2 WHERE household_id = $1 AND is_primary = TRUE`
	if _, err = tx.ExecContext(ctx, demote, householdID, now); err != nil {
		return fmt.Errorf("demote primary guardian: %w", err)
	}

	const promote = `UPDATE guardians SET is_primary = TRUE, updated_at = $3 WHERE id = $1 AND household_id = $2`
	res, err := tx.ExecContext(ctx, promote, guardianID, householdID, now)
	if err != nil {
		return fmt.Errorf("promote guardian: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promote guardian: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit primary guardian: %w", err)
	}
	return nil
}

// SumBillingSplit returns the total split percentage already allocated for
// a student across secondary households.
func (r *HouseholdRepository) SumBillingSplit(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(billing_split_percent), 0) FROM household_students WHERE student_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID); err != nil {
		return 0, fmt.Errorf("sum billing split: %w", err)
	}
	return total, nil
}

// AttachStudent links a student to an additional household for split custody.
func (r *HouseholdRepository) AttachStudent(ctx context.Context, link *models.HouseholdStudent) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO household_students (id, household_id, student_id, billing_split_percent, created_at)
        VALUES (:id, :household_id, :student_id, :billing_split_percent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("attach student: %w", err)
	}
	return nil
}
