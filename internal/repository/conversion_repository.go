package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openadmit/admissions-api/internal/models"
)

// ConversionRepository materialises a lead into a household, guardians,
// students and a draft application inside one transaction. Either every
// record becomes visible or none does.
type ConversionRepository struct {
	db *sqlx.DB
}

// NewConversionRepository constructs the repository.
func NewConversionRepository(db *sqlx.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// ConvertParams carries the conversion inputs.
type ConvertParams struct {
	LeadID                 string
	SchoolYear             string
	GradeLevel             string
	PlaceholderStudentName string
}

// ConvertResult reports the created records. PreviousStage holds the lead
// stage observed under the row lock, before it moved to CONVERTED.
type ConvertResult struct {
	Lead          *models.Lead
	PreviousStage models.LeadStage
	Household     *models.Household
	Guardian      *models.Guardian
	Students      []models.Student
	Application   *models.Application
	AlreadyClosed bool
	NotFound      bool
}

// Convert runs the five-step conversion. The lead row is locked for the
// duration so a concurrent conversion or stage change waits and then sees
// the terminal stage.
func (r *ConversionRepository) Convert(ctx context.Context, params ConvertParams) (result *ConvertResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin conversion transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var lead models.Lead
	lockQuery := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1 FOR UPDATE`, leadColumns)
	if err = tx.GetContext(ctx, &lead, lockQuery, params.LeadID); err != nil {
		if err == sql.ErrNoRows {
			err = nil
			_ = tx.Rollback()
			return &ConvertResult{NotFound: true}, nil
		}
		return nil, fmt.Errorf("lock lead: %w", err)
	}
	if lead.Stage.IsTerminal() {
		// Release the row lock before reporting the terminal stage.
		_ = tx.Rollback()
		return &ConvertResult{Lead: &lead, AlreadyClosed: true}, nil
	}

	now := time.Now().UTC()

	household := &models.Household{
		ID:           uuid.NewString(),
		SchoolID:     lead.SchoolID,
		Name:         householdName(lead.LastName),
		PrimaryEmail: lead.Email,
		PrimaryPhone: lead.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const householdInsert = `INSERT INTO households (id, school_id, name, primary_email, primary_phone, notes, created_at, updated_at)
        VALUES (:id, :school_id, :name, :primary_email, :primary_phone, :notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, householdInsert, household); err != nil {
		return nil, fmt.Errorf("create household: %w", err)
	}

	guardian := &models.Guardian{
		ID:          uuid.NewString(),
		HouseholdID: household.ID,
		FirstName:   lead.FirstName,
		LastName:    lead.LastName,
		Email:       lead.Email,
		Phone:       lead.Phone,
		IsPrimary:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	const guardianInsert = `INSERT INTO guardians (id, household_id, first_name, last_name, email, phone, relationship, is_primary, created_at, updated_at)
        VALUES (:id, :household_id, :first_name, :last_name, :email, :phone, :relationship, :is_primary, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, guardianInsert, guardian); err != nil {
		return nil, fmt.Errorf("create guardian: %w", err)
	}

	count := lead.NumberOfStudents
	if count <= 0 {
		count = 1
	}
	placeholder := params.PlaceholderStudentName
	if placeholder == "" {
		placeholder = "Student"
	}
	students := make([]models.Student, 0, count)
	const studentInsert = `INSERT INTO students (id, school_id, household_id, first_name, last_name, grade_level, enrollment_status, created_at, updated_at)
        VALUES (:id, :school_id, :household_id, :first_name, :last_name, :grade_level, :enrollment_status, :created_at, :updated_at)`
	for i := 0; i < count; i++ {
		student := models.Student{
			ID:               uuid.NewString(),
			SchoolID:         lead.SchoolID,
			HouseholdID:      household.ID,
			FirstName:        fmt.Sprintf("%s %d", placeholder, i+1),
			LastName:         lead.LastName,
			GradeLevel:       params.GradeLevel,
			EnrollmentStatus: models.EnrollmentStatusApplicant,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err = tx.NamedExecContext(ctx, studentInsert, &student); err != nil {
			return nil, fmt.Errorf("create student: %w", err)
		}
		students = append(students, student)
	}

	// Source behaviour carried over: only the first student receives a
	// draft application, siblings stay bare applicants.
	application := &models.Application{
		ID:               uuid.NewString(),
		SchoolID:         lead.SchoolID,
		StudentID:        students[0].ID,
		LeadID:           &lead.ID,
		SchoolYear:       params.SchoolYear,
		GradeApplyingFor: params.GradeLevel,
		Status:           models.ApplicationStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	const applicationInsert = `INSERT INTO applications (id, school_id, student_id, lead_id, school_year, grade_applying_for, status, application_fee_paid, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :lead_id, :school_year, :grade_applying_for, :status, :application_fee_paid, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, applicationInsert, application); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	const leadUpdate = `UPDATE leads SET stage = $2, converted_household_id = $3, converted_at = $4, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, leadUpdate, lead.ID, models.LeadStageConverted, household.ID, now); err != nil {
		return nil, fmt.Errorf("mark lead converted: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conversion: %w", err)
	}

	previousStage := lead.Stage
	lead.Stage = models.LeadStageConverted
	lead.ConvertedHouseholdID = &household.ID
	lead.ConvertedAt = &now
	lead.UpdatedAt = now

	return &ConvertResult{
		Lead:          &lead,
		PreviousStage: previousStage,
		Household:     household,
		Guardian:      guardian,
		Students:      students,
		Application:   application,
	}, nil
}

func householdName(lastName string) string {
	if lastName == "" {
		return "New Family"
	}
	return lastName + " Family"
}
