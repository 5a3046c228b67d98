package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadmit/admissions-api/internal/models"
)

func newConversionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func leadRow(stage models.LeadStage, students int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "school_id", "first_name", "last_name", "email", "phone", "source", "stage",
		"interested_grades", "number_of_students", "notes", "tour_scheduled_at", "tour_completed_at",
		"converted_household_id", "converted_at", "lost_reason", "lost_at", "created_at", "updated_at",
	}).AddRow("lead-1", "school-1", "Dana", "Whitfield", "dana@example.com", "555-0100", "WEBSITE", stage,
		"6", students, "", nil, nil, nil, nil, nil, nil, now, now)
}

func TestConversionRepositoryConvert(t *testing.T) {
	db, mock, cleanup := newConversionMock(t)
	defer cleanup()
	repo := NewConversionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM leads WHERE id = \$1 FOR UPDATE`).
		WithArgs("lead-1").
		WillReturnRows(leadRow(models.LeadStageTourCompleted, 2))
	mock.ExpectExec("INSERT INTO households").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO guardians").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE leads SET stage = \$2, converted_household_id = \$3, converted_at = \$4, updated_at = \$4 WHERE id = \$1`).
		WithArgs("lead-1", models.LeadStageConverted, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.Convert(context.Background(), ConvertParams{
		LeadID:     "lead-1",
		SchoolYear: "2026-2027",
		GradeLevel: "6",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.NotFound)
	assert.False(t, result.AlreadyClosed)

	assert.Equal(t, models.LeadStageTourCompleted, result.PreviousStage)
	assert.Equal(t, "Whitfield Family", result.Household.Name)
	assert.True(t, result.Guardian.IsPrimary)
	require.Len(t, result.Students, 2)
	assert.Equal(t, "Student 1", result.Students[0].FirstName)
	assert.Equal(t, models.EnrollmentStatusApplicant, result.Students[0].EnrollmentStatus)
	assert.Equal(t, result.Students[0].ID, result.Application.StudentID)
	assert.Equal(t, models.ApplicationStatusDraft, result.Application.Status)
	assert.Equal(t, models.LeadStageConverted, result.Lead.Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionRepositoryConvertTerminalLead(t *testing.T) {
	db, mock, cleanup := newConversionMock(t)
	defer cleanup()
	repo := NewConversionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM leads WHERE id = \$1 FOR UPDATE`).
		WithArgs("lead-1").
		WillReturnRows(leadRow(models.LeadStageConverted, 1))
	mock.ExpectRollback()

	result, err := repo.Convert(context.Background(), ConvertParams{LeadID: "lead-1", SchoolYear: "2026-2027", GradeLevel: "6"})
	require.NoError(t, err)
	assert.True(t, result.AlreadyClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversionRepositoryConvertNotFound(t *testing.T) {
	db, mock, cleanup := newConversionMock(t)
	defer cleanup()
	repo := NewConversionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM leads WHERE id = \$1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	result, err := repo.Convert(context.Background(), ConvertParams{LeadID: "ghost", SchoolYear: "2026-2027", GradeLevel: "6"})
	require.NoError(t, err)
	assert.True(t, result.NotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
