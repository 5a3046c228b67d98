package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadmit/admissions-api/internal/models"
)

func newApplicationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryUpdateStatusGuarded(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(`UPDATE applications SET status = \$3, updated_at = \$4 WHERE id = \$1 AND status = \$2`).
		WithArgs("app-1", models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateStatus(context.Background(), "app-1", models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryRecordDecision(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications SET status = \$3, decision_at = \$4, decision_by = \$5, decision_notes = \$6, waitlist_position = \$7, updated_at = \$4`).
		WithArgs("app-1", models.ApplicationStatusUnderReview, models.ApplicationStatusAccepted, sqlmock.AnyArg(), "op-1", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students SET enrollment_status = \$2, updated_at = \$3`).
		WithArgs("app-1", models.EnrollmentStatusAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.RecordDecision(context.Background(), "app-1", models.ApplicationStatusUnderReview, models.ApplicationStatusAccepted, "op-1", nil, nil, models.EnrollmentStatusAccepted)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryRecordDecisionStale(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications SET status = \$3, decision_at = \$4, decision_by = \$5, decision_notes = \$6, waitlist_position = \$7, updated_at = \$4`).
		WithArgs("app-1", models.ApplicationStatusUnderReview, models.ApplicationStatusDenied, sqlmock.AnyArg(), "op-1", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	updated, err := repo.RecordDecision(context.Background(), "app-1", models.ApplicationStatusUnderReview, models.ApplicationStatusDenied, "op-1", nil, nil, models.EnrollmentStatusDenied)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryEnroll(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications SET status = \$3, updated_at = \$4 WHERE id = \$1 AND status = \$2 AND student_id = \$5`).
		WithArgs("app-1", models.ApplicationStatusAccepted, models.ApplicationStatusEnrolled, sqlmock.AnyArg(), "st-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE students SET enrollment_status = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("st-1", models.EnrollmentStatusEnrolled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.Enroll(context.Background(), "app-1", "st-1")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryEnrollNotAccepted(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications SET status = \$3, updated_at = \$4 WHERE id = \$1 AND status = \$2 AND student_id = \$5`).
		WithArgs("app-1", models.ApplicationStatusAccepted, models.ApplicationStatusEnrolled, sqlmock.AnyArg(), "st-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	updated, err := repo.Enroll(context.Background(), "app-1", "st-1")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositorySetFeePaidMissing(t *testing.T) {
	db, mock, cleanup := newApplicationMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(`UPDATE applications SET application_fee_paid = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("ghost", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetFeePaid(context.Background(), "ghost", true)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
