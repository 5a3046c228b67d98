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

func newLeadMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLeadRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec("INSERT INTO leads").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	lead := &models.Lead{SchoolID: "school-1", FirstName: "Dana", LastName: "Whitfield", Email: "dana@example.com"}
	err := repo.Create(context.Background(), lead)
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, models.LeadStageInquiry, lead.Stage)
	assert.Equal(t, 1, lead.NumberOfStudents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryUpdateStageGuarded(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec(`UPDATE leads SET stage = \$3, updated_at = \$4 WHERE id = \$1 AND stage = \$2`).
		WithArgs("lead-1", models.LeadStageInquiry, models.LeadStageApplied, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateStage(context.Background(), "lead-1", models.LeadStageInquiry, models.LeadStageApplied)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryUpdateStageStale(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	mock.ExpectExec(`UPDATE leads SET stage = \$3, updated_at = \$4 WHERE id = \$1 AND stage = \$2`).
		WithArgs("lead-1", models.LeadStageInquiry, models.LeadStageApplied, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.UpdateStage(context.Background(), "lead-1", models.LeadStageInquiry, models.LeadStageApplied)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryMarkLost(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	reason := "chose another school"
	lostAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE leads SET stage = \$3, lost_at = \$4, lost_reason = \$5, updated_at = \$6 WHERE id = \$1 AND stage = \$2`).
		WithArgs("lead-1", models.LeadStageTourCompleted, models.LeadStageLost, lostAt, &reason, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.MarkLost(context.Background(), "lead-1", models.LeadStageTourCompleted, lostAt, &reason)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepositoryCountByStage(t *testing.T) {
	db, mock, cleanup := newLeadMock(t)
	defer cleanup()
	repo := NewLeadRepository(db)

	rows := sqlmock.NewRows([]string{"stage", "count"}).
		AddRow("INQUIRY", 7).
		AddRow("CONVERTED", 2)
	mock.ExpectQuery(`SELECT stage, COUNT\(\*\) AS count FROM leads WHERE school_id = \$1 GROUP BY stage`).
		WithArgs("school-1").
		WillReturnRows(rows)

	counts, err := repo.CountByStage(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.LeadStageInquiry, counts[0].Stage)
	assert.Equal(t, 7, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
