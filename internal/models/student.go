package models

import "time"

// EnrollmentStatus tracks a student through the admissions outcome.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusProspective EnrollmentStatus = "PROSPECTIVE"
	EnrollmentStatusApplicant   EnrollmentStatus = "APPLICANT"
	EnrollmentStatusAccepted    EnrollmentStatus = "ACCEPTED"
	EnrollmentStatusWaitlisted  EnrollmentStatus = "WAITLISTED"
	EnrollmentStatusEnrolled    EnrollmentStatus = "ENROLLED"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusGraduated   EnrollmentStatus = "GRADUATED"
	EnrollmentStatusDenied      EnrollmentStatus = "DENIED"
)

// Student is a child tracked for enrollment. It belongs to one primary
// household and may link to additional households for split custody.
type Student struct {
	ID               string           `db:"id" json:"id"`
	SchoolID         string           `db:"school_id" json:"school_id"`
	HouseholdID      string           `db:"household_id" json:"household_id"`
	FirstName        string           `db:"first_name" json:"first_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	GradeLevel       string           `db:"grade_level" json:"grade_level"`
	BirthDate        *time.Time       `db:"birth_date" json:"birth_date,omitempty"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	SchoolID    string
	HouseholdID string
	Status      EnrollmentStatus
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
