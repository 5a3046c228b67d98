package models

import "time"

// ApplicationStatus represents the decision pipeline position of an application.
type ApplicationStatus string

// Application statuses. ENROLLED, DENIED and WITHDRAWN are terminal.
const (
	ApplicationStatusDraft              ApplicationStatus = "DRAFT"
	ApplicationStatusSubmitted          ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview        ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusInterviewScheduled ApplicationStatus = "INTERVIEW_SCHEDULED"
	ApplicationStatusInterviewCompleted ApplicationStatus = "INTERVIEW_COMPLETED"
	ApplicationStatusAccepted           ApplicationStatus = "ACCEPTED"
	ApplicationStatusWaitlisted         ApplicationStatus = "WAITLISTED"
	ApplicationStatusDenied             ApplicationStatus = "DENIED"
	ApplicationStatusEnrolled           ApplicationStatus = "ENROLLED"
	ApplicationStatusWithdrawn          ApplicationStatus = "WITHDRAWN"
)

// applicationTransitions is the exhaustive per-status set of allowed targets.
// Withdrawal is possible from every non-terminal status; enrollment only
// from ACCEPTED.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusDraft:              {ApplicationStatusSubmitted, ApplicationStatusWithdrawn},
	ApplicationStatusSubmitted:          {ApplicationStatusUnderReview, ApplicationStatusWithdrawn},
	ApplicationStatusUnderReview:        {ApplicationStatusInterviewScheduled, ApplicationStatusAccepted, ApplicationStatusWaitlisted, ApplicationStatusDenied, ApplicationStatusWithdrawn},
	ApplicationStatusInterviewScheduled: {ApplicationStatusInterviewCompleted, ApplicationStatusWithdrawn},
	ApplicationStatusInterviewCompleted: {ApplicationStatusAccepted, ApplicationStatusWaitlisted, ApplicationStatusDenied, ApplicationStatusWithdrawn},
	ApplicationStatusAccepted:           {ApplicationStatusEnrolled, ApplicationStatusWithdrawn},
	ApplicationStatusWaitlisted:         {ApplicationStatusAccepted, ApplicationStatusWithdrawn},
	ApplicationStatusDenied:             {},
	ApplicationStatusEnrolled:           {},
	ApplicationStatusWithdrawn:          {},
}

// IsTerminal reports whether the status admits no further transitions.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// DecisionOutcome reports whether the status is a valid decision result.
func (s ApplicationStatus) DecisionOutcome() bool {
	return s == ApplicationStatusAccepted || s == ApplicationStatusWaitlisted || s == ApplicationStatusDenied
}

// Application is one student's formal enrollment request for a school year
// and grade. Applications are never deleted, only withdrawn.
type Application struct {
	ID                   string            `db:"id" json:"id"`
	SchoolID             string            `db:"school_id" json:"school_id"`
	StudentID            string            `db:"student_id" json:"student_id"`
	LeadID               *string           `db:"lead_id" json:"lead_id,omitempty"`
	SchoolYear           string            `db:"school_year" json:"school_year"`
	GradeApplyingFor     string            `db:"grade_applying_for" json:"grade_applying_for"`
	Status               ApplicationStatus `db:"status" json:"status"`
	SubmittedAt          *time.Time        `db:"submitted_at" json:"submitted_at,omitempty"`
	InterviewScheduledAt *time.Time        `db:"interview_scheduled_at" json:"interview_scheduled_at,omitempty"`
	InterviewCompletedAt *time.Time        `db:"interview_completed_at" json:"interview_completed_at,omitempty"`
	DecisionAt           *time.Time        `db:"decision_at" json:"decision_at,omitempty"`
	DecisionBy           *string           `db:"decision_by" json:"decision_by,omitempty"`
	DecisionNotes        *string           `db:"decision_notes" json:"decision_notes,omitempty"`
	WaitlistPosition     *int              `db:"waitlist_position" json:"waitlist_position,omitempty"`
	ApplicationFeePaid   bool              `db:"application_fee_paid" json:"application_fee_paid"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail enriches an application with student context.
type ApplicationDetail struct {
	Application
	StudentFirstName string `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string `db:"student_last_name" json:"student_last_name"`
	HouseholdID      string `db:"household_id" json:"household_id"`
}

// ApplicationFilter encapsulates search parameters for listing applications.
type ApplicationFilter struct {
	SchoolID   string
	StudentID  string
	SchoolYear string
	Status     ApplicationStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ApplicationStatusCounts aggregates applications per status for the funnel.
type ApplicationStatusCounts struct {
	Status ApplicationStatus `db:"status" json:"status"`
	Count  int               `db:"count" json:"count"`
}
