package models

import "time"

// LeadStage represents the admissions pipeline position of a lead.
type LeadStage string

// Lead pipeline stages. CONVERTED and LOST are terminal.
const (
	LeadStageInquiry       LeadStage = "INQUIRY"
	LeadStageTourScheduled LeadStage = "TOUR_SCHEDULED"
	LeadStageTourCompleted LeadStage = "TOUR_COMPLETED"
	LeadStageApplied       LeadStage = "APPLIED"
	LeadStageConverted     LeadStage = "CONVERTED"
	LeadStageLost          LeadStage = "LOST"
)

// LeadSource enumerates inquiry channels.
type LeadSource string

// Known lead sources.
const (
	LeadSourceWebsite  LeadSource = "WEBSITE"
	LeadSourceReferral LeadSource = "REFERRAL"
	LeadSourceTour     LeadSource = "TOUR"
	LeadSourceEvent    LeadSource = "EVENT"
	LeadSourcePhone    LeadSource = "PHONE"
	LeadSourceWalkIn   LeadSource = "WALK_IN"
	LeadSourceOther    LeadSource = "OTHER"
)

// IsTerminal reports whether the stage admits no further transitions.
func (s LeadStage) IsTerminal() bool {
	return s == LeadStageConverted || s == LeadStageLost
}

// ValidLeadStage reports whether the value is a known stage.
func ValidLeadStage(s LeadStage) bool {
	switch s {
	case LeadStageInquiry, LeadStageTourScheduled, LeadStageTourCompleted,
		LeadStageApplied, LeadStageConverted, LeadStageLost:
		return true
	}
	return false
}

// CanAdvanceTo reports whether a direct operator-driven stage change from s
// to target is allowed. Operators may move a lead between any non-terminal
// stages or mark it LOST; CONVERTED is only entered via lead conversion.
func (s LeadStage) CanAdvanceTo(target LeadStage) bool {
	if s.IsTerminal() {
		return false
	}
	if !ValidLeadStage(target) || target == LeadStageConverted {
		return false
	}
	return target != s
}

// Lead is a prospective-family inquiry tracked through the admissions
// pipeline. Leads are never hard-deleted.
type Lead struct {
	ID                   string     `db:"id" json:"id"`
	SchoolID             string     `db:"school_id" json:"school_id"`
	FirstName            string     `db:"first_name" json:"first_name"`
	LastName             string     `db:"last_name" json:"last_name"`
	Email                string     `db:"email" json:"email"`
	Phone                string     `db:"phone" json:"phone"`
	Source               LeadSource `db:"source" json:"source"`
	Stage                LeadStage  `db:"stage" json:"stage"`
	InterestedGrades     string     `db:"interested_grades" json:"interested_grades"`
	NumberOfStudents     int        `db:"number_of_students" json:"number_of_students"`
	Notes                string     `db:"notes" json:"notes"`
	TourScheduledAt      *time.Time `db:"tour_scheduled_at" json:"tour_scheduled_at,omitempty"`
	TourCompletedAt      *time.Time `db:"tour_completed_at" json:"tour_completed_at,omitempty"`
	ConvertedHouseholdID *string    `db:"converted_household_id" json:"converted_household_id,omitempty"`
	ConvertedAt          *time.Time `db:"converted_at" json:"converted_at,omitempty"`
	LostReason           *string    `db:"lost_reason" json:"lost_reason,omitempty"`
	LostAt               *time.Time `db:"lost_at" json:"lost_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// LeadFilter encapsulates search parameters for listing leads.
type LeadFilter struct {
	SchoolID  string
	Stage     LeadStage
	Source    LeadSource
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// LeadStageCounts aggregates leads per stage for the funnel dashboard.
type LeadStageCounts struct {
	Stage LeadStage `db:"stage" json:"stage"`
	Count int       `db:"count" json:"count"`
}
