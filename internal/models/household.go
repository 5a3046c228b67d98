package models

import "time"

// Household is the billing and contact unit for a family.
type Household struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	Name         string    `db:"name" json:"name"`
	PrimaryEmail string    `db:"primary_email" json:"primary_email"`
	PrimaryPhone string    `db:"primary_phone" json:"primary_phone"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Guardian is an adult contact inside a household. Exactly one guardian per
// household carries is_primary at any time; the household service keeps the
// invariant inside a transaction rather than a database constraint.
type Guardian struct {
	ID           string    `db:"id" json:"id"`
	HouseholdID  string    `db:"household_id" json:"household_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Relationship string    `db:"relationship" json:"relationship"`
	IsPrimary    bool      `db:"is_primary" json:"is_primary"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HouseholdStudent links a student to an additional household for split
// custody. The billing split percentages for one student may not exceed 100.
type HouseholdStudent struct {
	ID                  string    `db:"id" json:"id"`
	HouseholdID         string    `db:"household_id" json:"household_id"`
	StudentID           string    `db:"student_id" json:"student_id"`
	BillingSplitPercent int       `db:"billing_split_percent" json:"billing_split_percent"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// HouseholdFilter encapsulates search parameters for listing households.
type HouseholdFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// HouseholdDetail enriches a household with its guardians and students.
type HouseholdDetail struct {
	Household
	Guardians []Guardian `json:"guardians"`
	Students  []Student  `json:"students"`
}
