package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openadmit/admissions-api/internal/models"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type householdRepository interface {
	FindByID(ctx context.Context, id string) (*models.Household, error)
	List(ctx context.Context, filter models.HouseholdFilter) ([]models.Household, int, error)
	ListGuardians(ctx context.Context, householdID string) ([]models.Guardian, error)
	ListStudents(ctx context.Context, householdID string) ([]models.Student, error)
	AddGuardian(ctx context.Context, guardian *models.Guardian) error
	SetPrimaryGuardian(ctx context.Context, householdID, guardianID string) error
	SumBillingSplit(ctx context.Context, studentID string) (int, error)
	AttachStudent(ctx context.Context, link *models.HouseholdStudent) error
}

// AddGuardianRequest captures a new guardian for a household.
type AddGuardianRequest struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// AttachStudentRequest links an existing student to an additional household.
type AttachStudentRequest struct {
	StudentID           string `json:"student_id" validate:"required"`
	BillingSplitPercent int    `json:"billing_split_percent" validate:"required,min=1,max=100"`
}

// HouseholdService manages households, guardians and split-custody links.
type HouseholdService struct {
	repo      householdRepository
	students  studentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHouseholdService constructs HouseholdService.
func NewHouseholdService(repo householdRepository, students studentReader, validate *validator.Validate, logger *zap.Logger) *HouseholdService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HouseholdService{repo: repo, students: students, validator: validate, logger: logger}
}

// Get returns a household together with its guardians and students.
func (s *HouseholdService) Get(ctx context.Context, id string) (*models.HouseholdDetail, error) {
	household, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "household not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load household")
	}
	guardians, err := s.repo.ListGuardians(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}
	students, err := s.repo.ListStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load household students")
	}
	return &models.HouseholdDetail{Household: *household, Guardians: guardians, Students: students}, nil
}

// List returns households with pagination metadata.
func (s *HouseholdService) List(ctx context.Context, filter models.HouseholdFilter) ([]models.Household, *models.Pagination, error) {
	households, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list households")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return households, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AddGuardian adds a non-primary guardian to a household.
func (s *HouseholdService) AddGuardian(ctx context.Context, householdID string, req AddGuardianRequest) (*models.Guardian, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid guardian payload")
	}
	if _, err := s.repo.FindByID(ctx, householdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "household not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load household")
	}
	guardian := &models.Guardian{
		HouseholdID:  householdID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Relationship: req.Relationship,
		IsPrimary:    false,
	}
	if err := s.repo.AddGuardian(ctx, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add guardian")
	}
	return guardian, nil
}

// SetPrimaryGuardian promotes the given guardian; exactly one guardian per
// household is primary afterwards.
func (s *HouseholdService) SetPrimaryGuardian(ctx context.Context, householdID, guardianID string) (*models.HouseholdDetail, error) {
	if err := s.repo.SetPrimaryGuardian(ctx, householdID, guardianID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found in household")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set primary guardian")
	}
	return s.Get(ctx, householdID)
}

// AttachStudent links a student to a secondary household for billing. The
// combined split percentage across households may not exceed 100.
func (s *HouseholdService) AttachStudent(ctx context.Context, householdID string, req AttachStudentRequest) (*models.HouseholdStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attach payload")
	}
	if _, err := s.repo.FindByID(ctx, householdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "household not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load household")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	allocated, err := s.repo.SumBillingSplit(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum billing split")
	}
	if allocated+req.BillingSplitPercent > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "billing split for student would exceed 100 percent")
	}

	link := &models.HouseholdStudent{
		HouseholdID:         householdID,
		StudentID:           req.StudentID,
		BillingSplitPercent: req.BillingSplitPercent,
	}
	if err := s.repo.AttachStudent(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach student")
	}
	return link, nil
}
