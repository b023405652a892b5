package models

import (
	"fmt"
	"slices"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
	"github.com/yigit/schoolrecords/internal/pkg/validation"
)

// MaxStudentEnrollments is the number of courses a student may hold at once.
const MaxStudentEnrollments = 8

// Student is a validated student record. Related courses and assessments are
// held by ID; the registry resolves them.
type Student struct {
	rollNumber       int
	firstName        string
	lastName         string
	address          string
	dateOfBirth      string
	contactEmail     string
	emergencyContact string
	enrollmentDate   string

	courseIDs     []string
	assessmentIDs []string
}

// NewStudentParams holds the constructor input for a Student.
type NewStudentParams struct {
	RollNumber       int
	FirstName        string
	LastName         string
	DateOfBirth      string
	Address          string
	ContactEmail     string
	EmergencyContact string // phone number or email
	EnrollmentDate   string
}

// NewStudent validates every field and returns the student, or the first
// validation error. Nothing is constructed on failure.
func NewStudent(p NewStudentParams) (*Student, error) {
	if !validation.IsValidRollNumber(p.RollNumber) {
		return nil, apperrors.NewValidationError("roll number",
			fmt.Sprintf("must be between %d and %d", validation.RollNumberMin, validation.RollNumberMax))
	}
	if !validation.IsValidName(p.FirstName) {
		return nil, apperrors.NewValidationError("first name", "must be 1-50 letters, digits, spaces or ' - .")
	}
	if !validation.IsValidName(p.LastName) {
		return nil, apperrors.NewValidationError("last name", "must be 1-50 letters, digits, spaces or ' - .")
	}
	if !validation.IsValidDateFormat(p.DateOfBirth) {
		return nil, apperrors.NewValidationError("date of birth", "must be YYYY-MM-DD")
	}
	if !validation.IsValidDate(p.DateOfBirth) {
		return nil, apperrors.NewValidationError("date of birth", "not a calendar date")
	}
	p.Address = validation.NormalizeLineBreaks(p.Address)
	if !isValidAddress(p.Address) {
		return nil, apperrors.NewValidationError("address", "must be 1-100 characters")
	}
	if !validation.IsValidEmail(p.ContactEmail) {
		return nil, apperrors.NewValidationError("contact email", "invalid format")
	}
	if !isValidEmergencyContact(p.EmergencyContact) {
		return nil, apperrors.NewValidationError("emergency contact", "must be a phone number or email address")
	}
	if !validation.IsValidDateFormat(p.EnrollmentDate) {
		return nil, apperrors.NewValidationError("enrollment date", "must be YYYY-MM-DD")
	}
	if !validation.IsDateNotFuture(p.EnrollmentDate) {
		return nil, apperrors.NewValidationError("enrollment date", "not a calendar date")
	}

	return &Student{
		rollNumber:       p.RollNumber,
		firstName:        p.FirstName,
		lastName:         p.LastName,
		address:          p.Address,
		dateOfBirth:      p.DateOfBirth,
		contactEmail:     p.ContactEmail,
		emergencyContact: p.EmergencyContact,
		enrollmentDate:   p.EnrollmentDate,
	}, nil
}

func isValidAddress(address string) bool {
	return validation.NewStringValidation(address).WithMinLength(1).WithMaxLength(100).Validate()
}

func isValidEmergencyContact(contact string) bool {
	return validation.IsValidPhoneNumber(contact) || validation.IsValidEmail(contact)
}

func (s *Student) RollNumber() int { return s.rollNumber }
func (s *Student) FirstName() string { return s.firstName }
func (s *Student) LastName() string { return s.lastName }
func (s *Student) Address() string { return s.address }
func (s *Student) DateOfBirth() string { return s.dateOfBirth }
func (s *Student) ContactEmail() string { return s.contactEmail }
func (s *Student) EmergencyContact() string { return s.emergencyContact }
func (s *Student) EnrollmentDate() string { return s.enrollmentDate }

// FullName returns "First Last".
func (s *Student) FullName() string {
	return s.firstName + " " + s.lastName
}

// SetFirstName updates the first name after sanitizing it.
func (s *Student) SetFirstName(name string) error {
	name = validation.SanitizeInput(name)
	if !validation.IsValidName(name) {
		return apperrors.NewValidationError("first name", "must be 1-50 letters, digits, spaces or ' - .")
	}
	s.firstName = name
	return nil
}

// SetLastName updates the last name after sanitizing it.
func (s *Student) SetLastName(name string) error {
	name = validation.SanitizeInput(name)
	if !validation.IsValidName(name) {
		return apperrors.NewValidationError("last name", "must be 1-50 letters, digits, spaces or ' - .")
	}
	s.lastName = name
	return nil
}

// SetAddress updates the address after sanitizing it.
func (s *Student) SetAddress(address string) error {
	address = validation.SanitizeInput(address)
	if !isValidAddress(address) {
		return apperrors.NewValidationError("address", "must be 1-100 characters")
	}
	s.address = address
	return nil
}

// SetContactEmail updates the contact email.
func (s *Student) SetContactEmail(email string) error {
	email = validation.TrimString(email)
	if !validation.IsValidEmail(email) {
		return apperrors.NewValidationError("contact email", "invalid format")
	}
	s.contactEmail = email
	return nil
}

// SetEmergencyContact updates the emergency contact (phone or email).
func (s *Student) SetEmergencyContact(contact string) error {
	contact = validation.TrimString(contact)
	if !isValidEmergencyContact(contact) {
		return apperrors.NewValidationError("emergency contact", "must be a phone number or email address")
	}
	s.emergencyContact = contact
	return nil
}

// EnrollInCourse records the course on the student's side only. The course
// roster is not touched.
func (s *Student) EnrollInCourse(course *Course) error {
	if course == nil {
		return fmt.Errorf("%w: cannot enroll in nil course", apperrors.ErrNilEntity)
	}
	if s.IsEnrolledInCourse(course.CourseID()) {
		return fmt.Errorf("%w: student %d in course %s", apperrors.ErrAlreadyEnrolled, s.rollNumber, course.CourseID())
	}
	if len(s.courseIDs) >= MaxStudentEnrollments {
		return fmt.Errorf("%w: limit is %d", apperrors.ErrStudentCourseLimit, MaxStudentEnrollments)
	}
	s.courseIDs = append(s.courseIDs, course.CourseID())
	return nil
}

// WithdrawFromCourse removes the course from the student's side only.
func (s *Student) WithdrawFromCourse(courseID string) error {
	idx := slices.Index(s.courseIDs, courseID)
	if idx < 0 {
		return fmt.Errorf("%w: student %d is not enrolled in course %s", apperrors.ErrNotEnrolled, s.rollNumber, courseID)
	}
	s.courseIDs = slices.Delete(s.courseIDs, idx, idx+1)
	return nil
}

// IsEnrolledInCourse reports whether courseID is on the student's list.
func (s *Student) IsEnrolledInCourse(courseID string) bool {
	return slices.Contains(s.courseIDs, courseID)
}

// EnrolledCourseIDs returns a copy of the enrolled course IDs in enrollment order.
func (s *Student) EnrolledCourseIDs() []string {
	return slices.Clone(s.courseIDs)
}

// EnrollmentCount returns the number of enrolled courses.
func (s *Student) EnrollmentCount() int {
	return len(s.courseIDs)
}

// CanEnrollMore reports whether the student is below the course limit.
func (s *Student) CanEnrollMore() bool {
	return len(s.courseIDs) < MaxStudentEnrollments
}

// AddAssessment links an assessment that carries this student's roll number.
func (s *Student) AddAssessment(a *Assessment) error {
	if a == nil {
		return fmt.Errorf("%w: cannot add nil assessment", apperrors.ErrNilEntity)
	}
	if a.StudentRollNumber() != s.rollNumber {
		return fmt.Errorf("%w: assessment %s is for student %d", apperrors.ErrAssessmentMismatch, a.AssessmentID(), a.StudentRollNumber())
	}
	if s.HasAssessment(a.AssessmentID()) {
		return fmt.Errorf("%w: %s", apperrors.ErrAssessmentAlreadyExists, a.AssessmentID())
	}
	s.assessmentIDs = append(s.assessmentIDs, a.AssessmentID())
	return nil
}

// RemoveAssessment unlinks an assessment by ID.
func (s *Student) RemoveAssessment(assessmentID string) error {
	idx := slices.Index(s.assessmentIDs, assessmentID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrAssessmentNotFound, assessmentID)
	}
	s.assessmentIDs = slices.Delete(s.assessmentIDs, idx, idx+1)
	return nil
}

// HasAssessment reports whether the assessment is linked to the student.
func (s *Student) HasAssessment(assessmentID string) bool {
	return slices.Contains(s.assessmentIDs, assessmentID)
}

// AssessmentIDs returns a copy of the linked assessment IDs.
func (s *Student) AssessmentIDs() []string {
	return slices.Clone(s.assessmentIDs)
}
