package apperrors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNilEntity        = errors.New("nil entity")
)

// Student Errors
var (
	ErrStudentNotFound        = errors.New("student not found")
	ErrStudentIDAlreadyExists = errors.New("student roll number already exists")
	ErrStudentCourseLimit     = errors.New("student has reached the maximum number of courses")
	ErrAssessmentMismatch     = errors.New("assessment belongs to a different student")
)

// Course Errors
var (
	ErrCourseNotFound      = errors.New("course not found")
	ErrCourseAlreadyExists = errors.New("course ID already exists")
	ErrCourseInactive      = errors.New("course is not active")
	ErrCourseFull          = errors.New("course is at maximum enrollment")
	ErrEnrollmentClosed    = errors.New("course enrollment period is over")
	ErrEnrollmentBelowMin  = errors.New("maximum enrollment cannot be lower than current enrollment")
)

// Enrollment Errors
var (
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrNotEnrolled     = errors.New("not enrolled")
)

// Assessment Errors
var (
	ErrAssessmentNotFound      = errors.New("assessment not found")
	ErrAssessmentAlreadyExists = errors.New("assessment ID already exists")
)

// Relation Errors
var (
	ErrHasDependents      = errors.New("entity has dependent records and cannot be removed")
	ErrIntegrityViolation = errors.New("referential integrity violation")
	ErrDuplicateKey       = errors.New("duplicate key")
)

// Storage Errors
var (
	ErrHeaderMismatch    = errors.New("CSV header mismatch")
	ErrInvalidFormat     = errors.New("invalid file format")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInsufficientSpace = errors.New("insufficient disk space")
	ErrBackupFailed      = errors.New("backup failed")
	ErrRestoreFailed     = errors.New("restore failed")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrCommitFailed      = errors.New("commit failed")
)

// ValidationError reports the field that failed validation on construction or update.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidationFailed
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
