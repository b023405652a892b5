package models

import (
	"fmt"
	"strings"
)

// EnrollmentStatus is the state column of an enrollment row.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "Active"
	EnrollmentWithdrawn EnrollmentStatus = "Withdrawn"
)

// ParseEnrollmentStatus matches a stored status case-insensitively. Unknown
// values are returned as-is.
func ParseEnrollmentStatus(s string) EnrollmentStatus {
	switch {
	case strings.EqualFold(s, string(EnrollmentActive)):
		return EnrollmentActive
	case strings.EqualFold(s, string(EnrollmentWithdrawn)):
		return EnrollmentWithdrawn
	default:
		return EnrollmentStatus(s)
	}
}

// Enrollment is the persisted form of a Student-Course link. It is derived
// from the registry on save and only used to rebuild links on load.
type Enrollment struct {
	EnrollmentID      string
	StudentRollNumber int
	CourseID          string
	EnrollmentDate    string
	Status            EnrollmentStatus
}

// EnrollmentID formats the sequential enrollment identifier (ENR001, ENR002, ...).
func EnrollmentID(seq int) string {
	return fmt.Sprintf("ENR%03d", seq)
}
