package models

import (
	"fmt"
	"strconv"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
	"github.com/yigit/schoolrecords/internal/pkg/helpers"
	"github.com/yigit/schoolrecords/internal/pkg/validation"
)

// Grading constants
const (
	InternalWeight = 0.3
	FinalWeight    = 0.7

	MinMarks = 0.0
	MaxMarks = 100.0

	PassThreshold   = 50.0
	SupplementalMin = 40.0

	DefaultAssessmentType   = "Assignment"
	AssessmentIDMaxLength   = 20
	assessmentCourseIDMinLn = 3
)

// letterThresholds is ordered from highest to lowest.
var letterThresholds = []struct {
	min    float64
	letter string
}{
	{95, "A+"},
	{85, "A"},
	{75, "B+"},
	{65, "B"},
	{55, "C+"},
	{50, "C"},
	{40, "D"},
}

// Assessment holds a student's marks for one course. The weighted grade is
// cached and recomputed after any marks change.
type Assessment struct {
	assessmentID      string
	studentRollNumber int
	courseID          string

	internalMarks  float64
	finalMarks     float64
	assessmentDate string
	assessmentType string
	remarks        string
	submitted      bool
	submissionDate string

	grade      float64
	gradeValid bool
}

type assessmentSettings struct {
	assessmentType string
	remarks        string
	submitted      bool
	submissionDate string
}

// AssessmentOption configures optional assessment fields at construction.
type AssessmentOption func(*assessmentSettings)

// WithAssessmentType overrides the default "Assignment" type.
func WithAssessmentType(t string) AssessmentOption {
	return func(s *assessmentSettings) {
		if t != "" {
			s.assessmentType = t
		}
	}
}

// WithRemarks sets free-text remarks.
func WithRemarks(remarks string) AssessmentOption {
	return func(s *assessmentSettings) {
		s.remarks = remarks
	}
}

// WithSubmission marks the assessment submitted on the given date. An empty
// date leaves the submission date unset.
func WithSubmission(submitted bool, date string) AssessmentOption {
	return func(s *assessmentSettings) {
		s.submitted = submitted
		s.submissionDate = date
	}
}

// GenerateAssessmentID builds the conventional ID for a student and course.
func GenerateAssessmentID(rollNumber int, courseID string) string {
	return "ASS" + strconv.Itoa(rollNumber) + "_" + courseID
}

// NewAssessment validates the fields and returns the assessment. The course
// ID is stored in the same upper-case form as Course IDs.
func NewAssessment(assessmentID string, rollNumber int, courseID string, internalMarks, finalMarks float64, assessmentDate string, opts ...AssessmentOption) (*Assessment, error) {
	settings := assessmentSettings{assessmentType: DefaultAssessmentType}
	for _, opt := range opts {
		opt(&settings)
	}

	if !validation.NewStringValidation(assessmentID).WithMaxLength(AssessmentIDMaxLength).Validate() {
		return nil, apperrors.NewValidationError("assessment ID", fmt.Sprintf("must be 1-%d characters", AssessmentIDMaxLength))
	}
	if !validation.IsValidRollNumber(rollNumber) {
		return nil, apperrors.NewValidationError("student roll number", "must be between 1 and 99999")
	}
	courseID = FormatCourseID(courseID)
	if len(courseID) < assessmentCourseIDMinLn {
		return nil, apperrors.NewValidationError("course ID", "invalid format")
	}
	if !isValidMarks(internalMarks) {
		return nil, apperrors.NewValidationError("internal marks", "must be between 0 and 100")
	}
	if !isValidMarks(finalMarks) {
		return nil, apperrors.NewValidationError("final marks", "must be between 0 and 100")
	}
	if !validation.IsValidDate(assessmentDate) {
		return nil, apperrors.NewValidationError("assessment date", "must be YYYY-MM-DD")
	}
	if settings.submissionDate != "" && !validation.IsValidDate(settings.submissionDate) {
		return nil, apperrors.NewValidationError("submission date", "must be YYYY-MM-DD")
	}

	return &Assessment{
		assessmentID:      assessmentID,
		studentRollNumber: rollNumber,
		courseID:          courseID,
		internalMarks:     internalMarks,
		finalMarks:        finalMarks,
		assessmentDate:    assessmentDate,
		assessmentType:    validation.NormalizeLineBreaks(settings.assessmentType),
		remarks:           validation.NormalizeLineBreaks(settings.remarks),
		submitted:         settings.submitted,
		submissionDate:    settings.submissionDate,
	}, nil
}

func isValidMarks(m float64) bool {
	return validation.NewNumericValidation(m).InRange(MinMarks, MaxMarks).Validate()
}

func (a *Assessment) AssessmentID() string { return a.assessmentID }
func (a *Assessment) StudentRollNumber() int { return a.studentRollNumber }
func (a *Assessment) CourseID() string { return a.courseID }
func (a *Assessment) InternalMarks() float64 { return a.internalMarks }
func (a *Assessment) FinalMarks() float64 { return a.finalMarks }
func (a *Assessment) AssessmentDate() string { return a.assessmentDate }
func (a *Assessment) AssessmentType() string { return a.assessmentType }
func (a *Assessment) Remarks() string { return a.remarks }
func (a *Assessment) IsSubmitted() bool { return a.submitted }
func (a *Assessment) SubmissionDate() string { return a.submissionDate }
func (a *Assessment) InternalContribution() float64 { return a.internalMarks * InternalWeight }
func (a *Assessment) FinalContribution() float64 { return a.finalMarks * FinalWeight }

// CalculatedGrade returns internal*0.3 + final*0.7, computing it at most once
// per marks change.
func (a *Assessment) CalculatedGrade() float64 {
	if !a.gradeValid {
		a.grade = a.InternalContribution() + a.FinalContribution()
		a.gradeValid = true
	}
	return a.grade
}

// LetterGrade maps the calculated grade onto A+ .. F.
func (a *Assessment) LetterGrade() string {
	return LetterGrade(a.CalculatedGrade())
}

// LetterGrade maps a numeric grade onto A+ .. F.
func LetterGrade(grade float64) string {
	for _, t := range letterThresholds {
		if grade >= t.min {
			return t.letter
		}
	}
	return "F"
}

// IsPassing reports whether the calculated grade reaches 50.
func (a *Assessment) IsPassing() bool {
	return a.CalculatedGrade() >= PassThreshold
}

// GradeStatus returns "Pass" or "Fail".
func (a *Assessment) GradeStatus() string {
	if a.IsPassing() {
		return "Pass"
	}
	return "Fail"
}

// SetInternalMarks updates internal marks and invalidates the cached grade.
func (a *Assessment) SetInternalMarks(m float64) error {
	if !isValidMarks(m) {
		return apperrors.NewValidationError("internal marks", "must be between 0 and 100")
	}
	a.internalMarks = m
	a.gradeValid = false
	return nil
}

// SetFinalMarks updates final marks and invalidates the cached grade.
func (a *Assessment) SetFinalMarks(m float64) error {
	if !isValidMarks(m) {
		return apperrors.NewValidationError("final marks", "must be between 0 and 100")
	}
	a.finalMarks = m
	a.gradeValid = false
	return nil
}

// UpdateMarks sets both marks or neither.
func (a *Assessment) UpdateMarks(internal, final float64) error {
	if !isValidMarks(internal) {
		return apperrors.NewValidationError("internal marks", "must be between 0 and 100")
	}
	if !isValidMarks(final) {
		return apperrors.NewValidationError("final marks", "must be between 0 and 100")
	}
	a.internalMarks = internal
	a.finalMarks = final
	a.gradeValid = false
	return nil
}

// SetAssessmentDate updates the assessment date.
func (a *Assessment) SetAssessmentDate(date string) error {
	if !validation.IsValidDate(date) {
		return apperrors.NewValidationError("assessment date", "must be YYYY-MM-DD")
	}
	a.assessmentDate = date
	return nil
}

// SetAssessmentType updates the type after sanitizing it.
func (a *Assessment) SetAssessmentType(t string) {
	a.assessmentType = validation.SanitizeInput(t)
}

// SetRemarks updates remarks after sanitizing them.
func (a *Assessment) SetRemarks(remarks string) {
	a.remarks = validation.SanitizeInput(remarks)
}

// SetSubmitted toggles submission. Marking submitted without a date records today.
func (a *Assessment) SetSubmitted(submitted bool) {
	a.submitted = submitted
	if submitted && a.submissionDate == "" {
		a.submissionDate = helpers.CurrentDate()
	}
}

// SetSubmissionDate records the submission date and marks the assessment submitted.
func (a *Assessment) SetSubmissionDate(date string) error {
	if !validation.IsValidDate(date) {
		return apperrors.NewValidationError("submission date", "must be YYYY-MM-DD")
	}
	a.submissionDate = date
	a.submitted = true
	return nil
}

// MarksDifference returns final minus internal marks.
func (a *Assessment) MarksDifference() float64 {
	return a.finalMarks - a.internalMarks
}

// ImprovementRate returns the change from internal to final marks as a percentage.
func (a *Assessment) ImprovementRate() float64 {
	if a.internalMarks == 0 {
		return 0
	}
	return a.MarksDifference() / a.internalMarks * 100
}

func (a *Assessment) ShowsImprovement() bool { return a.finalMarks > a.internalMarks }
func (a *Assessment) ShowsDecline() bool { return a.finalMarks < a.internalMarks }

// IsLateSubmission reports a submission dated after the assessment date.
func (a *Assessment) IsLateSubmission() bool {
	if !a.submitted || a.submissionDate == "" || a.assessmentDate == "" {
		return false
	}
	return a.submissionDate > a.assessmentDate
}

// DaysLate returns the calendar days between the assessment and a late submission.
func (a *Assessment) DaysLate() int {
	if !a.IsLateSubmission() {
		return 0
	}
	return helpers.DaysBetween(a.assessmentDate, a.submissionDate)
}

// RequiresResubmission is true for a submitted assessment that is failing.
func (a *Assessment) RequiresResubmission() bool {
	return a.submitted && !a.IsPassing()
}

// IsEligibleForSupplemental is true for grades in [40, 50).
func (a *Assessment) IsEligibleForSupplemental() bool {
	g := a.CalculatedGrade()
	return g >= SupplementalMin && g < PassThreshold
}
