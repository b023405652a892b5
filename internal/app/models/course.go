package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
	"github.com/yigit/schoolrecords/internal/pkg/helpers"
	"github.com/yigit/schoolrecords/internal/pkg/validation"
)

// Course limits
const (
	DefaultMaxEnrollment  = 30
	AbsoluteMaxEnrollment = 50
	MinCredits            = 1
	MaxCredits            = 6
	MinDuration           = 1
	MaxDuration           = 52
	CourseNameMaxLength   = 100
)

// Course is a validated course record. The roster holds roll numbers in
// enrollment order.
type Course struct {
	courseID      string
	courseName    string
	credits       int
	description   string
	teacher       string
	duration      int // weeks
	startDate     string
	endDate       string
	maxEnrollment int
	active        bool

	roster []int
}

type courseSettings struct {
	teacher       *string
	startDate     string
	endDate       string
	maxEnrollment int
	active        bool
}

// CourseOption configures optional course fields at construction.
type CourseOption func(*courseSettings)

// WithTeacher sets the teacher name; it must not be empty.
func WithTeacher(teacher string) CourseOption {
	return func(s *courseSettings) {
		s.teacher = &teacher
	}
}

// WithSchedule sets the start and end dates. Either may be empty.
func WithSchedule(startDate, endDate string) CourseOption {
	return func(s *courseSettings) {
		s.startDate = startDate
		s.endDate = endDate
	}
}

// WithMaxEnrollment overrides the default capacity of 30.
func WithMaxEnrollment(n int) CourseOption {
	return func(s *courseSettings) {
		s.maxEnrollment = n
	}
}

// WithActive sets the active flag (default true).
func WithActive(active bool) CourseOption {
	return func(s *courseSettings) {
		s.active = active
	}
}

// FormatCourseID upper-cases and trims a course code.
func FormatCourseID(id string) string {
	return strings.ToUpper(validation.TrimString(id))
}

// NewCourse validates the fields and returns the course. The ID is
// upper-cased before validation.
func NewCourse(courseID, name string, credits int, description string, duration int, opts ...CourseOption) (*Course, error) {
	settings := courseSettings{maxEnrollment: DefaultMaxEnrollment, active: true}
	for _, opt := range opts {
		opt(&settings)
	}

	courseID = FormatCourseID(courseID)
	name = validation.NormalizeLineBreaks(name)
	description = validation.NormalizeLineBreaks(description)
	if !validation.IsValidCourseID(courseID) {
		return nil, apperrors.NewValidationError("course ID", "must be 6-10 characters, uppercase letters followed by digits (e.g. MATH101)")
	}
	if !isValidCourseName(name) {
		return nil, apperrors.NewValidationError("course name", "must be 1-100 characters")
	}
	if !isValidCredits(credits) {
		return nil, apperrors.NewValidationError("credits", fmt.Sprintf("must be between %d and %d", MinCredits, MaxCredits))
	}
	if !isValidDuration(duration) {
		return nil, apperrors.NewValidationError("duration", fmt.Sprintf("must be between %d and %d weeks", MinDuration, MaxDuration))
	}

	c := &Course{
		courseID:      courseID,
		courseName:    name,
		credits:       credits,
		description:   description,
		duration:      duration,
		maxEnrollment: DefaultMaxEnrollment,
		active:        settings.active,
	}

	if settings.teacher != nil {
		if *settings.teacher == "" {
			return nil, apperrors.NewValidationError("teacher", "cannot be empty")
		}
		c.teacher = validation.NormalizeLineBreaks(*settings.teacher)
	}

	if err := validateSchedule(settings.startDate, settings.endDate); err != nil {
		return nil, err
	}
	c.startDate = settings.startDate
	c.endDate = settings.endDate

	if settings.maxEnrollment < 1 || settings.maxEnrollment > AbsoluteMaxEnrollment {
		return nil, apperrors.NewValidationError("max enrollment", fmt.Sprintf("must be between 1 and %d", AbsoluteMaxEnrollment))
	}
	c.maxEnrollment = settings.maxEnrollment

	return c, nil
}

func isValidCourseName(name string) bool {
	return validation.NewStringValidation(name).WithMaxLength(CourseNameMaxLength).Validate()
}

func isValidCredits(credits int) bool {
	return validation.NewNumericValidation(float64(credits)).InRange(MinCredits, MaxCredits).Validate()
}

func isValidDuration(weeks int) bool {
	return validation.NewNumericValidation(float64(weeks)).InRange(MinDuration, MaxDuration).Validate()
}

func validateSchedule(start, end string) error {
	if start != "" && !validation.IsValidDate(start) {
		return apperrors.NewValidationError("start date", "must be YYYY-MM-DD")
	}
	if end != "" && !validation.IsValidDate(end) {
		return apperrors.NewValidationError("end date", "must be YYYY-MM-DD")
	}
	if start != "" && end != "" && end <= start {
		return apperrors.NewValidationError("end date", "must be after start date")
	}
	return nil
}

func (c *Course) CourseID() string { return c.courseID }
func (c *Course) CourseName() string { return c.courseName }
func (c *Course) Credits() int { return c.credits }
func (c *Course) Description() string { return c.description }
func (c *Course) Teacher() string { return c.teacher }
func (c *Course) Duration() int { return c.duration }
func (c *Course) StartDate() string { return c.startDate }
func (c *Course) EndDate() string { return c.endDate }
func (c *Course) MaxEnrollment() int { return c.maxEnrollment }
func (c *Course) IsActive() bool { return c.active }

// SetCourseName updates the name after sanitizing it.
func (c *Course) SetCourseName(name string) error {
	name = validation.SanitizeInput(name)
	if !isValidCourseName(name) {
		return apperrors.NewValidationError("course name", "must be 1-100 characters")
	}
	c.courseName = name
	return nil
}

// SetCredits updates the credit count.
func (c *Course) SetCredits(credits int) error {
	if !isValidCredits(credits) {
		return apperrors.NewValidationError("credits", fmt.Sprintf("must be between %d and %d", MinCredits, MaxCredits))
	}
	c.credits = credits
	return nil
}

// SetDescription updates the description after sanitizing it.
func (c *Course) SetDescription(description string) {
	c.description = validation.SanitizeInput(description)
}

// SetTeacher updates the teacher name.
func (c *Course) SetTeacher(teacher string) error {
	teacher = validation.SanitizeInput(teacher)
	if teacher == "" {
		return apperrors.NewValidationError("teacher", "cannot be empty")
	}
	c.teacher = teacher
	return nil
}

// SetDuration updates the duration in weeks.
func (c *Course) SetDuration(weeks int) error {
	if !isValidDuration(weeks) {
		return apperrors.NewValidationError("duration", fmt.Sprintf("must be between %d and %d weeks", MinDuration, MaxDuration))
	}
	c.duration = weeks
	return nil
}

// SetStartDate updates the start date, keeping it before the end date.
func (c *Course) SetStartDate(date string) error {
	if err := validateSchedule(date, c.endDate); err != nil {
		return err
	}
	c.startDate = date
	return nil
}

// SetEndDate updates the end date, keeping it after the start date.
func (c *Course) SetEndDate(date string) error {
	if err := validateSchedule(c.startDate, date); err != nil {
		return err
	}
	c.endDate = date
	return nil
}

// SetMaxEnrollment changes the capacity. It cannot drop below the current roster size.
func (c *Course) SetMaxEnrollment(n int) error {
	if n < 1 || n > AbsoluteMaxEnrollment {
		return apperrors.NewValidationError("max enrollment", fmt.Sprintf("must be between 1 and %d", AbsoluteMaxEnrollment))
	}
	if n < len(c.roster) {
		return fmt.Errorf("%w: %d students enrolled", apperrors.ErrEnrollmentBelowMin, len(c.roster))
	}
	c.maxEnrollment = n
	return nil
}

// SetActive toggles the active flag.
func (c *Course) SetActive(active bool) {
	c.active = active
}

// CurrentEnrollment returns the roster size.
func (c *Course) CurrentEnrollment() int {
	return len(c.roster)
}

// AvailableSpots returns the remaining capacity.
func (c *Course) AvailableSpots() int {
	return c.maxEnrollment - len(c.roster)
}

// EnrollmentPercentage returns the roster size as a percentage of capacity.
func (c *Course) EnrollmentPercentage() float64 {
	if c.maxEnrollment == 0 {
		return 0
	}
	return float64(len(c.roster)) / float64(c.maxEnrollment) * 100
}

// IsFull reports whether the course is at capacity.
func (c *Course) IsFull() bool {
	return len(c.roster) >= c.maxEnrollment
}

// IsEnrollmentPeriodActive is false only when an end date is set and today is past it.
func (c *Course) IsEnrollmentPeriodActive() bool {
	if c.endDate == "" {
		return true
	}
	end, err := helpers.ParseDate(c.endDate)
	if err != nil {
		return true
	}
	return !helpers.Today().After(end)
}

// CanEnrollMoreStudents reports whether EnrollStudent could currently succeed
// for a new student.
func (c *Course) CanEnrollMoreStudents() bool {
	return c.active && !c.IsFull() && c.IsEnrollmentPeriodActive()
}

// EnrollStudent adds the student to the roster only. The student's own
// course list is not touched.
func (c *Course) EnrollStudent(student *Student) error {
	if student == nil {
		return fmt.Errorf("%w: cannot enroll nil student", apperrors.ErrNilEntity)
	}
	if !c.active {
		return fmt.Errorf("%w: %s", apperrors.ErrCourseInactive, c.courseID)
	}
	if c.IsStudentEnrolled(student.RollNumber()) {
		return fmt.Errorf("%w: student %d in course %s", apperrors.ErrAlreadyEnrolled, student.RollNumber(), c.courseID)
	}
	if c.IsFull() {
		return fmt.Errorf("%w: %s (%d)", apperrors.ErrCourseFull, c.courseID, c.maxEnrollment)
	}
	if !c.IsEnrollmentPeriodActive() {
		return fmt.Errorf("%w: %s ended %s", apperrors.ErrEnrollmentClosed, c.courseID, c.endDate)
	}
	c.roster = append(c.roster, student.RollNumber())
	return nil
}

// WithdrawStudent removes a roll number from the roster only.
func (c *Course) WithdrawStudent(rollNumber int) error {
	idx := slices.Index(c.roster, rollNumber)
	if idx < 0 {
		return fmt.Errorf("%w: student %d is not enrolled in course %s", apperrors.ErrNotEnrolled, rollNumber, c.courseID)
	}
	c.roster = slices.Delete(c.roster, idx, idx+1)
	return nil
}

// IsStudentEnrolled reports whether rollNumber is on the roster.
func (c *Course) IsStudentEnrolled(rollNumber int) bool {
	return slices.Contains(c.roster, rollNumber)
}

// EnrolledRollNumbers returns a copy of the roster.
func (c *Course) EnrolledRollNumbers() []int {
	return slices.Clone(c.roster)
}
