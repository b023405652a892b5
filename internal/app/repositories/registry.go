package repositories

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

// Registry owns every loaded entity. Entities are kept in insertion order
// and indexed by their stable key; relationships are stored on the entities
// as keys, so the registry is the only place that resolves them.
type Registry struct {
	students      []*models.Student
	studentIdx    map[int]*models.Student
	courses       []*models.Course
	courseIdx     map[string]*models.Course
	assessments   []*models.Assessment
	assessmentIdx map[string]*models.Assessment
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		studentIdx:    make(map[int]*models.Student),
		courseIdx:     make(map[string]*models.Course),
		assessmentIdx: make(map[string]*models.Assessment),
	}
}

// AddStudent registers a student. Roll numbers must be unique.
func (r *Registry) AddStudent(s *models.Student) error {
	if s == nil {
		return fmt.Errorf("%w: student", apperrors.ErrNilEntity)
	}
	if _, exists := r.studentIdx[s.RollNumber()]; exists {
		return fmt.Errorf("%w: %d", apperrors.ErrStudentIDAlreadyExists, s.RollNumber())
	}
	r.students = append(r.students, s)
	r.studentIdx[s.RollNumber()] = s
	return nil
}

// AddCourse registers a course. Course IDs must be unique.
func (r *Registry) AddCourse(c *models.Course) error {
	if c == nil {
		return fmt.Errorf("%w: course", apperrors.ErrNilEntity)
	}
	if _, exists := r.courseIdx[c.CourseID()]; exists {
		return fmt.Errorf("%w: %s", apperrors.ErrCourseAlreadyExists, c.CourseID())
	}
	r.courses = append(r.courses, c)
	r.courseIdx[c.CourseID()] = c
	return nil
}

// AddAssessment registers an assessment and links it to its student when the
// student is known. Dangling references are kept for the integrity check.
func (r *Registry) AddAssessment(a *models.Assessment) error {
	if a == nil {
		return fmt.Errorf("%w: assessment", apperrors.ErrNilEntity)
	}
	if _, exists := r.assessmentIdx[a.AssessmentID()]; exists {
		return fmt.Errorf("%w: %s", apperrors.ErrAssessmentAlreadyExists, a.AssessmentID())
	}
	if s, ok := r.studentIdx[a.StudentRollNumber()]; ok && !s.HasAssessment(a.AssessmentID()) {
		if err := s.AddAssessment(a); err != nil {
			return err
		}
	}
	r.assessments = append(r.assessments, a)
	r.assessmentIdx[a.AssessmentID()] = a
	return nil
}

// FindStudent looks a student up by roll number.
func (r *Registry) FindStudent(roll int) (*models.Student, error) {
	s, ok := r.studentIdx[roll]
	if !ok {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrStudentNotFound, roll)
	}
	return s, nil
}

// FindCourse looks a course up by ID. The ID is normalized first.
func (r *Registry) FindCourse(courseID string) (*models.Course, error) {
	c, ok := r.courseIdx[models.FormatCourseID(courseID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCourseNotFound, courseID)
	}
	return c, nil
}

// FindAssessment looks an assessment up by ID.
func (r *Registry) FindAssessment(assessmentID string) (*models.Assessment, error) {
	a, ok := r.assessmentIdx[assessmentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrAssessmentNotFound, assessmentID)
	}
	return a, nil
}

// FindStudentsByName returns students whose full name contains query, case-insensitively.
func (r *Registry) FindStudentsByName(query string) []*models.Student {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []*models.Student
	for _, s := range r.students {
		if strings.Contains(strings.ToLower(s.FullName()), q) {
			out = append(out, s)
		}
	}
	return out
}

// Students returns the students in insertion order.
func (r *Registry) Students() []*models.Student { return slices.Clone(r.students) }

// Courses returns the courses in insertion order.
func (r *Registry) Courses() []*models.Course { return slices.Clone(r.courses) }

// Assessments returns the assessments in insertion order.
func (r *Registry) Assessments() []*models.Assessment { return slices.Clone(r.assessments) }

// AssessmentsForStudent returns the assessments carrying roll.
func (r *Registry) AssessmentsForStudent(roll int) []*models.Assessment {
	var out []*models.Assessment
	for _, a := range r.assessments {
		if a.StudentRollNumber() == roll {
			out = append(out, a)
		}
	}
	return out
}

// AssessmentsForCourse returns the assessments for courseID.
func (r *Registry) AssessmentsForCourse(courseID string) []*models.Assessment {
	courseID = models.FormatCourseID(courseID)
	var out []*models.Assessment
	for _, a := range r.assessments {
		if a.CourseID() == courseID {
			out = append(out, a)
		}
	}
	return out
}

// StudentCourses resolves a student's enrolled course IDs. Unknown IDs are skipped.
func (r *Registry) StudentCourses(roll int) []*models.Course {
	s, ok := r.studentIdx[roll]
	if !ok {
		return nil
	}
	var out []*models.Course
	for _, id := range s.EnrolledCourseIDs() {
		if c, ok := r.courseIdx[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// CourseStudents resolves a course roster. Unknown roll numbers are skipped.
func (r *Registry) CourseStudents(courseID string) []*models.Student {
	c, ok := r.courseIdx[models.FormatCourseID(courseID)]
	if !ok {
		return nil
	}
	var out []*models.Student
	for _, roll := range c.EnrolledRollNumbers() {
		if s, ok := r.studentIdx[roll]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Enroll links a student and a course on both sides. If the student side
// refuses, the course side is rolled back so no half-link remains.
func (r *Registry) Enroll(roll int, courseID string) error {
	s, err := r.FindStudent(roll)
	if err != nil {
		return err
	}
	c, err := r.FindCourse(courseID)
	if err != nil {
		return err
	}

	if err := c.EnrollStudent(s); err != nil {
		return err
	}
	if err := s.EnrollInCourse(c); err != nil {
		if rbErr := c.WithdrawStudent(roll); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return nil
}

// Withdraw removes the link on both sides. A half-link left by one-sided
// calls is removed as well; only a missing link on both sides is an error.
func (r *Registry) Withdraw(roll int, courseID string) error {
	s, err := r.FindStudent(roll)
	if err != nil {
		return err
	}
	c, err := r.FindCourse(courseID)
	if err != nil {
		return err
	}

	studentSide := s.IsEnrolledInCourse(c.CourseID())
	courseSide := c.IsStudentEnrolled(roll)
	if !studentSide && !courseSide {
		return fmt.Errorf("%w: student %d in course %s", apperrors.ErrNotEnrolled, roll, c.CourseID())
	}
	if studentSide {
		if err := s.WithdrawFromCourse(c.CourseID()); err != nil {
			return err
		}
	}
	if courseSide {
		if err := c.WithdrawStudent(roll); err != nil {
			return err
		}
	}
	return nil
}

// IsEnrolled reports whether both halves of the link exist.
func (r *Registry) IsEnrolled(roll int, courseID string) bool {
	s, ok := r.studentIdx[roll]
	if !ok {
		return false
	}
	c, ok := r.courseIdx[models.FormatCourseID(courseID)]
	if !ok {
		return false
	}
	return s.IsEnrolledInCourse(c.CourseID()) && c.IsStudentEnrolled(roll)
}

// RemoveStudent deletes a student. Without cascade it refuses when the
// student still has enrollments or assessments; with cascade those are
// withdrawn and deleted first.
func (r *Registry) RemoveStudent(roll int, cascade bool) error {
	s, err := r.FindStudent(roll)
	if err != nil {
		return err
	}

	var linkedCourses []*models.Course
	for _, c := range r.courses {
		if c.IsStudentEnrolled(roll) || s.IsEnrolledInCourse(c.CourseID()) {
			linkedCourses = append(linkedCourses, c)
		}
	}
	dependents := r.AssessmentsForStudent(roll)

	if !cascade && (len(linkedCourses) > 0 || len(dependents) > 0) {
		return fmt.Errorf("%w: student %d has %d enrollment(s) and %d assessment(s)",
			apperrors.ErrHasDependents, roll, len(linkedCourses), len(dependents))
	}

	for _, c := range linkedCourses {
		if c.IsStudentEnrolled(roll) {
			_ = c.WithdrawStudent(roll)
		}
	}
	for _, a := range dependents {
		r.dropAssessment(a.AssessmentID())
	}

	r.students = slices.DeleteFunc(r.students, func(x *models.Student) bool { return x.RollNumber() == roll })
	delete(r.studentIdx, roll)
	return nil
}

// RemoveCourse deletes a course with the same cascade rules as RemoveStudent.
func (r *Registry) RemoveCourse(courseID string, cascade bool) error {
	c, err := r.FindCourse(courseID)
	if err != nil {
		return err
	}
	id := c.CourseID()

	var linkedStudents []*models.Student
	for _, s := range r.students {
		if s.IsEnrolledInCourse(id) || c.IsStudentEnrolled(s.RollNumber()) {
			linkedStudents = append(linkedStudents, s)
		}
	}
	dependents := r.AssessmentsForCourse(id)

	if !cascade && (len(linkedStudents) > 0 || len(dependents) > 0) {
		return fmt.Errorf("%w: course %s has %d enrollment(s) and %d assessment(s)",
			apperrors.ErrHasDependents, id, len(linkedStudents), len(dependents))
	}

	for _, s := range linkedStudents {
		if s.IsEnrolledInCourse(id) {
			_ = s.WithdrawFromCourse(id)
		}
	}
	for _, a := range dependents {
		r.dropAssessment(a.AssessmentID())
	}

	r.courses = slices.DeleteFunc(r.courses, func(x *models.Course) bool { return x.CourseID() == id })
	delete(r.courseIdx, id)
	return nil
}

// RemoveAssessment deletes an assessment and unlinks it from its student.
func (r *Registry) RemoveAssessment(assessmentID string) error {
	if _, err := r.FindAssessment(assessmentID); err != nil {
		return err
	}
	r.dropAssessment(assessmentID)
	return nil
}

func (r *Registry) dropAssessment(assessmentID string) {
	a, ok := r.assessmentIdx[assessmentID]
	if !ok {
		return
	}
	if s, ok := r.studentIdx[a.StudentRollNumber()]; ok && s.HasAssessment(assessmentID) {
		_ = s.RemoveAssessment(assessmentID)
	}
	r.assessments = slices.DeleteFunc(r.assessments, func(x *models.Assessment) bool { return x.AssessmentID() == assessmentID })
	delete(r.assessmentIdx, assessmentID)
}

// Counts returns the number of students, courses and assessments.
func (r *Registry) Counts() (students, courses, assessments int) {
	return len(r.students), len(r.courses), len(r.assessments)
}

// Snapshot is a point-in-time copy of the registry's collections.
type Snapshot struct {
	Students    []*models.Student
	Courses     []*models.Course
	Assessments []*models.Assessment
}

// Snapshot returns the current collections in insertion order.
func (r *Registry) Snapshot() Snapshot {
	return Snapshot{
		Students:    r.Students(),
		Courses:     r.Courses(),
		Assessments: r.Assessments(),
	}
}
