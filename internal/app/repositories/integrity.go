package repositories

import (
	"fmt"
	"strings"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

// IntegrityReport lists the problems found by an integrity or consistency check.
type IntegrityReport struct {
	Violations []string
}

// OK reports whether no violation was found.
func (r *IntegrityReport) OK() bool {
	return len(r.Violations) == 0
}

func (r *IntegrityReport) add(format string, args ...any) {
	r.Violations = append(r.Violations, fmt.Sprintf(format, args...))
}

// Error renders the violations as a bulleted multi-line message.
func (r *IntegrityReport) Error() string {
	if r.OK() {
		return ""
	}
	var b strings.Builder
	b.WriteString("Referential integrity violations found:\n")
	for _, v := range r.Violations {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return b.String()
}

// Err returns the report as an error wrapping ErrIntegrityViolation, or nil.
func (r *IntegrityReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s", apperrors.ErrIntegrityViolation, strings.TrimSuffix(r.Error(), "\n"))
}

// RepairReport describes what RepairReferentialIntegrity changed.
type RepairReport struct {
	RemovedAssessments []string
	Unrepaired         []string
}

// Changed reports whether the repair removed anything.
func (r *RepairReport) Changed() bool {
	return len(r.RemovedAssessments) > 0
}

// CheckReferentialIntegrity verifies every cross reference: assessments
// must point at an existing student and course, enrolled course IDs and
// roster roll numbers must exist, and both sides of each link must agree.
func CheckReferentialIntegrity(students []*models.Student, courses []*models.Course, assessments []*models.Assessment) *IntegrityReport {
	report := &IntegrityReport{}

	studentIdx := make(map[int]*models.Student, len(students))
	for _, s := range students {
		if s != nil {
			studentIdx[s.RollNumber()] = s
		}
	}
	courseIdx := make(map[string]*models.Course, len(courses))
	for _, c := range courses {
		if c != nil {
			courseIdx[c.CourseID()] = c
		}
	}

	for _, a := range assessments {
		if a == nil {
			report.add("null assessment found")
			continue
		}
		if _, ok := studentIdx[a.StudentRollNumber()]; !ok {
			report.add("Assessment %s references non-existent student: %d", a.AssessmentID(), a.StudentRollNumber())
		}
		if _, ok := courseIdx[a.CourseID()]; !ok {
			report.add("Assessment %s references non-existent course: %s", a.AssessmentID(), a.CourseID())
		}
	}

	for _, s := range students {
		if s == nil {
			continue
		}
		for _, id := range s.EnrolledCourseIDs() {
			c, ok := courseIdx[id]
			if !ok {
				report.add("Student %d is enrolled in non-existent course: %s", s.RollNumber(), id)
				continue
			}
			if !c.IsStudentEnrolled(s.RollNumber()) {
				report.add("Student %d lists course %s but the course roster does not list the student", s.RollNumber(), id)
			}
		}
	}

	for _, c := range courses {
		if c == nil {
			continue
		}
		for _, roll := range c.EnrolledRollNumbers() {
			s, ok := studentIdx[roll]
			if !ok {
				report.add("Course %s has enrollment for non-existent student: %d", c.CourseID(), roll)
				continue
			}
			if !s.IsEnrolledInCourse(c.CourseID()) {
				report.add("Course %s lists student %d but the student does not list the course", c.CourseID(), roll)
			}
		}
	}

	return report
}

// ValidateDataConsistency reports nil entries and duplicate keys in each
// collection, followed by the referential integrity violations.
func ValidateDataConsistency(students []*models.Student, courses []*models.Course, assessments []*models.Assessment) *IntegrityReport {
	report := &IntegrityReport{}

	seenRoll := make(map[int]bool)
	for i, s := range students {
		if s == nil {
			report.add("null student at position %d", i)
			continue
		}
		if seenRoll[s.RollNumber()] {
			report.add("Duplicate student roll number: %d", s.RollNumber())
		}
		seenRoll[s.RollNumber()] = true
	}

	seenCourse := make(map[string]bool)
	for i, c := range courses {
		if c == nil {
			report.add("null course at position %d", i)
			continue
		}
		if seenCourse[c.CourseID()] {
			report.add("Duplicate course ID: %s", c.CourseID())
		}
		seenCourse[c.CourseID()] = true
	}

	seenAssessment := make(map[string]bool)
	for _, a := range assessments {
		if a == nil {
			continue // reported by the integrity check
		}
		if seenAssessment[a.AssessmentID()] {
			report.add("Duplicate assessment ID: %s", a.AssessmentID())
		}
		seenAssessment[a.AssessmentID()] = true
	}

	report.Violations = append(report.Violations, CheckReferentialIntegrity(students, courses, assessments).Violations...)
	return report
}

// CheckIntegrity runs CheckReferentialIntegrity over reg and records the result.
func (r *CSVRepository) CheckIntegrity(reg *Registry) *IntegrityReport {
	report := CheckReferentialIntegrity(reg.Students(), reg.Courses(), reg.Assessments())
	if report.OK() {
		r.logOperation("Check Integrity", true, "no violations")
		return report
	}
	r.lastError = report.Error()
	r.logOperation("Check Integrity", false, fmt.Sprintf("%d violation(s)", len(report.Violations)))
	return report
}

// RepairReferentialIntegrity removes assessments whose student or course is
// missing. Broken enrollment links are left alone and listed as unrepaired.
func (r *CSVRepository) RepairReferentialIntegrity(reg *Registry) *RepairReport {
	const op = "Repair Referential Integrity"
	report := &RepairReport{}

	courseIDs := make(map[string]bool)
	for _, c := range reg.Courses() {
		courseIDs[c.CourseID()] = true
	}

	for _, a := range reg.Assessments() {
		_, serr := reg.FindStudent(a.StudentRollNumber())
		if serr == nil && courseIDs[a.CourseID()] {
			continue
		}
		if err := reg.RemoveAssessment(a.AssessmentID()); err != nil {
			report.Unrepaired = append(report.Unrepaired, err.Error())
			continue
		}
		report.RemovedAssessments = append(report.RemovedAssessments, a.AssessmentID())
		r.logOperation("Repair Integrity", true, "removed assessment "+a.AssessmentID()+" with invalid references")
	}

	remaining := CheckReferentialIntegrity(reg.Students(), reg.Courses(), reg.Assessments())
	report.Unrepaired = append(report.Unrepaired, remaining.Violations...)

	details := fmt.Sprintf("removed %d assessment(s), %d issue(s) need manual resolution",
		len(report.RemovedAssessments), len(report.Unrepaired))
	r.logOperation(op, true, details)
	return report
}
