package services

import (
	"fmt"

	"github.com/yigit/schoolrecords/internal/app/grading"
	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/app/repositories"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

// CourseResult is a student's standing in one course
type CourseResult struct {
	CourseID    string
	CourseName  string
	Credits     int
	Grade       float64
	Letter      string
	Passing     bool
	Assessments int
}

// StudentReport is a student's transcript
type StudentReport struct {
	RollNumber int
	Name       string
	Courses    []CourseResult
	Overall    float64
	Letter     string
}

// CourseStats aggregates the assessments of one course
type CourseStats struct {
	CourseID  string
	Enrolled  int
	Assessed  int
	Average   float64
	Highest   float64
	Lowest    float64
	PassCount int
	PassRate  float64
}

// GradeService defines the interface for grade calculations
type GradeService interface {
	CourseGrade(roll int, courseID string) (float64, error)
	OverallGrade(roll int) (float64, error)
	StudentReport(roll int) (*StudentReport, error)
	CourseStatistics(courseID string) (*CourseStats, error)
	Calculator() grading.Calculator
}

// gradeServiceImpl implements the GradeService interface
type gradeServiceImpl struct {
	reg  func() *repositories.Registry
	calc grading.Calculator
}

// NewGradeService creates a grade service. registry is called on every
// request so the service follows registry reloads.
func NewGradeService(registry func() *repositories.Registry, calc grading.Calculator) GradeService {
	if calc == nil {
		calc = grading.WeightedAverage{}
	}
	return &gradeServiceImpl{reg: registry, calc: calc}
}

func (s *gradeServiceImpl) Calculator() grading.Calculator {
	return s.calc
}

func (s *gradeServiceImpl) studentAssessments(roll int, courseID string) []*models.Assessment {
	var out []*models.Assessment
	for _, a := range s.reg().AssessmentsForStudent(roll) {
		if a.CourseID() == courseID {
			out = append(out, a)
		}
	}
	return out
}

// CourseGrade combines the student's assessments in a course with equal weight.
func (s *gradeServiceImpl) CourseGrade(roll int, courseID string) (float64, error) {
	if _, err := s.reg().FindStudent(roll); err != nil {
		return 0, err
	}
	course, err := s.reg().FindCourse(courseID)
	if err != nil {
		return 0, err
	}

	assessments := s.studentAssessments(roll, course.CourseID())
	if len(assessments) == 0 {
		return 0, fmt.Errorf("%w: no assessments for student %d in %s", apperrors.ErrAssessmentNotFound, roll, course.CourseID())
	}
	scores := make([]grading.Score, len(assessments))
	for i, a := range assessments {
		scores[i] = grading.Score{Score: a.CalculatedGrade(), Weight: 1}
	}
	return s.calc.CalculateGrade(scores), nil
}

// OverallGrade combines the course grades weighted by course credits.
// Courses without assessments are left out.
func (s *gradeServiceImpl) OverallGrade(roll int) (float64, error) {
	report, err := s.StudentReport(roll)
	if err != nil {
		return 0, err
	}
	return report.Overall, nil
}

func (s *gradeServiceImpl) StudentReport(roll int) (*StudentReport, error) {
	student, err := s.reg().FindStudent(roll)
	if err != nil {
		return nil, err
	}

	report := &StudentReport{RollNumber: roll, Name: student.FullName()}
	var scores []grading.Score
	seen := make(map[string]bool)

	for _, a := range s.reg().AssessmentsForStudent(roll) {
		if seen[a.CourseID()] {
			continue
		}
		seen[a.CourseID()] = true

		course, err := s.reg().FindCourse(a.CourseID())
		if err != nil {
			continue
		}
		grade, err := s.CourseGrade(roll, course.CourseID())
		if err != nil {
			continue
		}
		report.Courses = append(report.Courses, CourseResult{
			CourseID:    course.CourseID(),
			CourseName:  course.CourseName(),
			Credits:     course.Credits(),
			Grade:       grade,
			Letter:      models.LetterGrade(grade),
			Passing:     grade >= models.PassThreshold,
			Assessments: len(s.studentAssessments(roll, course.CourseID())),
		})
		scores = append(scores, grading.Score{Score: grade, Weight: float64(course.Credits())})
	}

	report.Overall = s.calc.CalculateGrade(scores)
	report.Letter = models.LetterGrade(report.Overall)
	return report, nil
}

func (s *gradeServiceImpl) CourseStatistics(courseID string) (*CourseStats, error) {
	course, err := s.reg().FindCourse(courseID)
	if err != nil {
		return nil, err
	}

	stats := &CourseStats{CourseID: course.CourseID(), Enrolled: course.CurrentEnrollment()}
	assessments := s.reg().AssessmentsForCourse(course.CourseID())
	if len(assessments) == 0 {
		return stats, nil
	}

	var sum float64
	stats.Lowest = assessments[0].CalculatedGrade()
	for _, a := range assessments {
		g := a.CalculatedGrade()
		sum += g
		stats.Highest = max(stats.Highest, g)
		stats.Lowest = min(stats.Lowest, g)
		if a.IsPassing() {
			stats.PassCount++
		}
	}
	stats.Assessed = len(assessments)
	stats.Average = sum / float64(len(assessments))
	stats.PassRate = float64(stats.PassCount) / float64(len(assessments)) * 100
	return stats, nil
}
