package seed

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	appModels "github.com/yigit/schoolrecords/internal/app/models"
	appRepos "github.com/yigit/schoolrecords/internal/app/repositories"
)

type sampleCourse struct {
	id, name, teacher, description string
	credits, weeks, capacity       int
}

type sampleMarks struct {
	roll            int
	courseID        string
	internal, final float64
	date            string
	assessmentType  string
}

var sampleStudents = []appModels.NewStudentParams{
	{RollNumber: 1001, FirstName: "Ayse", LastName: "Yilmaz", DateOfBirth: "2004-03-14", Address: "12 Oak Street",
		ContactEmail: "ayse.yilmaz@example.edu", EmergencyContact: "+90 532 555 0101", EnrollmentDate: "2023-09-04"},
	{RollNumber: 1002, FirstName: "Daniel", LastName: "O'Connor", DateOfBirth: "2003-11-02", Address: "4 Harbour Road, Apt 7",
		ContactEmail: "daniel.oconnor@example.edu", EmergencyContact: "parent.oconnor@example.com", EnrollmentDate: "2023-09-04"},
	{RollNumber: 1003, FirstName: "Mei", LastName: "Chen", DateOfBirth: "2004-07-21", Address: "88 Lake View",
		ContactEmail: "mei.chen@example.edu", EmergencyContact: "555-010-2233", EnrollmentDate: "2024-01-15"},
	{RollNumber: 1004, FirstName: "Jean-Luc", LastName: "Martin", DateOfBirth: "2002-12-30", Address: "3 Rue \"Verte\"",
		ContactEmail: "jl.martin@example.edu", EmergencyContact: "+33 6 12 34 56 78", EnrollmentDate: "2024-01-15"},
}

var sampleCourses = []sampleCourse{
	{id: "MATH101", name: "Calculus I", teacher: "Dr. Kaya", description: "Limits, derivatives and integrals", credits: 4, weeks: 14, capacity: 30},
	{id: "COMP101", name: "Introduction to Programming", teacher: "Prof. Smith", description: "Variables, control flow, functions", credits: 3, weeks: 14, capacity: 40},
	{id: "PHYS110", name: "Mechanics", teacher: "Dr. Aydin", description: "Kinematics, forces, energy", credits: 4, weeks: 12, capacity: 25},
	{id: "HIST205", name: "Modern History", teacher: "Dr. Brown", description: "Europe, 1789 to 1945", credits: 2, weeks: 10, capacity: 20},
}

var sampleEnrollments = []struct {
	roll     int
	courseID string
}{
	{1001, "MATH101"}, {1001, "COMP101"}, {1001, "PHYS110"},
	{1002, "MATH101"}, {1002, "HIST205"},
	{1003, "COMP101"}, {1003, "PHYS110"},
	{1004, "HIST205"}, {1004, "COMP101"},
}

var sampleAssessments = []sampleMarks{
	{1001, "MATH101", 78, 85, "2024-01-20", "Exam"},
	{1001, "COMP101", 92, 88, "2024-01-22", "Project"},
	{1001, "PHYS110", 55, 61, "2024-01-25", "Exam"},
	{1002, "MATH101", 45, 38, "2024-01-20", "Exam"},
	{1002, "HIST205", 70, 74, "2024-01-18", "Essay"},
	{1003, "COMP101", 88, 95, "2024-05-30", "Project"},
	{1004, "HIST205", 60, 42, "2024-05-28", "Essay"},
}

// SampleData builds a small, consistent registry: every enrollment is
// linked on both sides and every assessment references an enrolled pair.
func SampleData(lgr zerolog.Logger) (*appRepos.Registry, error) {
	reg := appRepos.NewRegistry()
	var finalErr error // collect errors without stopping

	for _, p := range sampleStudents {
		s, err := appModels.NewStudent(p)
		if err == nil {
			err = reg.AddStudent(s)
		}
		if err != nil {
			lgr.Error().Err(err).Int("roll", p.RollNumber).Msg("Error creating sample student")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for _, sc := range sampleCourses {
		c, err := appModels.NewCourse(sc.id, sc.name, sc.credits, sc.description, sc.weeks,
			appModels.WithTeacher(sc.teacher),
			appModels.WithMaxEnrollment(sc.capacity),
		)
		if err == nil {
			err = reg.AddCourse(c)
		}
		if err != nil {
			lgr.Error().Err(err).Str("course", sc.id).Msg("Error creating sample course")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for _, e := range sampleEnrollments {
		if err := reg.Enroll(e.roll, e.courseID); err != nil {
			lgr.Error().Err(err).Int("roll", e.roll).Str("course", e.courseID).Msg("Error enrolling sample student")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for _, m := range sampleAssessments {
		a, err := appModels.NewAssessment(appModels.GenerateAssessmentID(m.roll, m.courseID), m.roll, m.courseID,
			m.internal, m.final, m.date,
			appModels.WithAssessmentType(m.assessmentType),
			appModels.WithSubmission(true, m.date),
		)
		if err == nil {
			err = reg.AddAssessment(a)
		}
		if err != nil {
			lgr.Error().Err(err).Int("roll", m.roll).Str("course", m.courseID).Msg("Error creating sample assessment")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr != nil {
		return nil, fmt.Errorf("sample data is inconsistent: %w", finalErr)
	}

	students, courses, assessments := reg.Counts()
	lgr.Info().Int("students", students).Int("courses", courses).Int("assessments", assessments).Msg("Sample data created")
	return reg, nil
}
