package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolrecords/internal/app/grading"
	"github.com/yigit/schoolrecords/internal/app/repositories"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

func gradeServiceFor(reg *repositories.Registry, calc grading.Calculator) GradeService {
	return NewGradeService(func() *repositories.Registry { return reg }, calc)
}

func TestCourseGrade(t *testing.T) {
	svc := gradeServiceFor(gradedRegistry(t), nil)
	assert.Equal(t, grading.StrategyWeightedAverage, svc.Calculator().Name())

	g, err := svc.CourseGrade(1, "math101")
	require.NoError(t, err)
	assert.InDelta(t, 77.0, g, 1e-9)

	_, err = svc.CourseGrade(3, "MATH101")
	assert.ErrorIs(t, err, apperrors.ErrAssessmentNotFound)
	_, err = svc.CourseGrade(99, "MATH101")
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	_, err = svc.CourseGrade(1, "PHYS110")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestStudentReport(t *testing.T) {
	svc := gradeServiceFor(gradedRegistry(t), nil)

	r, err := svc.StudentReport(1)
	require.NoError(t, err)
	assert.Equal(t, "Ayse Yilmaz", r.Name)
	require.Len(t, r.Courses, 2)

	assert.Equal(t, "MATH101", r.Courses[0].CourseID)
	assert.Equal(t, 2, r.Courses[0].Assessments)
	assert.Equal(t, "B+", r.Courses[0].Letter)
	assert.True(t, r.Courses[0].Passing)
	assert.Equal(t, "COMP101", r.Courses[1].CourseID)
	assert.Equal(t, "C", r.Courses[1].Letter)

	// (77*4 + 50*3) / 7
	assert.InDelta(t, 458.0/7.0, r.Overall, 1e-9)
	assert.Equal(t, "B", r.Letter)

	overall, err := svc.OverallGrade(1)
	require.NoError(t, err)
	assert.InDelta(t, r.Overall, overall, 1e-9)

	empty, err := svc.StudentReport(3)
	require.NoError(t, err)
	assert.Empty(t, empty.Courses)
	assert.Zero(t, empty.Overall)

	_, err = svc.OverallGrade(42)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestStudentReport_BestNOfM(t *testing.T) {
	svc := gradeServiceFor(gradedRegistry(t), grading.NewBestNOfM(1))

	g, err := svc.CourseGrade(1, "MATH101")
	require.NoError(t, err)
	assert.InDelta(t, 87.0, g, 1e-9, "best single assessment")

	r, err := svc.StudentReport(1)
	require.NoError(t, err)
	assert.InDelta(t, 87.0, r.Overall, 1e-9)
}

func TestStudentReport_LowerCaseCourseID(t *testing.T) {
	reg := gradedRegistry(t)
	require.NoError(t, reg.AddAssessment(assessment(t, "A5", 3, "math101", 60, 60)))
	svc := gradeServiceFor(reg, nil)

	r, err := svc.StudentReport(3)
	require.NoError(t, err)
	require.Len(t, r.Courses, 1)
	assert.Equal(t, "MATH101", r.Courses[0].CourseID)
	assert.InDelta(t, 60.0, r.Overall, 1e-9)

	st, err := svc.CourseStatistics("math101")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Assessed)
}

func TestCourseStatistics(t *testing.T) {
	svc := gradeServiceFor(gradedRegistry(t), nil)

	st, err := svc.CourseStatistics("MATH101")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Enrolled)
	assert.Equal(t, 3, st.Assessed)
	assert.InDelta(t, (87+67+43.5)/3.0, st.Average, 1e-9)
	assert.InDelta(t, 87.0, st.Highest, 1e-9)
	assert.InDelta(t, 43.5, st.Lowest, 1e-9)
	assert.Equal(t, 2, st.PassCount)
	assert.InDelta(t, 200.0/3.0, st.PassRate, 1e-9)

	reg := gradedRegistry(t)
	require.NoError(t, reg.AddCourse(course(t, "HIST205", 2)))
	st, err = gradeServiceFor(reg, nil).CourseStatistics("HIST205")
	require.NoError(t, err)
	assert.Zero(t, st.Assessed)
	assert.Zero(t, st.Average)

	_, err = svc.CourseStatistics("NOPE101")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestGradeServiceFollowsRegistryReloads(t *testing.T) {
	current := repositories.NewRegistry()
	svc := NewGradeService(func() *repositories.Registry { return current }, nil)

	_, err := svc.StudentReport(1)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

	current = gradedRegistry(t)
	_, err = svc.StudentReport(1)
	assert.NoError(t, err)
}
