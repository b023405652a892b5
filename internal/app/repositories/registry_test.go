package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

func TestRegistryAddRejectsDuplicatesAndNil(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddStudent(testStudent(t, 1, "Ayse", "Yilmaz")))
	assert.ErrorIs(t, reg.AddStudent(testStudent(t, 1, "Mei", "Chen")), apperrors.ErrStudentIDAlreadyExists)
	assert.ErrorIs(t, reg.AddStudent(nil), apperrors.ErrNilEntity)

	require.NoError(t, reg.AddCourse(testCourse(t, "MATH101")))
	assert.ErrorIs(t, reg.AddCourse(testCourse(t, "math101")), apperrors.ErrCourseAlreadyExists)
	assert.ErrorIs(t, reg.AddCourse(nil), apperrors.ErrNilEntity)

	require.NoError(t, reg.AddAssessment(testAssessment(t, 1, "MATH101", 50, 50)))
	assert.ErrorIs(t, reg.AddAssessment(testAssessment(t, 1, "MATH101", 60, 60)), apperrors.ErrAssessmentAlreadyExists)
	assert.ErrorIs(t, reg.AddAssessment(nil), apperrors.ErrNilEntity)

	students, courses, assessments := reg.Counts()
	assert.Equal(t, 1, students)
	assert.Equal(t, 1, courses)
	assert.Equal(t, 1, assessments)
}

func TestRegistryFind(t *testing.T) {
	reg := sampleRegistry(t)

	s, err := reg.FindStudent(1002)
	require.NoError(t, err)
	assert.Equal(t, "O'Connor", s.LastName())
	_, err = reg.FindStudent(9)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)

	c, err := reg.FindCourse(" math101 ")
	require.NoError(t, err)
	assert.Equal(t, "MATH101", c.CourseID())
	_, err = reg.FindCourse("PHYS110")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	_, err = reg.FindAssessment("nope")
	assert.ErrorIs(t, err, apperrors.ErrAssessmentNotFound)

	found := reg.FindStudentsByName("oconn")
	assert.Empty(t, found)
	found = reg.FindStudentsByName("O'CON")
	require.Len(t, found, 1)
	assert.Equal(t, 1002, found[0].RollNumber())
}

func TestRegistryLookupsNormalizeCourseID(t *testing.T) {
	reg := sampleRegistry(t)
	require.NoError(t, reg.AddAssessment(testAssessment(t, 1002, "comp101", 55, 65)))

	assert.True(t, reg.IsEnrolled(1001, "math101"))
	assert.False(t, reg.IsEnrolled(1002, "comp101"))
	assert.Len(t, reg.CourseStudents(" math101"), 2)
	assert.Len(t, reg.AssessmentsForCourse("math101"), 2)

	comp := reg.AssessmentsForCourse("comp101")
	require.Len(t, comp, 2)
	assert.Equal(t, "COMP101", comp[1].CourseID())
	assert.True(t, CheckReferentialIntegrity(reg.Students(), reg.Courses(), reg.Assessments()).OK())
}

func TestRegistryAssessmentLinks(t *testing.T) {
	reg := sampleRegistry(t)

	s, err := reg.FindStudent(1001)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ASS1001_MATH101", "ASS1001_COMP101"}, s.AssessmentIDs())
	assert.Len(t, reg.AssessmentsForStudent(1001), 2)
	assert.Len(t, reg.AssessmentsForCourse("MATH101"), 2)

	dangling := testAssessment(t, 4242, "MATH101", 10, 10)
	require.NoError(t, reg.AddAssessment(dangling), "dangling references are kept for the integrity check")

	require.NoError(t, reg.RemoveAssessment("ASS1001_MATH101"))
	assert.False(t, s.HasAssessment("ASS1001_MATH101"))
	assert.ErrorIs(t, reg.RemoveAssessment("ASS1001_MATH101"), apperrors.ErrAssessmentNotFound)
}

func TestRegistryEnrollLinksBothSides(t *testing.T) {
	reg := sampleRegistry(t)

	assert.True(t, reg.IsEnrolled(1001, "MATH101"))
	assert.ErrorIs(t, reg.Enroll(1001, "MATH101"), apperrors.ErrAlreadyEnrolled)
	assert.ErrorIs(t, reg.Enroll(9, "MATH101"), apperrors.ErrStudentNotFound)
	assert.ErrorIs(t, reg.Enroll(1001, "PHYS110"), apperrors.ErrCourseNotFound)

	names := func(cs []*models.Course) []string {
		var out []string
		for _, c := range cs {
			out = append(out, c.CourseID())
		}
		return out
	}
	assert.Equal(t, []string{"MATH101", "COMP101"}, names(reg.StudentCourses(1001)))
	assert.Len(t, reg.CourseStudents("MATH101"), 2)

	require.NoError(t, reg.Withdraw(1001, "math101"))
	assert.False(t, reg.IsEnrolled(1001, "MATH101"))
	c, _ := reg.FindCourse("MATH101")
	assert.Equal(t, []int{1002}, c.EnrolledRollNumbers())
	assert.ErrorIs(t, reg.Withdraw(1001, "MATH101"), apperrors.ErrNotEnrolled)
}

func TestRegistryEnrollRollsBackCourseSide(t *testing.T) {
	reg := NewRegistry()
	s := testStudent(t, 1, "Ayse", "Yilmaz")
	require.NoError(t, reg.AddStudent(s))

	for _, id := range []string{"AAA101", "BBB101", "CCC101", "DDD101", "EEE101", "FFF101", "GGG101", "HHH101", "III101"} {
		require.NoError(t, reg.AddCourse(testCourse(t, id)))
	}
	for _, id := range []string{"AAA101", "BBB101", "CCC101", "DDD101", "EEE101", "FFF101", "GGG101", "HHH101"} {
		require.NoError(t, reg.Enroll(1, id))
	}

	err := reg.Enroll(1, "III101")
	assert.ErrorIs(t, err, apperrors.ErrStudentCourseLimit)
	c, _ := reg.FindCourse("III101")
	assert.False(t, c.IsStudentEnrolled(1), "course side must be rolled back")
	assert.False(t, reg.IsEnrolled(1, "III101"))
}

func TestRegistryEnrollRespectsCourseRules(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddStudent(testStudent(t, 1, "Ayse", "Yilmaz")))
	require.NoError(t, reg.AddStudent(testStudent(t, 2, "Mei", "Chen")))
	require.NoError(t, reg.AddCourse(testCourse(t, "HIST205", models.WithActive(false))))
	require.NoError(t, reg.AddCourse(testCourse(t, "PHYS110", models.WithMaxEnrollment(1))))

	assert.ErrorIs(t, reg.Enroll(1, "HIST205"), apperrors.ErrCourseInactive)
	require.NoError(t, reg.Enroll(1, "PHYS110"))
	assert.ErrorIs(t, reg.Enroll(2, "PHYS110"), apperrors.ErrCourseFull)

	s, _ := reg.FindStudent(2)
	assert.Zero(t, s.EnrollmentCount(), "a refused enrollment leaves no half-link")
}

func TestRegistryWithdrawClearsHalfLink(t *testing.T) {
	reg := NewRegistry()
	s := testStudent(t, 1, "Ayse", "Yilmaz")
	c := testCourse(t, "MATH101")
	require.NoError(t, reg.AddStudent(s))
	require.NoError(t, reg.AddCourse(c))

	require.NoError(t, s.EnrollInCourse(c))
	assert.False(t, reg.IsEnrolled(1, "MATH101"))

	require.NoError(t, reg.Withdraw(1, "MATH101"))
	assert.False(t, s.IsEnrolledInCourse("MATH101"))
}

func TestRegistryRemoveStudent(t *testing.T) {
	reg := sampleRegistry(t)

	assert.ErrorIs(t, reg.RemoveStudent(1001, false), apperrors.ErrHasDependents)
	require.NoError(t, reg.RemoveStudent(1001, true))

	_, err := reg.FindStudent(1001)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	c, _ := reg.FindCourse("MATH101")
	assert.Equal(t, []int{1002}, c.EnrolledRollNumbers())
	assert.Empty(t, reg.AssessmentsForStudent(1001))
	assert.True(t, CheckReferentialIntegrity(reg.Students(), reg.Courses(), reg.Assessments()).OK())

	assert.ErrorIs(t, reg.RemoveStudent(1001, true), apperrors.ErrStudentNotFound)
}

func TestRegistryRemoveCourse(t *testing.T) {
	reg := sampleRegistry(t)

	assert.ErrorIs(t, reg.RemoveCourse("MATH101", false), apperrors.ErrHasDependents)
	require.NoError(t, reg.RemoveCourse("math101", true))

	s, _ := reg.FindStudent(1001)
	assert.Equal(t, []string{"COMP101"}, s.EnrolledCourseIDs())
	assert.Empty(t, reg.AssessmentsForCourse("MATH101"))
	assert.True(t, CheckReferentialIntegrity(reg.Students(), reg.Courses(), reg.Assessments()).OK())

	require.NoError(t, reg.AddCourse(testCourse(t, "PHYS110")))
	require.NoError(t, reg.RemoveCourse("PHYS110", false), "a course without dependents needs no cascade")
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := sampleRegistry(t)
	snap := reg.Snapshot()
	require.Len(t, snap.Students, 2)

	snap.Students[0] = nil
	students := reg.Students()
	assert.NotNil(t, students[0])
	assert.Equal(t, 1001, students[0].RollNumber())
	assert.Len(t, snap.Courses, 2)
	assert.Len(t, snap.Assessments, 3)
}
