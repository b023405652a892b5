package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

func TestCheckReferentialIntegrity_Consistent(t *testing.T) {
	reg := sampleRegistry(t)
	report := CheckReferentialIntegrity(reg.Students(), reg.Courses(), reg.Assessments())
	assert.True(t, report.OK())
	assert.Empty(t, report.Error())
	assert.NoError(t, report.Err())
}

func TestCheckReferentialIntegrity_Violations(t *testing.T) {
	reg := sampleRegistry(t)
	require.NoError(t, reg.AddAssessment(testAssessment(t, 4242, "MATH101", 10, 10)))
	require.NoError(t, reg.AddAssessment(testAssessment(t, 1002, "BIO2000", 10, 10)))

	// Student-side only link.
	daniel, _ := reg.FindStudent(1002)
	comp, _ := reg.FindCourse("COMP101")
	require.NoError(t, daniel.EnrollInCourse(comp))

	// Course-side only link.
	mei := testStudent(t, 1003, "Mei", "Chen")
	require.NoError(t, reg.AddStudent(mei))
	require.NoError(t, comp.EnrollStudent(mei))

	// Links to entities that are not in the collections.
	ghost := testCourse(t, "GHOST101")
	require.NoError(t, mei.EnrollInCourse(ghost))
	stranger := testStudent(t, 7777, "Jean-Luc", "Martin")
	calculus, _ := reg.FindCourse("MATH101")
	require.NoError(t, calculus.EnrollStudent(stranger))

	assessments := append(reg.Assessments(), nil)
	report := CheckReferentialIntegrity(reg.Students(), reg.Courses(), assessments)
	assert.ElementsMatch(t, []string{
		"Assessment ASS4242_MATH101 references non-existent student: 4242",
		"Assessment ASS1002_BIO2000 references non-existent course: BIO2000",
		"null assessment found",
		"Student 1002 lists course COMP101 but the course roster does not list the student",
		"Student 1003 is enrolled in non-existent course: GHOST101",
		"Course COMP101 lists student 1003 but the student does not list the course",
		"Course MATH101 has enrollment for non-existent student: 7777",
	}, report.Violations)

	assert.Contains(t, report.Error(), "Referential integrity violations found:\n- ")
	assert.ErrorIs(t, report.Err(), apperrors.ErrIntegrityViolation)
}

func TestValidateDataConsistency(t *testing.T) {
	reg := sampleRegistry(t)
	students := append(reg.Students(), testStudent(t, 1001, "Mei", "Chen"), nil)
	courses := append(reg.Courses(), testCourse(t, "MATH101"))
	dup, err := models.NewAssessment("ASS1001_MATH101", 1001, "MATH101", 1, 1, "2024-01-20")
	require.NoError(t, err)
	assessments := append(reg.Assessments(), dup)

	report := ValidateDataConsistency(students, courses, assessments)
	assert.Contains(t, report.Violations, "Duplicate student roll number: 1001")
	assert.Contains(t, report.Violations, "null student at position 3")
	assert.Contains(t, report.Violations, "Duplicate course ID: MATH101")
	assert.Contains(t, report.Violations, "Duplicate assessment ID: ASS1001_MATH101")
}

func TestRepairReferentialIntegrity(t *testing.T) {
	repo := newTestRepo(t)
	reg := sampleRegistry(t)
	require.NoError(t, reg.AddAssessment(testAssessment(t, 4242, "MATH101", 10, 10)))
	require.NoError(t, reg.AddAssessment(testAssessment(t, 1002, "BIO2000", 10, 10)))

	daniel, _ := reg.FindStudent(1002)
	comp, _ := reg.FindCourse("COMP101")
	require.NoError(t, daniel.EnrollInCourse(comp))

	before := repo.CheckIntegrity(reg)
	assert.Len(t, before.Violations, 3)
	assert.NotEmpty(t, repo.LastError())

	report := repo.RepairReferentialIntegrity(reg)
	assert.True(t, report.Changed())
	assert.ElementsMatch(t, []string{"ASS4242_MATH101", "ASS1002_BIO2000"}, report.RemovedAssessments)
	assert.Equal(t, []string{"Student 1002 lists course COMP101 but the course roster does not list the student"}, report.Unrepaired)

	_, _, n := reg.Counts()
	assert.Equal(t, 3, n)

	again := repo.RepairReferentialIntegrity(reg)
	assert.False(t, again.Changed())
}
