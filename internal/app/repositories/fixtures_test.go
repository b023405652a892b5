package repositories

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/helpers"
	"github.com/yigit/schoolrecords/internal/pkg/retry"
)

func newTestRepo(t *testing.T) *CSVRepository {
	t.Helper()
	repo, err := NewCSVRepository(DefaultPaths(t.TempDir()),
		WithRetrier(retry.New(retry.WithDelay(0), retry.WithMaxAttempts(2))),
		WithMinFreeBytes(0),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	return repo
}

// fixClock pins the package clock to the given wall time for the rest of the test.
func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	restore := helpers.SetClock(func() time.Time { return at })
	t.Cleanup(restore)
}

// fixedAt pins the clock until the returned function is called.
func fixedAt(at time.Time) (restore func()) {
	return helpers.SetClock(func() time.Time { return at })
}

func testStudent(t *testing.T, roll int, first, last string) *models.Student {
	t.Helper()
	s, err := models.NewStudent(models.NewStudentParams{
		RollNumber:       roll,
		FirstName:        first,
		LastName:         last,
		DateOfBirth:      "2004-03-14",
		Address:          "12 Oak Street",
		ContactEmail:     strings.ToLower(first) + "@example.edu",
		EmergencyContact: "+90 532 555 0101",
		EnrollmentDate:   "2023-09-04",
	})
	require.NoError(t, err)
	return s
}

func testCourse(t *testing.T, id string, opts ...models.CourseOption) *models.Course {
	t.Helper()
	c, err := models.NewCourse(id, "Course "+id, 3, "desc", 12, opts...)
	require.NoError(t, err)
	return c
}

func testAssessment(t *testing.T, roll int, courseID string, internal, final float64) *models.Assessment {
	t.Helper()
	a, err := models.NewAssessment(models.GenerateAssessmentID(roll, courseID), roll, courseID, internal, final, "2024-01-20")
	require.NoError(t, err)
	return a
}

// sampleRegistry holds two students, two courses, three enrollments and
// three assessments, all consistent.
func sampleRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.AddStudent(testStudent(t, 1001, "Ayse", "Yilmaz")))
	require.NoError(t, reg.AddStudent(testStudent(t, 1002, "Daniel", "O'Connor")))
	require.NoError(t, reg.AddCourse(testCourse(t, "MATH101", models.WithTeacher("Dr. Kaya"))))
	require.NoError(t, reg.AddCourse(testCourse(t, "COMP101")))

	require.NoError(t, reg.Enroll(1001, "MATH101"))
	require.NoError(t, reg.Enroll(1001, "COMP101"))
	require.NoError(t, reg.Enroll(1002, "MATH101"))

	require.NoError(t, reg.AddAssessment(testAssessment(t, 1001, "MATH101", 78, 85)))
	require.NoError(t, reg.AddAssessment(testAssessment(t, 1001, "COMP101", 92, 88)))
	require.NoError(t, reg.AddAssessment(testAssessment(t, 1002, "MATH101", 45, 38)))
	return reg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// snapshotFiles returns the content of every data file that exists.
func snapshotFiles(t *testing.T, repo *CSVRepository) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, p := range repo.Paths().DataFiles() {
		if b, err := os.ReadFile(p); err == nil {
			out[p] = string(b)
		}
	}
	return out
}

func tempFilesLeft(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*"+tempSuffix))
	require.NoError(t, err)
	return matches
}
