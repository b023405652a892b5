package repositories

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
	"github.com/yigit/schoolrecords/internal/pkg/filestorage"
	"github.com/yigit/schoolrecords/internal/pkg/helpers"
	"github.com/yigit/schoolrecords/internal/pkg/logger"
	"github.com/yigit/schoolrecords/internal/pkg/retry"
)

// DefaultMinFreeBytes is the free space SaveAllData requires before writing.
const DefaultMinFreeBytes uint64 = 10 * 1024 * 1024

// maxOperations bounds the in-memory operation log.
const maxOperations = 1000

const tempSuffix = ".tmp"

// Paths locates the four data files and the backup directory.
type Paths struct {
	DataDir     string
	Students    string
	Courses     string
	Assessments string
	Enrollments string
	BackupDir   string
}

// DefaultPaths returns the standard file names under dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		DataDir:     dataDir,
		Students:    filepath.Join(dataDir, "students.csv"),
		Courses:     filepath.Join(dataDir, "courses.csv"),
		Assessments: filepath.Join(dataDir, "assessments.csv"),
		Enrollments: filepath.Join(dataDir, "enrollments.csv"),
		BackupDir:   filepath.Join(dataDir, "backups"),
	}
}

// DataFiles returns the four data file paths in save order.
func (p Paths) DataFiles() []string {
	return []string{p.Students, p.Courses, p.Assessments, p.Enrollments}
}

// OperationRecord is one entry of the operation log.
type OperationRecord struct {
	Timestamp time.Time
	Operation string
	Success   bool
	Details   string
}

// RowError describes a data row that was skipped during a load.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) String() string {
	if e.Line <= 0 {
		return e.Reason
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// LoadReport summarizes one file load.
type LoadReport struct {
	File    string
	Loaded  int
	Ignored int // rows deliberately not applied, e.g. inactive enrollments
	Skipped []RowError
}

// HasErrors reports whether any row was skipped.
func (r *LoadReport) HasErrors() bool {
	return r != nil && len(r.Skipped) > 0
}

// LastError returns the skipped rows as one multi-line string.
func (r *LoadReport) LastError() string {
	if !r.HasErrors() {
		return ""
	}
	lines := make([]string, 0, len(r.Skipped))
	for _, e := range r.Skipped {
		lines = append(lines, r.File+": "+e.String())
	}
	return strings.Join(lines, "\n")
}

func (r *LoadReport) skip(line int, err error) {
	r.Skipped = append(r.Skipped, RowError{Line: line, Reason: err.Error()})
}

// LoadSummary holds the per-file reports of LoadAllData.
type LoadSummary struct {
	Students    *LoadReport
	Courses     *LoadReport
	Assessments *LoadReport
	Enrollments *LoadReport
}

// Reports returns the non-nil reports in load order.
func (s *LoadSummary) Reports() []*LoadReport {
	var out []*LoadReport
	for _, r := range []*LoadReport{s.Students, s.Courses, s.Assessments, s.Enrollments} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// CSVRepository persists the registry as four CSV files. It is not safe for
// concurrent use and assumes exclusive ownership of the data directory.
type CSVRepository struct {
	paths        Paths
	fs           filestorage.FileStorage
	retrier      *retry.Retrier
	minFreeBytes uint64
	log          zerolog.Logger

	lastError  string
	operations []OperationRecord

	// afterTempWrite runs between writing and validating the temp files.
	afterTempWrite func(tempFiles []string)
}

// Option configures a CSVRepository.
type Option func(*CSVRepository)

// WithStorage replaces the local filesystem storage.
func WithStorage(fs filestorage.FileStorage) Option {
	return func(r *CSVRepository) { r.fs = fs }
}

// WithRetrier sets the retry policy used for backup copies.
func WithRetrier(rt *retry.Retrier) Option {
	return func(r *CSVRepository) { r.retrier = rt }
}

// WithMinFreeBytes sets the free space required before a save.
func WithMinFreeBytes(n uint64) Option {
	return func(r *CSVRepository) { r.minFreeBytes = n }
}

// WithLogger sets the repository logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *CSVRepository) { r.log = l }
}

// NewCSVRepository creates the repository and ensures the data directory exists.
func NewCSVRepository(paths Paths, opts ...Option) (*CSVRepository, error) {
	r := &CSVRepository{
		paths:        paths,
		minFreeBytes: DefaultMinFreeBytes,
		log:          logger.Component("csv_repository"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.fs == nil {
		ls, err := filestorage.NewLocalStorage(paths.DataDir)
		if err != nil {
			return nil, err
		}
		r.fs = ls
	}
	if r.retrier == nil {
		r.retrier = retry.New(retry.WithOnRetry(r.logRetry))
	}
	return r, nil
}

// Paths returns the configured file locations.
func (r *CSVRepository) Paths() Paths {
	return r.paths
}

// LastError returns the most recent failure or skipped-row report.
func (r *CSVRepository) LastError() string {
	return r.lastError
}

// ClearLastError resets LastError.
func (r *CSVRepository) ClearLastError() {
	r.lastError = ""
}

// Operations returns a copy of the operation log, oldest first.
func (r *CSVRepository) Operations() []OperationRecord {
	out := make([]OperationRecord, len(r.operations))
	copy(out, r.operations)
	return out
}

func (r *CSVRepository) logOperation(op string, success bool, details string) {
	rec := OperationRecord{Timestamp: helpers.Now(), Operation: op, Success: success, Details: details}
	r.operations = append(r.operations, rec)
	if len(r.operations) > maxOperations {
		r.operations = r.operations[len(r.operations)-maxOperations:]
	}

	ev := r.log.Info()
	if !success {
		ev = r.log.Error()
	}
	ev.Str("operation", op).Bool("success", success).Msg(details)
}

// fail records err as the last error and as a failed operation, then returns it.
func (r *CSVRepository) fail(op string, err error) error {
	r.lastError = err.Error()
	r.logOperation(op, false, err.Error())
	return err
}

func (r *CSVRepository) logRetry(attempt int, err error, delay time.Duration) {
	r.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying backup copy")
}

// readDocument opens path and checks its header.
func (r *CSVRepository) readDocument(op, path string, headers []string) (*csvDocument, *LoadReport, error) {
	report := &LoadReport{File: path}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, report, r.fail(op, err)
	}
	defer f.Close()

	doc, err := readCSV(f, headers)
	if err != nil {
		return nil, report, r.fail(op, fmt.Errorf("%s: %w", path, err))
	}
	report.Skipped = append(report.Skipped, doc.rowErrs...)
	return doc, report, nil
}

// loadEntities parses each row of path. Rows that fail to parse are skipped
// and reported.
func loadEntities[T any](r *CSVRepository, op, path string, headers []string, parse func([]string) (T, error)) ([]T, *LoadReport, error) {
	doc, report, err := r.readDocument(op, path, headers)
	if err != nil {
		return nil, report, err
	}

	items := make([]T, 0, len(doc.rows))
	for _, row := range doc.rows {
		item, err := parse(row.fields)
		if err != nil {
			report.skip(row.line, err)
			continue
		}
		items = append(items, item)
	}
	report.Loaded = len(items)
	r.finishLoad(op, report)
	return items, report, nil
}

func (r *CSVRepository) finishLoad(op string, report *LoadReport) {
	if report.HasErrors() {
		r.lastError = report.LastError()
		r.log.Warn().Str("file", report.File).Int("skipped", len(report.Skipped)).Msg("Skipped malformed rows")
	}
	r.logOperation(op, true, fmt.Sprintf("loaded %d record(s) from %s, skipped %d", report.Loaded, report.File, len(report.Skipped)))
}

// LoadStudents reads students from path. A missing file or header mismatch
// is an error and returns no students; bad rows are skipped and reported.
func (r *CSVRepository) LoadStudents(path string) ([]*models.Student, *LoadReport, error) {
	return loadEntities(r, "Load Students", path, StudentHeaders, parseStudent)
}

// LoadCourses reads courses from path with the same rules as LoadStudents.
func (r *CSVRepository) LoadCourses(path string) ([]*models.Course, *LoadReport, error) {
	return loadEntities(r, "Load Courses", path, CourseHeaders, parseCourse)
}

// LoadAssessments reads assessments from path with the same rules as LoadStudents.
func (r *CSVRepository) LoadAssessments(path string) ([]*models.Assessment, *LoadReport, error) {
	return loadEntities(r, "Load Assessments", path, AssessmentHeaders, parseAssessment)
}

// LoadEnrollments rebuilds Student-Course links in reg from path. A missing
// file means no enrollments. Each active row links both sides or neither.
func (r *CSVRepository) LoadEnrollments(path string, reg *Registry) (*LoadReport, error) {
	const op = "Load Enrollments"
	report := &LoadReport{File: path}

	if !r.fs.Exists(path) {
		r.logOperation(op, true, "no enrollments file found, starting with empty enrollments")
		return report, nil
	}

	doc, report, err := r.readDocument(op, path, EnrollmentHeaders)
	if err != nil {
		return report, err
	}

	for _, row := range doc.rows {
		e, err := parseEnrollment(row.fields)
		if err != nil {
			report.skip(row.line, err)
			continue
		}
		if e.Status != models.EnrollmentActive {
			report.Ignored++
			continue
		}
		if err := r.linkEnrollment(reg, e); err != nil {
			report.skip(row.line, fmt.Errorf("%s: %w", e.EnrollmentID, err))
			continue
		}
		report.Loaded++
	}

	if report.HasErrors() {
		r.lastError = report.LastError()
	}
	r.logOperation(op, true, fmt.Sprintf("linked %d enrollment(s), ignored %d, skipped %d",
		report.Loaded, report.Ignored, len(report.Skipped)))
	return report, nil
}

// linkEnrollment applies one row through the registry so both sides of the
// link are created together or not at all.
func (r *CSVRepository) linkEnrollment(reg *Registry, e models.Enrollment) error {
	if _, err := reg.FindStudent(e.StudentRollNumber); err != nil {
		return err
	}
	if _, err := reg.FindCourse(e.CourseID); err != nil {
		return err
	}
	return reg.Enroll(e.StudentRollNumber, e.CourseID)
}

// LoadAllData loads the three entity files into a new registry, then
// rebuilds enrollments. Any hard failure aborts and returns the error.
func (r *CSVRepository) LoadAllData() (*Registry, *LoadSummary, error) {
	const op = "Load All Data"
	summary := &LoadSummary{}
	reg := NewRegistry()

	students, report, err := r.LoadStudents(r.paths.Students)
	summary.Students = report
	if err != nil {
		return nil, summary, r.fail(op, err)
	}
	for _, s := range students {
		if err := reg.AddStudent(s); err != nil {
			report.Skipped = append(report.Skipped, RowError{Reason: err.Error()})
		}
	}

	courses, report, err := r.LoadCourses(r.paths.Courses)
	summary.Courses = report
	if err != nil {
		return nil, summary, r.fail(op, err)
	}
	for _, c := range courses {
		if err := reg.AddCourse(c); err != nil {
			report.Skipped = append(report.Skipped, RowError{Reason: err.Error()})
		}
	}

	assessments, report, err := r.LoadAssessments(r.paths.Assessments)
	summary.Assessments = report
	if err != nil {
		return nil, summary, r.fail(op, err)
	}
	for _, a := range assessments {
		if err := reg.AddAssessment(a); err != nil {
			report.Skipped = append(report.Skipped, RowError{Reason: err.Error()})
		}
	}

	summary.Enrollments, err = r.LoadEnrollments(r.paths.Enrollments, reg)
	if err != nil {
		return nil, summary, r.fail(op, err)
	}

	var problems []string
	for _, rep := range summary.Reports() {
		if rep.HasErrors() {
			problems = append(problems, rep.LastError())
		}
	}
	if len(problems) > 0 {
		r.lastError = strings.Join(problems, "\n")
	}

	ns, nc, na := reg.Counts()
	r.logOperation(op, true, fmt.Sprintf("loaded %d student(s), %d course(s), %d assessment(s), %d enrollment(s)",
		ns, nc, na, summary.Enrollments.Loaded))
	return reg, summary, nil
}

// writeEntities writes a header and one line per non-nil item.
func writeEntities[T comparable](r *CSVRepository, path string, headers []string, items []T, record func(T) []string) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	var zero T
	werr := writeCSVLine(w, headers)
	for _, item := range items {
		if werr != nil {
			break
		}
		if item == zero {
			continue
		}
		werr = writeCSVLine(w, record(item))
	}
	if werr == nil {
		werr = w.Flush()
	}
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("failed to write %s: %w", path, werr)
	}
	if cerr != nil {
		return fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	return nil
}

// SaveStudents writes students to path in collection order.
func (r *CSVRepository) SaveStudents(path string, students []*models.Student) error {
	if err := writeEntities(r, path, StudentHeaders, students, studentRecord); err != nil {
		return r.fail("Save Students", err)
	}
	r.logOperation("Save Students", true, fmt.Sprintf("saved %d student(s) to %s", countNonNil(students), path))
	return nil
}

// SaveCourses writes courses to path in collection order.
func (r *CSVRepository) SaveCourses(path string, courses []*models.Course) error {
	if err := writeEntities(r, path, CourseHeaders, courses, courseRecord); err != nil {
		return r.fail("Save Courses", err)
	}
	r.logOperation("Save Courses", true, fmt.Sprintf("saved %d course(s) to %s", countNonNil(courses), path))
	return nil
}

// SaveAssessments writes assessments to path in collection order.
func (r *CSVRepository) SaveAssessments(path string, assessments []*models.Assessment) error {
	if err := writeEntities(r, path, AssessmentHeaders, assessments, assessmentRecord); err != nil {
		return r.fail("Save Assessments", err)
	}
	r.logOperation("Save Assessments", true, fmt.Sprintf("saved %d assessment(s) to %s", countNonNil(assessments), path))
	return nil
}

// SaveEnrollments derives the enrollment rows from the student side of each
// link and writes them to path.
func (r *CSVRepository) SaveEnrollments(path string, students []*models.Student, courses []*models.Course) error {
	rows := BuildEnrollments(students, courses)
	f, err := r.fs.Create(path)
	if err != nil {
		return r.fail("Save Enrollments", err)
	}
	w := bufio.NewWriter(f)
	werr := writeCSVLine(w, EnrollmentHeaders)
	for _, e := range rows {
		if werr != nil {
			break
		}
		werr = writeCSVLine(w, enrollmentRecord(e))
	}
	if werr == nil {
		werr = w.Flush()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return r.fail("Save Enrollments", fmt.Errorf("failed to write %s: %w", path, werr))
	}
	r.logOperation("Save Enrollments", true, fmt.Sprintf("saved %d enrollment(s) to %s", len(rows), path))
	return nil
}

// BuildEnrollments lists every student-side link whose course is present in
// courses, numbered ENR001, ENR002, ... in student order.
func BuildEnrollments(students []*models.Student, courses []*models.Course) []models.Enrollment {
	known := make(map[string]bool, len(courses))
	for _, c := range courses {
		if c != nil {
			known[c.CourseID()] = true
		}
	}

	var rows []models.Enrollment
	for _, s := range students {
		if s == nil {
			continue
		}
		for _, courseID := range s.EnrolledCourseIDs() {
			if !known[courseID] {
				continue
			}
			rows = append(rows, models.Enrollment{
				EnrollmentID:      models.EnrollmentID(len(rows) + 1),
				StudentRollNumber: s.RollNumber(),
				CourseID:          courseID,
				EnrollmentDate:    s.EnrollmentDate(),
				Status:            models.EnrollmentActive,
			})
		}
	}
	return rows
}

func countNonNil[T comparable](items []T) int {
	var zero T
	n := 0
	for _, it := range items {
		if it != zero {
			n++
		}
	}
	return n
}

// SaveRegistry saves everything held by reg with SaveAllData.
func (r *CSVRepository) SaveRegistry(reg *Registry) error {
	return r.SaveAllData(reg.Students(), reg.Courses(), reg.Assessments())
}

// SaveAllData replaces the four data files as one unit. Nothing on disk
// changes unless every temp file is written and validated; the renames are
// the commit point. A failure partway through the renames is reported but
// not rolled back.
func (r *CSVRepository) SaveAllData(students []*models.Student, courses []*models.Course, assessments []*models.Assessment) error {
	const op = "Save All Data"

	if err := checkNoNil(students, courses, assessments); err != nil {
		return r.fail(op, err)
	}
	if err := checkDuplicateKeys(students, courses, assessments); err != nil {
		return r.fail(op, err)
	}
	if err := r.ValidateFilePermissions(r.paths.DataDir); err != nil {
		return r.fail(op, err)
	}
	if err := r.ValidateDiskSpace(r.paths.DataDir, r.minFreeBytes); err != nil {
		return r.fail(op, err)
	}
	if err := r.BackupDataFiles(); err != nil {
		return r.fail(op, fmt.Errorf("backup before save failed: %w", err))
	}

	targets := r.paths.DataFiles()
	temps := make([]string, len(targets))
	for i, t := range targets {
		temps[i] = t + tempSuffix
	}

	writeErr := errors.Join(
		r.SaveStudents(temps[0], students),
		r.SaveCourses(temps[1], courses),
		r.SaveAssessments(temps[2], assessments),
		r.SaveEnrollments(temps[3], students, courses),
	)
	if writeErr != nil {
		r.cleanupTempFiles(temps)
		return r.fail(op, fmt.Errorf("%w: writing temp files: %v", apperrors.ErrCommitFailed, writeErr))
	}

	if r.afterTempWrite != nil {
		r.afterTempWrite(temps)
	}

	if err := r.validateTempFiles(temps); err != nil {
		r.cleanupTempFiles(temps)
		return r.fail(op, err)
	}

	for i := range temps {
		if err := r.fs.Rename(temps[i], targets[i]); err != nil {
			r.cleanupTempFiles(temps[i:])
			return r.fail(op, fmt.Errorf("%w: %d of %d file(s) committed before failure: %v",
				apperrors.ErrCommitFailed, i, len(temps), err))
		}
	}

	r.logOperation(op, true, fmt.Sprintf("saved %d student(s), %d course(s), %d assessment(s)",
		len(students), len(courses), len(assessments)))
	return nil
}

func checkNoNil(students []*models.Student, courses []*models.Course, assessments []*models.Assessment) error {
	for i, s := range students {
		if s == nil {
			return fmt.Errorf("%w: student at index %d", apperrors.ErrNilEntity, i)
		}
	}
	for i, c := range courses {
		if c == nil {
			return fmt.Errorf("%w: course at index %d", apperrors.ErrNilEntity, i)
		}
	}
	for i, a := range assessments {
		if a == nil {
			return fmt.Errorf("%w: assessment at index %d", apperrors.ErrNilEntity, i)
		}
	}
	return nil
}

// checkDuplicateKeys does a pairwise scan, which is fine at school scale.
func checkDuplicateKeys(students []*models.Student, courses []*models.Course, assessments []*models.Assessment) error {
	for i := range students {
		for j := i + 1; j < len(students); j++ {
			if students[i].RollNumber() == students[j].RollNumber() {
				return fmt.Errorf("%w: roll number %d", apperrors.ErrDuplicateKey, students[i].RollNumber())
			}
		}
	}
	for i := range courses {
		for j := i + 1; j < len(courses); j++ {
			if courses[i].CourseID() == courses[j].CourseID() {
				return fmt.Errorf("%w: course ID %s", apperrors.ErrDuplicateKey, courses[i].CourseID())
			}
		}
	}
	for i := range assessments {
		for j := i + 1; j < len(assessments); j++ {
			if assessments[i].AssessmentID() == assessments[j].AssessmentID() {
				return fmt.Errorf("%w: assessment ID %s", apperrors.ErrDuplicateKey, assessments[i].AssessmentID())
			}
		}
	}
	return nil
}

func (r *CSVRepository) validateTempFiles(temps []string) error {
	for _, t := range temps {
		if !r.fs.Exists(t) {
			return fmt.Errorf("%w: temp file %s is missing", apperrors.ErrCommitFailed, t)
		}
		size, err := r.fs.Size(t)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrCommitFailed, err)
		}
		if size == 0 {
			return fmt.Errorf("%w: temp file %s is empty", apperrors.ErrCommitFailed, t)
		}
		if !r.fs.IsValidCSVFile(t) {
			return fmt.Errorf("%w: temp file %s failed the CSV format check", apperrors.ErrCommitFailed, t)
		}
	}
	return nil
}

func (r *CSVRepository) cleanupTempFiles(temps []string) {
	for _, t := range temps {
		if err := r.fs.Remove(t); err != nil {
			r.log.Warn().Err(err).Str("path", t).Msg("Failed to remove temp file")
		}
	}
}

// InitializeDataFiles creates the data and backup directories and a
// header-only file for each data file that does not exist yet.
func (r *CSVRepository) InitializeDataFiles() error {
	const op = "Initialize Data Files"

	for _, dir := range []string{r.paths.DataDir, r.paths.BackupDir} {
		if err := r.fs.EnsureDir(dir); err != nil {
			return r.fail(op, err)
		}
	}

	created := 0
	for _, path := range r.paths.DataFiles() {
		if r.fs.Exists(path) {
			continue
		}
		if err := r.CreateEmptyFileWithHeaders(path); err != nil {
			return r.fail(op, err)
		}
		created++
	}
	r.logOperation(op, true, fmt.Sprintf("data files ready in %s (%d created)", r.paths.DataDir, created))
	return nil
}

// ValidateFilePermissions checks that dir accepts new files.
func (r *CSVRepository) ValidateFilePermissions(dir string) error {
	if err := r.fs.CheckWritable(dir); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPermissionDenied, err)
	}
	return nil
}

// ValidateDiskSpace checks that dir's filesystem has at least required bytes
// free. Platforms without a free-space query pass.
func (r *CSVRepository) ValidateDiskSpace(dir string, required uint64) error {
	free, err := r.fs.FreeSpace(dir)
	if errors.Is(err, filestorage.ErrFreeSpaceUnsupported) {
		r.log.Debug().Str("path", dir).Msg("Free space check unavailable, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInsufficientSpace, err)
	}
	if free < required {
		return fmt.Errorf("%w: %d bytes free, %d required", apperrors.ErrInsufficientSpace, free, required)
	}
	return nil
}
