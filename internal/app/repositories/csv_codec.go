package repositories

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yigit/schoolrecords/internal/app/models"
	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
	"github.com/yigit/schoolrecords/internal/pkg/validation"
)

// Column order of each data file.
var (
	StudentHeaders = []string{
		"RollNumber", "FirstName", "LastName", "Address", "DateOfBirth",
		"ContactEmail", "EmergencyContact", "EnrollmentDate",
	}
	CourseHeaders = []string{
		"CourseId", "CourseName", "Credits", "Description", "Teacher",
		"Duration", "StartDate", "EndDate", "MaxEnrollment", "IsActive",
	}
	AssessmentHeaders = []string{
		"AssessmentId", "StudentRollNumber", "CourseId", "InternalMarks", "FinalMarks",
		"CalculatedGrade", "AssessmentDate", "AssessmentType", "IsSubmitted",
		"SubmissionDate", "Remarks",
	}
	EnrollmentHeaders = []string{
		"EnrollmentId", "StudentRollNumber", "CourseId", "EnrollmentDate", "Status",
	}
)

const utf8BOM = "\ufeff"

// csvRow is one parsed data record and the line it started on.
type csvRow struct {
	line   int
	fields []string
}

// csvDocument is a parsed file: a validated header plus data rows, and any
// rows the tokenizer itself rejected.
type csvDocument struct {
	rows    []csvRow
	rowErrs []RowError
}

// readCSV parses r, checks the header against want and collects the data
// rows. Blank lines are skipped. A header mismatch or an I/O failure aborts.
func readCSV(r io.Reader, want []string) (*csvDocument, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrHeaderMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read header: %v", apperrors.ErrHeaderMismatch, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if !headersMatch(header, want) {
		return nil, fmt.Errorf("%w: expected %q, got %q", apperrors.ErrHeaderMismatch,
			strings.Join(want, ","), strings.Join(header, ","))
	}

	doc := &csvDocument{}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				doc.rowErrs = append(doc.rowErrs, RowError{Line: perr.StartLine, Reason: perr.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("read error: %w", err)
		}
		line, _ := cr.FieldPos(0)
		doc.rows = append(doc.rows, csvRow{line: line, fields: fields})
	}
	return doc, nil
}

func headersMatch(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

// writeCSVLine writes fields joined by commas, quoting as needed.
func writeCSVLine(w io.Writer, fields []string) error {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = validation.EscapeCSVField(f)
	}
	_, err := io.WriteString(w, strings.Join(escaped, ",")+"\n")
	return err
}

func formatMarks(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// parseFlag accepts the truthy spellings written by older versions of the files.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "active", "1", "y":
		return true
	default:
		return false
	}
}

func parseIntField(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return n, nil
}

func parseFloatField(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return f, nil
}

func checkFieldCount(fields []string, want int) error {
	if len(fields) != want {
		return fmt.Errorf("expected %d fields, got %d", want, len(fields))
	}
	return nil
}

func studentRecord(s *models.Student) []string {
	return []string{
		strconv.Itoa(s.RollNumber()),
		s.FirstName(),
		s.LastName(),
		s.Address(),
		s.DateOfBirth(),
		s.ContactEmail(),
		s.EmergencyContact(),
		s.EnrollmentDate(),
	}
}

func parseStudent(fields []string) (*models.Student, error) {
	if err := checkFieldCount(fields, len(StudentHeaders)); err != nil {
		return nil, err
	}
	roll, err := parseIntField("roll number", fields[0])
	if err != nil {
		return nil, err
	}
	return models.NewStudent(models.NewStudentParams{
		RollNumber:       roll,
		FirstName:        fields[1],
		LastName:         fields[2],
		Address:          fields[3],
		DateOfBirth:      fields[4],
		ContactEmail:     fields[5],
		EmergencyContact: fields[6],
		EnrollmentDate:   fields[7],
	})
}

func courseRecord(c *models.Course) []string {
	return []string{
		c.CourseID(),
		c.CourseName(),
		strconv.Itoa(c.Credits()),
		c.Description(),
		c.Teacher(),
		strconv.Itoa(c.Duration()),
		c.StartDate(),
		c.EndDate(),
		strconv.Itoa(c.MaxEnrollment()),
		formatYesNo(c.IsActive()),
	}
}

func parseCourse(fields []string) (*models.Course, error) {
	if err := checkFieldCount(fields, len(CourseHeaders)); err != nil {
		return nil, err
	}
	credits, err := parseIntField("credits", fields[2])
	if err != nil {
		return nil, err
	}
	duration, err := parseIntField("duration", fields[5])
	if err != nil {
		return nil, err
	}
	maxEnrollment, err := parseIntField("max enrollment", fields[8])
	if err != nil {
		return nil, err
	}

	opts := []models.CourseOption{
		models.WithSchedule(fields[6], fields[7]),
		models.WithMaxEnrollment(maxEnrollment),
		models.WithActive(parseFlag(fields[9])),
	}
	if fields[4] != "" {
		opts = append(opts, models.WithTeacher(fields[4]))
	}
	return models.NewCourse(fields[0], fields[1], credits, fields[3], duration, opts...)
}

func assessmentRecord(a *models.Assessment) []string {
	return []string{
		a.AssessmentID(),
		strconv.Itoa(a.StudentRollNumber()),
		a.CourseID(),
		formatMarks(a.InternalMarks()),
		formatMarks(a.FinalMarks()),
		formatMarks(a.CalculatedGrade()),
		a.AssessmentDate(),
		a.AssessmentType(),
		formatYesNo(a.IsSubmitted()),
		a.SubmissionDate(),
		a.Remarks(),
	}
}

// parseAssessment ignores the stored CalculatedGrade column; the grade is
// always recomputed from the marks.
func parseAssessment(fields []string) (*models.Assessment, error) {
	if err := checkFieldCount(fields, len(AssessmentHeaders)); err != nil {
		return nil, err
	}
	roll, err := parseIntField("student roll number", fields[1])
	if err != nil {
		return nil, err
	}
	internal, err := parseFloatField("internal marks", fields[3])
	if err != nil {
		return nil, err
	}
	final, err := parseFloatField("final marks", fields[4])
	if err != nil {
		return nil, err
	}
	return models.NewAssessment(fields[0], roll, fields[2], internal, final, fields[6],
		models.WithAssessmentType(fields[7]),
		models.WithSubmission(parseFlag(fields[8]), fields[9]),
		models.WithRemarks(fields[10]),
	)
}

func enrollmentRecord(e models.Enrollment) []string {
	return []string{
		e.EnrollmentID,
		strconv.Itoa(e.StudentRollNumber),
		e.CourseID,
		e.EnrollmentDate,
		string(e.Status),
	}
}

func parseEnrollment(fields []string) (models.Enrollment, error) {
	if err := checkFieldCount(fields, len(EnrollmentHeaders)); err != nil {
		return models.Enrollment{}, err
	}
	roll, err := parseIntField("student roll number", fields[1])
	if err != nil {
		return models.Enrollment{}, err
	}
	return models.Enrollment{
		EnrollmentID:      fields[0],
		StudentRollNumber: roll,
		CourseID:          models.FormatCourseID(fields[2]),
		EnrollmentDate:    fields[3],
		Status:            models.ParseEnrollmentStatus(strings.TrimSpace(fields[4])),
	}, nil
}
