package repositories

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
)

// headersFor picks the header set of a data file, first by configured path
// and then by the entity name in the file name.
func (r *CSVRepository) headersFor(path string) ([]string, bool) {
	switch path {
	case r.paths.Students:
		return StudentHeaders, true
	case r.paths.Courses:
		return CourseHeaders, true
	case r.paths.Assessments:
		return AssessmentHeaders, true
	case r.paths.Enrollments:
		return EnrollmentHeaders, true
	}

	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "students"):
		return StudentHeaders, true
	case strings.Contains(name, "courses"):
		return CourseHeaders, true
	case strings.Contains(name, "assessments"):
		return AssessmentHeaders, true
	case strings.Contains(name, "enrollments"):
		return EnrollmentHeaders, true
	}
	return nil, false
}

// CreateEmptyFileWithHeaders writes a header-only data file, replacing path.
func (r *CSVRepository) CreateEmptyFileWithHeaders(path string) error {
	headers, ok := r.headersFor(path)
	if !ok {
		return fmt.Errorf("%w: cannot tell which data file %s is", apperrors.ErrInvalidFormat, path)
	}
	f, err := r.fs.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSVLine(f, headers); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// IsFileRecoverable reports whether path exists and at least one of its
// first lines looks like CSV.
func (r *CSVRepository) IsFileRecoverable(path string) bool {
	f, err := r.fs.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for i := 0; i < 5 && sc.Scan(); i++ {
		if strings.Contains(sc.Text(), ",") {
			return true
		}
	}
	return false
}

// AttemptFileRecovery restores path from its newest .bak backup, or, when
// there is none, replaces it with a header-only file.
func (r *CSVRepository) AttemptFileRecovery(path string) error {
	const op = "File Recovery"

	backups, err := r.ListBackupFiles()
	if err != nil {
		return r.fail(op, err)
	}

	prefix := filepath.Base(path) + "_"
	newest := ""
	for _, b := range backups {
		name := filepath.Base(b)
		if !strings.HasPrefix(name, prefix) || !backupSuffix.MatchString(name) {
			continue
		}
		if newest == "" || name > filepath.Base(newest) {
			newest = b
		}
	}

	if newest != "" {
		if err := r.RestoreFromBackup(newest); err == nil {
			r.logOperation(op, true, "restored "+path+" from "+newest)
			return nil
		}
		r.log.Warn().Str("backup", newest).Msg("Restore failed, falling back to an empty file")
	}

	if err := r.CreateEmptyFileWithHeaders(path); err != nil {
		return r.fail(op, err)
	}
	r.logOperation(op, true, "created empty file "+path)
	return nil
}

// CountRecordsInFile returns the number of data records after the header.
func (r *CSVRepository) CountRecordsInFile(path string) (int, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr := csv.NewReader(bufio.NewReader(f))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	count := -1
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
		count++
	}
	return max(count, 0), nil
}

// ValidateFileFormat checks path against headers and returns one message
// per problem found. An empty result means the file is well formed.
func (r *CSVRepository) ValidateFileFormat(path string, headers []string) ([]string, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := readCSV(f, headers)
	if errors.Is(err, apperrors.ErrHeaderMismatch) {
		return []string{err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	var problems []string
	for _, e := range doc.rowErrs {
		problems = append(problems, e.String())
	}
	for _, row := range doc.rows {
		if err := checkFieldCount(row.fields, len(headers)); err != nil {
			problems = append(problems, RowError{Line: row.line, Reason: err.Error()}.String())
		}
	}
	return problems, nil
}
