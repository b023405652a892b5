package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yigit/schoolrecords/internal/pkg/helpers"
)

// Validation rule patterns
var (
	// Email validation pattern: localpart@domain.tld
	EmailPattern = `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`

	// Date pattern - YYYY-MM-DD, shape only
	DatePattern = `^\d{4}-\d{2}-\d{2}$`

	// Course ID pattern - uppercase letters followed by digits
	CourseIDPattern = `^[A-Z]+[0-9]+$`

	// Name validation max length
	NameMaxLength = 50

	// Phone digit bounds
	PhoneMinDigits = 7
	PhoneMaxDigits = 15

	// Roll number bounds
	RollNumberMin = 1
	RollNumberMax = 99999
)

// NameExtraChars are the non-alphanumeric characters allowed in person names.
const NameExtraChars = " '-."

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Email    *regexp.Regexp
	Date     *regexp.Regexp
	CourseID *regexp.Regexp
}{
	Email:    regexp.MustCompile(EmailPattern),
	Date:     regexp.MustCompile(DatePattern),
	CourseID: regexp.MustCompile(CourseIDPattern),
}

// IsValidEmail reports whether email looks like localpart@domain.tld.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return CompiledPatterns.Email.MatchString(email)
}

// IsValidPhoneNumber keeps digits and a single leading '+', then requires
// 7 to 15 digits.
func IsValidPhoneNumber(phone string) bool {
	if phone == "" {
		return false
	}

	var b strings.Builder
	for _, c := range phone {
		if isDigit(c) || c == '+' {
			b.WriteRune(c)
		}
	}
	normalized := b.String()

	digits := strings.TrimPrefix(normalized, "+")
	if digits == "" || strings.Contains(digits, "+") {
		return false
	}
	return len(digits) >= PhoneMinDigits && len(digits) <= PhoneMaxDigits
}

// IsValidDateFormat checks the YYYY-MM-DD shape without calendar validation.
func IsValidDateFormat(date string) bool {
	return CompiledPatterns.Date.MatchString(date)
}

// IsValidDate checks the shape and that the date exists on the calendar.
func IsValidDate(date string) bool {
	if !IsValidDateFormat(date) {
		return false
	}
	_, err := helpers.ParseDate(date)
	return err == nil
}

// IsDateNotFuture guards enrollment dates. It checks the calendar only and
// does not compare against today, so stored rows with a later date still load.
func IsDateNotFuture(date string) bool {
	return date != "" && IsValidDate(date)
}

// IsValidName accepts 1..50 characters of letters, digits, space, ' - and '.'.
func IsValidName(name string) bool {
	if name == "" || len(name) > NameMaxLength {
		return false
	}
	return IsValidAlphanumeric(name, NameExtraChars)
}

// IsValidAlphanumeric reports whether every character is an ASCII letter or
// digit, or appears in extras.
func IsValidAlphanumeric(s, extras string) bool {
	for _, c := range s {
		if isDigit(c) || isLetter(c) || strings.ContainsRune(extras, c) {
			continue
		}
		return false
	}
	return true
}

// IsValidLength checks min <= len(s) <= max.
func IsValidLength(s string, min, max int) bool {
	return len(s) >= min && len(s) <= max
}

// IsValidRollNumber checks the student roll number range.
func IsValidRollNumber(roll int) bool {
	return roll >= RollNumberMin && roll <= RollNumberMax
}

// IsValidCourseID checks the letters-then-digits course code shape and length.
func IsValidCourseID(id string) bool {
	return IsValidLength(id, 6, 10) && CompiledPatterns.CourseID.MatchString(id)
}

// SanitizeInput strips NUL bytes, replaces <, > and & with a space, turns
// double quotes into single quotes, normalizes line breaks and trims the result.
func SanitizeInput(input string) string {
	r := strings.NewReplacer("\x00", "", "<", " ", ">", " ", "&", " ", `"`, "'")
	return TrimString(NormalizeLineBreaks(r.Replace(input)))
}

var lineBreakReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeLineBreaks turns CRLF and lone CR into LF. The CSV reader drops a
// CR that precedes LF even inside quotes, so stored text never carries one.
func NormalizeLineBreaks(s string) string {
	return lineBreakReplacer.Replace(s)
}

// TrimString trims leading and trailing whitespace.
func TrimString(s string) string {
	return strings.Trim(s, " \t\n\r\f\v")
}

// EscapeCSVField quotes a field containing a comma, quote or newline and
// doubles embedded quotes.
func EscapeCSVField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ParseAndValidateInt parses a trimmed integer and checks it against [min, max].
func ParseAndValidateInt(input string, min, max int) (int, bool) {
	trimmed := TrimString(input)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return value, value >= min && value <= max
}

// ParseAndValidateFloat parses a trimmed float and checks it against [min, max].
func ParseAndValidateFloat(input string, min, max float64) (float64, bool) {
	trimmed := TrimString(input)
	if trimmed == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return value, value >= min && value <= max
}

// NormalizeText lowercases and trims s.
func NormalizeText(s string) string {
	return strings.ToLower(TrimString(s))
}

var dangerousPatterns = []string{
	"../", `..\`, "<script", "</script", "javascript:",
	"vbscript:", "onload=", "onerror=", "onclick=",
	"drop table", "delete from", "insert into", "update set",
}

// IsSafeInput rejects NUL bytes and a handful of path traversal, script and
// SQL fragments.
func IsSafeInput(input string) bool {
	if strings.ContainsRune(input, 0) {
		return false
	}
	lower := NormalizeText(input)
	for _, p := range dangerousPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// IsPrintableASCII reports whether s consists only of printable ASCII characters.
func IsPrintableASCII(s string) bool {
	for _, c := range s {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// MatchesWhitelist reports whether every character of s is in allowed.
func MatchesWhitelist(s, allowed string) bool {
	for _, c := range s {
		if !strings.ContainsRune(allowed, c) {
			return false
		}
	}
	return true
}

// String validation
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}

	// Skip other validations for empty optional values
	if !v.Required && v.Value == "" {
		return true
	}

	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}

	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}

	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}

	return true
}

// Numeric validation over an inclusive range
type NumericValidation struct {
	Value float64
	Min   float64
	Max   float64
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(value float64) *NumericValidation {
	return &NumericValidation{Value: value}
}

// InRange sets the inclusive bounds
func (v *NumericValidation) InRange(min, max float64) *NumericValidation {
	v.Min = min
	v.Max = max
	return v
}

// Validate performs validation
func (v *NumericValidation) Validate() bool {
	return v.Value >= v.Min && v.Value <= v.Max
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
