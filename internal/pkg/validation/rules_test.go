package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yigit/schoolrecords/internal/pkg/helpers"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("ayse.yilmaz@example.edu"))
	assert.True(t, IsValidEmail("a+tag@sub.example.co"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("no-at-sign.example.com"))
	assert.False(t, IsValidEmail("user@domain"))
	assert.False(t, IsValidEmail("user@domain.c"))
}

func TestIsValidPhoneNumber(t *testing.T) {
	assert.True(t, IsValidPhoneNumber("+90 532 555 0101"))
	assert.True(t, IsValidPhoneNumber("555-010-2233"))
	assert.True(t, IsValidPhoneNumber("1234567"))
	assert.False(t, IsValidPhoneNumber("123456"))
	assert.False(t, IsValidPhoneNumber("1234567890123456"))
	assert.False(t, IsValidPhoneNumber("12+34567890"))
	assert.False(t, IsValidPhoneNumber(""))
}

func TestDateValidation(t *testing.T) {
	restore := helpers.SetClock(func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) })
	defer restore()

	assert.True(t, IsValidDateFormat("2024-02-30"))
	assert.False(t, IsValidDate("2024-02-30"))
	assert.True(t, IsValidDate("2024-02-29"))
	assert.False(t, IsValidDate("2023-02-29"))
	assert.False(t, IsValidDateFormat("2024/01/01"))
	assert.False(t, IsValidDateFormat("24-01-01"))

	assert.True(t, IsDateNotFuture("2024-06-01"))
	assert.True(t, IsDateNotFuture("1999-12-31"))
	assert.True(t, IsDateNotFuture("2024-09-01"), "later dates are not rejected")
	assert.False(t, IsDateNotFuture("2024-06-31"))
	assert.False(t, IsDateNotFuture(""))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("O'Connor"))
	assert.True(t, IsValidName("Jean-Luc"))
	assert.True(t, IsValidName("J. R. Smith"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("Robert; DROP"))
	assert.False(t, IsValidName("Ayşe"))

	long := make([]byte, NameMaxLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.True(t, IsValidName(string(long[:NameMaxLength])))
	assert.False(t, IsValidName(string(long)))
}

func TestRollNumberAndCourseID(t *testing.T) {
	assert.True(t, IsValidRollNumber(1))
	assert.True(t, IsValidRollNumber(99999))
	assert.False(t, IsValidRollNumber(0))
	assert.False(t, IsValidRollNumber(100000))

	assert.True(t, IsValidCourseID("MATH101"))
	assert.True(t, IsValidCourseID("CS1010"))
	assert.False(t, IsValidCourseID("CS101"))
	assert.False(t, IsValidCourseID("math101"))
	assert.False(t, IsValidCourseID("101MATH"))
	assert.False(t, IsValidCourseID("ABCDEFGHIJ1"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "a   b", SanitizeInput("  a<&>b \n"))
	assert.Equal(t, "say 'hi'", SanitizeInput(`say "hi"`))
	assert.Equal(t, "nul", SanitizeInput("n\x00ul"))
	assert.Equal(t, "1 School Rd\nTown", SanitizeInput("1 School Rd\r\nTown\r"))
}

func TestEscapeCSVField(t *testing.T) {
	assert.Equal(t, "plain", EscapeCSVField("plain"))
	assert.Equal(t, `"a,b"`, EscapeCSVField("a,b"))
	assert.Equal(t, `"say ""hi"""`, EscapeCSVField(`say "hi"`))
	assert.Equal(t, "\"two\nlines\"", EscapeCSVField("two\nlines"))
	assert.Equal(t, "", EscapeCSVField(""))
}

func TestNormalizeLineBreaks(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", NormalizeLineBreaks("a\r\nb\rc\n"))
	assert.Equal(t, "plain", NormalizeLineBreaks("plain"))
}

func TestParseAndValidate(t *testing.T) {
	v, ok := ParseAndValidateInt(" 42 ", 1, 100)
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = ParseAndValidateInt("420", 1, 100)
	assert.False(t, ok)
	_, ok = ParseAndValidateInt("abc", 1, 100)
	assert.False(t, ok)

	f, ok := ParseAndValidateFloat("99.5", 0, 100)
	assert.True(t, ok)
	assert.InDelta(t, 99.5, f, 1e-9)
	_, ok = ParseAndValidateFloat("", 0, 100)
	assert.False(t, ok)
}

func TestSafetyChecks(t *testing.T) {
	assert.True(t, IsSafeInput("Calculus I"))
	assert.False(t, IsSafeInput("../../etc/passwd"))
	assert.False(t, IsSafeInput("<SCRIPT>alert(1)"))
	assert.False(t, IsSafeInput("x\x00y"))

	assert.True(t, IsPrintableASCII("Hello, World!"))
	assert.False(t, IsPrintableASCII("tab\there"))

	assert.True(t, MatchesWhitelist("abc123", "abcdefghijklmnopqrstuvwxyz0123456789"))
	assert.False(t, MatchesWhitelist("abc-123", "abcdefghijklmnopqrstuvwxyz0123456789"))
}

func TestStringValidation(t *testing.T) {
	assert.False(t, NewStringValidation("").Validate())
	assert.True(t, NewStringValidation("").WithRequired(false).WithMinLength(3).Validate())
	assert.False(t, NewStringValidation("ab").WithMinLength(3).Validate())
	assert.False(t, NewStringValidation("abcdef").WithMaxLength(5).Validate())
	assert.True(t, NewStringValidation("ABC123").WithPattern(CompiledPatterns.CourseID).Validate())
}

func TestNumericValidation(t *testing.T) {
	assert.True(t, NewNumericValidation(0).InRange(0, 100).Validate())
	assert.True(t, NewNumericValidation(100).InRange(0, 100).Validate())
	assert.False(t, NewNumericValidation(100.1).InRange(0, 100).Validate())
	assert.False(t, NewNumericValidation(-1).InRange(0, 100).Validate())
}
