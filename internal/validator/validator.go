// Package validator provides input validation and sanitization for the
// contact form and query parameters.
package validator

import (
	"errors"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/TridentTech8969/ASA/internal/models"
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInputTooLong = errors.New("input exceeds maximum length")
	ErrEmptyInput   = errors.New("input cannot be empty")
)

// Contact form limits
const (
	MaxNameLength    = 100
	MaxPhoneLength   = 15
	MaxEmailLength   = 100
	MaxCompanyLength = 100
	MaxSubjectLength = 200
	MinMessageLength = 10
	MaxMessageLength = 1000
	minPhoneDigits   = 7
)

var (
	// GSTIN: state code, PAN, entity number, the fixed "Z" and a checksum character.
	gstRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)

	// Digits with optional leading "+" and common separators.
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ().-]+$`)
)

// FieldError is the first problem found in a submission. Message is safe to
// show to the submitter.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// ValidateEmail validates email address format according to RFC 5322.
// Display names are not accepted.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrInvalidEmail
	}

	if _, domain, _ := strings.Cut(addr.Address, "@"); !strings.Contains(domain, ".") {
		return ErrInvalidEmail
	}

	return nil
}

// ValidatePhone accepts digits with an optional leading "+" and spaces,
// dots, hyphens or parentheses as separators.
func ValidatePhone(phone string) bool {
	if !phoneRegex.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// ValidateGST reports whether gst is a well-formed GSTIN.
func ValidateGST(gst string) bool {
	return gstRegex.MatchString(gst)
}

// NormalizeContactForm trims every field, strips control characters from
// single-line fields, upper-cases the GST number and fills the default
// subject.
func NormalizeContactForm(form *models.ContactForm) {
	form.FullName = SanitizeString(form.FullName, 0)
	form.PhoneNumber = SanitizeString(form.PhoneNumber, 0)
	form.Email = SanitizeString(form.Email, 0)
	form.GSTNumber = strings.ToUpper(SanitizeString(form.GSTNumber, 0))
	form.Company = SanitizeString(form.Company, 0)
	form.Subject = SanitizeString(form.Subject, 0)
	form.Message = strings.TrimSpace(strings.ReplaceAll(form.Message, "\x00", ""))
	if form.Subject == "" {
		form.Subject = models.DefaultContactSubject
	}
}

// ValidateContactForm normalizes form in place and returns the first rule it
// breaks, or nil.
func ValidateContactForm(form *models.ContactForm) *FieldError {
	NormalizeContactForm(form)

	switch {
	case form.FullName == "":
		return &FieldError{"FullName", "Full name is required"}
	case utf8.RuneCountInString(form.FullName) > MaxNameLength:
		return &FieldError{"FullName", "Full name cannot exceed 100 characters"}
	}

	switch {
	case form.PhoneNumber == "":
		return &FieldError{"PhoneNumber", "Phone number is required"}
	case !ValidatePhone(form.PhoneNumber):
		return &FieldError{"PhoneNumber", "Please enter a valid phone number"}
	case utf8.RuneCountInString(form.PhoneNumber) > MaxPhoneLength:
		return &FieldError{"PhoneNumber", "Phone number cannot exceed 15 characters"}
	}

	switch {
	case form.Email == "":
		return &FieldError{"Email", "Email is required"}
	case ValidateEmail(form.Email) != nil:
		return &FieldError{"Email", "Please enter a valid email address"}
	case utf8.RuneCountInString(form.Email) > MaxEmailLength:
		return &FieldError{"Email", "Email cannot exceed 100 characters"}
	}

	if form.GSTNumber != "" && !ValidateGST(form.GSTNumber) {
		return &FieldError{"GSTNumber", "Please enter a valid GST number"}
	}

	if utf8.RuneCountInString(form.Company) > MaxCompanyLength {
		return &FieldError{"Company", "Company name cannot exceed 100 characters"}
	}

	if utf8.RuneCountInString(form.Subject) > MaxSubjectLength {
		return &FieldError{"Subject", "Subject cannot exceed 200 characters"}
	}

	messageLength := utf8.RuneCountInString(form.Message)
	switch {
	case form.Message == "":
		return &FieldError{"Message", "Message is required"}
	case messageLength < MinMessageLength:
		return &FieldError{"Message", "Message must be at least 10 characters long"}
	case messageLength > MaxMessageLength:
		return &FieldError{"Message", "Message cannot exceed 1000 characters"}
	}

	return nil
}

// Pagination constants
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ValidatePagination clamps page to at least 1 and pageSize to 1..MaxPageSize,
// using DefaultPageSize when unset. page is also capped so the row offset
// (page-1)*pageSize fits in an int.
func ValidatePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if maxPage := math.MaxInt / pageSize; page > maxPage {
		page = maxPage
	}
	return page, pageSize
}

// SanitizeFilename removes dangerous characters from filename.
// Prevents path traversal and removes control characters.
func SanitizeFilename(filename string) string {
	// Remove path separators to prevent path traversal
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")

	// Quotes would break the Content-Disposition header
	filename = strings.ReplaceAll(filename, `"`, "'")

	filename = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, filename)

	filename = strings.TrimSpace(filename)

	// Limit length to 255 characters (common filesystem limit)
	if utf8.RuneCountInString(filename) > 255 {
		runes := []rune(filename)
		filename = string(runes[:255])
	}

	if filename == "" {
		return "attachment"
	}

	return filename
}

// SanitizeString removes potentially dangerous characters and enforces length limits.
// Removes control characters and trims whitespace.
func SanitizeString(input string, maxLength int) string {
	// Remove control characters (ASCII 0-31 and 127)
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	input = strings.TrimSpace(input)

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}
