// Package format holds the pure string transforms used to label and display
// passport fields.
package format

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	passportNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z]{2}\d{6}$`)
	passportGroupsPattern = regexp.MustCompile(`^(\w{2})(\d{2}\w{2})(\d{6})$`)
)

// ToTitleCase turns a snake_case field name into space separated words with
// an upper-cased first letter each: "date_of_birth" -> "Date Of Birth".
func ToTitleCase(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "_")
	for i, p := range parts {
		parts[i] = upperFirst(p)
	}
	return strings.Join(parts, " ")
}

// ToKebabCase replaces underscores with spaces without changing letter case.
func ToKebabCase(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// ToSnakeCase turns a DOM section name into its record key form:
// "rabies-vaccination" -> "rabies_vaccination".
func ToSnakeCase(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", "_"))
}

// DisplayLabel returns the localized label for field, falling back to its title case form.
func DisplayLabel(translation map[string]string, field string) string {
	if v := strings.TrimSpace(translation[field]); v != "" {
		return v
	}
	return ToTitleCase(field)
}

// BilingualLabel renders "<localized> / <Title Case>: ".
func BilingualLabel(translation map[string]string, field string) string {
	return DisplayLabel(translation, field) + " / " + ToTitleCase(field) + ": "
}

// SplitPassportNumber groups a passport number for display: "BG01AB123456" -> "BG 01AB 123456".
// Input that does not have the expected shape is returned unchanged.
func SplitPassportNumber(num string) string {
	return passportGroupsPattern.ReplaceAllString(num, "$1 $2 $3")
}

// ValidPassportNumber reports whether num is two letters, two digits, two letters and six digits.
func ValidPassportNumber(num string) bool {
	return passportNumberPattern.MatchString(num)
}

// NormalizePassportNumber strips separators and upper-cases user input.
func NormalizePassportNumber(num string) string {
	return strings.ToUpper(strings.Join(strings.FieldsFunc(num, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	}), ""))
}

// DoctorName renders a veterinarian's display name.
func DoctorName(first, last string) string {
	return strings.TrimSpace("Dr. " + strings.TrimSpace(strings.TrimSpace(first)+" "+strings.TrimSpace(last)))
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
