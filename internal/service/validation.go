package service

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72
	minNameLen     = 2
	maxNameLen     = 100
	maxEmailLen    = 255
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[\p{L} '\-]+$`)
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return &ValidationError{Field: "password", Message: "password must be at least 6 characters long"}
	}
	if len(password) > maxPasswordLen {
		return &ValidationError{Field: "password", Message: "password must be at most 72 bytes long"}
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &ValidationError{Field: "password", Message: "password must contain at least one letter and one number"}
	}
	return nil
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLen || n > maxNameLen {
		return &ValidationError{Field: "name", Message: "name must be between 2 and 100 characters"}
	}
	if !namePattern.MatchString(name) {
		return &ValidationError{Field: "name", Message: "name can only contain letters, spaces, hyphens, and apostrophes"}
	}
	return nil
}
