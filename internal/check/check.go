// Package check implements the field-format validation rules for
// account registration input.
package check

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"taskoo/api/internal/apperr"
)

const (
	maxNameLen  = 64
	maxLabelLen = 128
)

// Validator validates named fields against their format rules. It
// passes silently or fails with a validation error naming the field.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(field, value string) error {
	switch field {
	case "firstName", "lastName":
		return checkName(field, value)
	case "department", "position":
		return checkLabel(field, value)
	case "email":
		return checkEmail(value)
	case "token":
		return checkToken(value)
	default:
		return apperr.Validation(field, "unknown field")
	}
}

func checkName(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return apperr.Validation(field, "must not be empty")
	}
	if len(value) > maxNameLen {
		return apperr.Validation(field, "too long")
	}
	for _, r := range value {
		if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != ' ' {
			return apperr.Validation(field, "must contain only letters")
		}
	}
	return nil
}

func checkLabel(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation(field, "must not be empty")
	}
	if len(value) > maxLabelLen {
		return apperr.Validation(field, "too long")
	}
	return nil
}

func checkEmail(value string) error {
	value = strings.TrimSpace(value)
	at := strings.Index(value, "@")
	if at < 1 || at == len(value)-1 || strings.ContainsAny(value, " \t") {
		return apperr.Validation("email", "not a valid email address")
	}
	return nil
}

func checkToken(value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return apperr.Validation("token", "not a valid invitation token")
	}
	return nil
}
