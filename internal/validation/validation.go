// Package validation checks registration details before they reach storage.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"summerfest/internal/models"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePhone accepts an optional phone number, ignoring spaces, dashes and brackets
func ValidatePhone(phone string) error {
	digits := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	if digits == "" {
		return nil
	}
	if !phoneRegex.MatchString(digits) {
		return ValidationError{Field: "phone", Message: "invalid phone number"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: "name is required"}
	}
	if len(name) > 100 {
		return ValidationError{Field: field, Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidateClassGroup accepts an empty group or one of the event's classes
func ValidateClassGroup(group string) error {
	if group != "" && !models.ValidClassGroup(group) {
		return ValidationError{Field: "class_group", Message: fmt.Sprintf("unknown class %q", group)}
	}
	return nil
}

// ValidateDateOfBirth rejects birthdays in the future
func ValidateDateOfBirth(dob, today time.Time) error {
	if !dob.IsZero() && dob.After(today) {
		return ValidationError{Field: "date_of_birth", Message: "date of birth is in the future"}
	}
	return nil
}

// ValidateChild checks a child's registration details
func ValidateChild(child models.Child, today time.Time) error {
	if err := ValidateName("first_name", child.FirstName); err != nil {
		return err
	}
	if err := ValidateName("last_name", child.LastName); err != nil {
		return err
	}
	if err := ValidateClassGroup(child.ClassGroup); err != nil {
		return err
	}
	return ValidateDateOfBirth(child.DateOfBirth, today)
}

// ValidateFamily checks a family's contact details. Email is optional.
func ValidateFamily(family models.Family) error {
	if err := ValidateName("name", family.Name); err != nil {
		return err
	}
	if family.Email != "" {
		if err := ValidateEmail(family.Email); err != nil {
			return err
		}
	}
	return ValidatePhone(family.Phone)
}
