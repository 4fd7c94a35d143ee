package validation

import (
	"errors"
	"testing"
	"time"

	"summerfest/internal/models"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"mobile with spaces", "0412 345 678", false},
		{"international", "+61 2 9876 5432", false},
		{"landline with brackets", "(02) 9876-5432", false},
		{"too short", "1234", true},
		{"letters", "call me", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhone(tt.phone)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChild(t *testing.T) {
	today := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	valid := models.Child{FirstName: "Ava", LastName: "Nguyen", ClassGroup: models.ClassMinis}

	tests := []struct {
		name      string
		mutate    func(*models.Child)
		wantField string
	}{
		{"valid", func(c *models.Child) {}, ""},
		{"no class yet", func(c *models.Child) { c.ClassGroup = "" }, ""},
		{"missing first name", func(c *models.Child) { c.FirstName = "  " }, "first_name"},
		{"missing last name", func(c *models.Child) { c.LastName = "" }, "last_name"},
		{"unknown class", func(c *models.Child) { c.ClassGroup = "seniors" }, "class_group"},
		{"born tomorrow", func(c *models.Child) { c.DateOfBirth = today.AddDate(0, 0, 1) }, "date_of_birth"},
		{"born today", func(c *models.Child) { c.DateOfBirth = today }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child := valid
			tt.mutate(&child)
			err := ValidateChild(child, today)

			if tt.wantField == "" {
				if err != nil {
					t.Errorf("ValidateChild() error = %v, want nil", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.wantField {
				t.Errorf("ValidateChild() error = %v, want field %s", err, tt.wantField)
			}
		})
	}
}

func TestValidateFamily(t *testing.T) {
	tests := []struct {
		name    string
		family  models.Family
		wantErr bool
	}{
		{"name only", models.Family{Name: "Okafor"}, false},
		{"full details", models.Family{Name: "Okafor", Email: "okafor@example.com", Phone: "0412 345 678"}, false},
		{"missing name", models.Family{Email: "okafor@example.com"}, true},
		{"bad email", models.Family{Name: "Okafor", Email: "okafor"}, true},
		{"bad phone", models.Family{Name: "Okafor", Phone: "12"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFamily(tt.family)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFamily() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
