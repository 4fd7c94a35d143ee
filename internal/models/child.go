package models

import (
	"fmt"
	"time"
)

// Class groups children are registered into
const (
	ClassCreche  = "creche"
	ClassTackers = "tackers"
	ClassMinis   = "minis"
	ClassNitro   = "nitro"
	Class56ers   = "56ers"
)

var classNames = map[string]string{
	ClassCreche:  "Creche",
	ClassTackers: "Little Tackers",
	ClassMinis:   "Minis",
	ClassNitro:   "Nitro",
	Class56ers:   "56ers",
}

// Child represents a registered child. QRCode is the externally scannable identifier.
type Child struct {
	ID              int64
	FamilyID        int64
	FirstName       string
	LastName        string
	DateOfBirth     time.Time
	ClassGroup      string
	PhotoConsent    bool
	HasDietaryNeeds bool
	HasMedicalNeeds bool
	QRCode          string
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName returns the child's first and last name
func (c Child) FullName() string {
	return fmt.Sprintf("%s %s", c.FirstName, c.LastName)
}

// IsDeleted reports whether the child has been removed from the family
func (c Child) IsDeleted() bool {
	return c.DeletedAt != nil
}

// ClassName returns the display name of the child's class group
func (c Child) ClassName() string {
	if name, ok := classNames[c.ClassGroup]; ok {
		return name
	}
	return c.ClassGroup
}

// ValidClassGroup reports whether group is one of the known class groups
func ValidClassGroup(group string) bool {
	_, ok := classNames[group]
	return ok
}
