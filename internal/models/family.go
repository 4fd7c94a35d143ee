package models

import "time"

// Family is the billing unit: a parent profile owning children and one ledger account
type Family struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FamilyWithChildren combines a family with its active children
type FamilyWithChildren struct {
	Family   Family
	Children []Child
}
