// Package repository persists families, children, attendance, the ledger and
// passes. Every repository accepts a database.DBTX so callers can compose
// several of them inside one transaction via WithTx.
package repository

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"summerfest/internal/database"
)

// ErrNotFound is returned by updates that matched no row
var ErrNotFound = errors.New("record not found")

// money formats an amount the way every dialect stores it
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// insertError wraps err, tagging unique violations with database.ErrUniqueViolation
func insertError(what string, err error) error {
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("failed to create %s: %w: %w", what, database.ErrUniqueViolation, err)
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}
