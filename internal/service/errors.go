package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"summerfest/internal/models"
)

var (
	ErrUnknownChild           = errors.New("unknown child")
	ErrUnknownFamily          = errors.New("unknown family")
	ErrDuplicateCheckIn       = errors.New("already checked in today")
	ErrNotCheckedIn           = errors.New("child is not checked in")
	ErrAlreadyCheckedOut      = errors.New("child already checked out")
	ErrInvalidStatus          = errors.New("invalid status change")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrAccountFrozen          = errors.New("ledger account frozen pending reconciliation")
	ErrPaymentAlreadyRecorded = errors.New("payment already recorded")
	ErrLedgerInvariant        = errors.New("ledger balance disagrees with transactions")
	ErrInvalidPassType        = errors.New("invalid pass type")
	ErrInvalidChild           = errors.New("invalid child details")
)

// DuplicateCheckInError carries the record that already exists for the child and day
type DuplicateCheckInError struct {
	Existing *models.Attendance
}

func (e *DuplicateCheckInError) Error() string {
	if e.Existing == nil {
		return ErrDuplicateCheckIn.Error()
	}
	return fmt.Sprintf("child %d %s (%s)", e.Existing.ChildID, ErrDuplicateCheckIn, models.DateKey(e.Existing.Date))
}

func (e *DuplicateCheckInError) Is(target error) bool {
	return target == ErrDuplicateCheckIn
}

// LedgerInvariantError reports an account whose cached balance is not the sum of its log
type LedgerInvariantError struct {
	AccountID int64
	FamilyID  int64
	Balance   decimal.Decimal
	Expected  decimal.Decimal
}

func (e *LedgerInvariantError) Error() string {
	return fmt.Sprintf("family %d account %d: balance %s, transactions sum to %s",
		e.FamilyID, e.AccountID, e.Balance.StringFixed(2), e.Expected.StringFixed(2))
}

func (e *LedgerInvariantError) Is(target error) bool {
	return target == ErrLedgerInvariant
}
