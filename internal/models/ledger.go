package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes funds added from charges
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// PaymentMethod records how a credit arrived
type PaymentMethod string

const (
	MethodStripe PaymentMethod = "stripe"
	MethodCash   PaymentMethod = "cash"
	MethodEFTPOS PaymentMethod = "eftpos"
	MethodSystem PaymentMethod = "system"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodStripe, MethodCash, MethodEFTPOS, MethodSystem:
		return true
	}
	return false
}

// LedgerAccount is a family's prepaid balance. Balance is a projection of the
// transaction log and must always equal the sum of its transactions.
type LedgerAccount struct {
	ID        int64
	FamilyID  int64
	Balance   decimal.Decimal
	Frozen    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerTransaction is an immutable ledger entry. Amount is signed:
// positive for credits, negative for debits.
type LedgerTransaction struct {
	ID          int64
	AccountID   int64
	Amount      decimal.Decimal
	Type        TransactionType
	Method      PaymentMethod
	Description string
	ExternalRef *string
	RecordedBy  string
	CreatedAt   time.Time
}

// SumTransactions totals signed transaction amounts
func SumTransactions(txns []LedgerTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total
}
