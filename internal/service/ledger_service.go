package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"summerfest/internal/database"
	"summerfest/internal/metrics"
	"summerfest/internal/models"
	"summerfest/internal/repository"
)

// MaxManualPayment bounds a staff-entered payment
var MaxManualPayment = decimal.RequireFromString("100.00")

// Notifier tells families about ledger activity. Delivery failures never
// affect the ledger.
type Notifier interface {
	PaymentReceived(ctx context.Context, family models.Family, txn models.LedgerTransaction, balance decimal.Decimal) error
	LowBalance(ctx context.Context, family models.Family, balance decimal.Decimal) error
}

// CreditRequest describes funds added to a family's account
type CreditRequest struct {
	Amount      decimal.Decimal
	Description string
	Method      models.PaymentMethod
	RecordedBy  string
	// ExternalRef is the payment gateway's reference; a reference is only ever credited once
	ExternalRef string
}

// LedgerService owns every write to ledger balances
type LedgerService struct {
	db         *database.DB
	ledger     *repository.LedgerRepository
	families   *repository.FamilyRepository
	notifier   Notifier
	metrics    *metrics.Metrics
	lowBalance decimal.Decimal
}

// NewLedgerService creates a new ledger service. notifier and m may be nil.
func NewLedgerService(db *database.DB, ledger *repository.LedgerRepository, families *repository.FamilyRepository,
	notifier Notifier, m *metrics.Metrics, lowBalance decimal.Decimal) *LedgerService {
	return &LedgerService{
		db:         db,
		ledger:     ledger,
		families:   families,
		notifier:   notifier,
		metrics:    m,
		lowBalance: lowBalance,
	}
}

// GetOrCreateAccount returns the family's account, opening it at zero
func (s *LedgerService) GetOrCreateAccount(ctx context.Context, familyID int64) (*models.LedgerAccount, error) {
	if _, err := s.family(ctx, familyID); err != nil {
		return nil, err
	}
	account, err := s.ledger.GetOrCreateAccount(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}
	return account, nil
}

// Balance returns the family's current balance; zero if no account exists yet
func (s *LedgerService) Balance(ctx context.Context, familyID int64) (decimal.Decimal, error) {
	account, err := s.ledger.GetAccountByFamily(ctx, familyID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	if account == nil {
		return decimal.Zero, nil
	}
	return account.Balance, nil
}

// Transactions returns the family's ledger entries, oldest first
func (s *LedgerService) Transactions(ctx context.Context, familyID int64) ([]models.LedgerTransaction, error) {
	account, err := s.ledger.GetAccountByFamily(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}
	if account == nil {
		return nil, nil
	}
	txns, err := s.ledger.GetTransactions(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return txns, nil
}

// Credit adds funds. A credit whose ExternalRef was already recorded returns
// the original transaction with ErrPaymentAlreadyRecorded.
func (s *LedgerService) Credit(ctx context.Context, familyID int64, req CreditRequest) (*models.LedgerTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit must be positive", ErrInvalidAmount)
	}
	if req.Method == "" {
		req.Method = models.MethodSystem
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, req.Method)
	}

	family, err := s.family(ctx, familyID)
	if err != nil {
		return nil, err
	}

	txn := &models.LedgerTransaction{
		Amount:      req.Amount,
		Type:        models.TransactionCredit,
		Method:      req.Method,
		Description: req.Description,
		RecordedBy:  req.RecordedBy,
	}
	if req.ExternalRef != "" {
		ref := req.ExternalRef
		txn.ExternalRef = &ref
	}

	var balance decimal.Decimal
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		ledger := s.ledger.WithTx(tx)
		if txn.ExternalRef != nil {
			existing, err := ledger.GetTransactionByExternalRef(ctx, *txn.ExternalRef)
			if err != nil {
				return err
			}
			if existing != nil {
				txn = existing
				return ErrPaymentAlreadyRecorded
			}
		}

		_, balance, err = s.apply(ctx, ledger, familyID, txn)
		return err
	})
	if errors.Is(err, database.ErrUniqueViolation) && txn.ExternalRef != nil {
		// Lost a race with the same gateway callback
		existing, lookupErr := s.ledger.GetTransactionByExternalRef(ctx, *txn.ExternalRef)
		if lookupErr == nil && existing != nil {
			return existing, ErrPaymentAlreadyRecorded
		}
	}
	if errors.Is(err, ErrPaymentAlreadyRecorded) {
		slog.Info("duplicate payment ignored", "family_id", familyID, "external_ref", req.ExternalRef)
		return txn, err
	}
	if err != nil {
		return nil, err
	}

	s.metrics.Credit(string(txn.Method))
	slog.Info("ledger credit recorded",
		"family_id", familyID,
		"amount", txn.Amount.StringFixed(2),
		"method", txn.Method,
		"balance", balance.StringFixed(2),
	)
	s.notify(ctx, "payment receipt", func(n Notifier) error {
		return n.PaymentReceived(ctx, *family, *txn, balance)
	})

	return txn, nil
}

// RecordManualPayment credits a cash or EFTPOS payment taken by staff
func (s *LedgerService) RecordManualPayment(ctx context.Context, familyID int64, amount decimal.Decimal,
	method models.PaymentMethod, recordedBy, note string) (*models.LedgerTransaction, error) {
	if !amount.IsPositive() || amount.GreaterThan(MaxManualPayment) {
		return nil, fmt.Errorf("%w: manual payments must be between 0.01 and %s", ErrInvalidAmount, MaxManualPayment.StringFixed(2))
	}
	if method != models.MethodCash && method != models.MethodEFTPOS {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, method)
	}

	description := fmt.Sprintf("Manual %s payment", method)
	if note != "" {
		description += ": " + note
	}
	return s.Credit(ctx, familyID, CreditRequest{
		Amount:      amount,
		Description: description,
		Method:      method,
		RecordedBy:  recordedBy,
	})
}

// RecordGatewayPayment credits a payment confirmed by the card gateway
func (s *LedgerService) RecordGatewayPayment(ctx context.Context, familyID int64, amount decimal.Decimal, reference string) (*models.LedgerTransaction, error) {
	if reference == "" {
		return nil, errors.New("payment reference is required")
	}
	return s.Credit(ctx, familyID, CreditRequest{
		Amount:      amount,
		Description: "Online top-up",
		Method:      models.MethodStripe,
		ExternalRef: reference,
	})
}

// Debit charges the family's account. It never refuses for lack of funds.
func (s *LedgerService) Debit(ctx context.Context, familyID int64, amount decimal.Decimal, description string) (*models.LedgerTransaction, error) {
	if _, err := s.family(ctx, familyID); err != nil {
		return nil, err
	}

	var (
		txn           *models.LedgerTransaction
		before, after decimal.Decimal
	)
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		txn, before, after, err = s.debit(ctx, s.ledger.WithTx(tx), familyID, amount, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterDebit(ctx, familyID, before, after)
	return txn, nil
}

// debit appends a charge inside the caller's transaction, returning the
// balance before and after it
func (s *LedgerService) debit(ctx context.Context, ledger *repository.LedgerRepository, familyID int64,
	amount decimal.Decimal, description string) (*models.LedgerTransaction, decimal.Decimal, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, decimal.Zero, fmt.Errorf("%w: debit must be positive", ErrInvalidAmount)
	}

	txn := &models.LedgerTransaction{
		Amount:      amount.Neg(),
		Type:        models.TransactionDebit,
		Method:      models.MethodSystem,
		Description: description,
	}
	before, after, err := s.apply(ctx, ledger, familyID, txn)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	return txn, before, after, nil
}

// apply appends txn and moves the balance by its signed amount. ledger must be
// bound to the enclosing transaction.
func (s *LedgerService) apply(ctx context.Context, ledger *repository.LedgerRepository, familyID int64,
	txn *models.LedgerTransaction) (before, after decimal.Decimal, err error) {
	if _, err := ledger.GetOrCreateAccount(ctx, familyID); err != nil {
		return before, after, err
	}
	account, err := ledger.LockAccount(ctx, familyID)
	if err != nil {
		return before, after, err
	}
	if account == nil {
		return before, after, fmt.Errorf("ledger account for family %d vanished", familyID)
	}
	if account.Frozen {
		return before, after, ErrAccountFrozen
	}

	txn.AccountID = account.ID
	if err := ledger.InsertTransaction(ctx, txn); err != nil {
		return before, after, err
	}

	before = account.Balance
	after = account.Balance.Add(txn.Amount)
	if err := ledger.UpdateBalance(ctx, account.ID, after); err != nil {
		return before, after, err
	}
	return before, after, nil
}

// afterDebit warns the family when a committed debit takes them below the threshold
func (s *LedgerService) afterDebit(ctx context.Context, familyID int64, before, after decimal.Decimal) {
	if !before.GreaterThanOrEqual(s.lowBalance) || !after.LessThan(s.lowBalance) {
		return
	}
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil || family == nil {
		slog.Warn("low balance notice skipped", "family_id", familyID, "error", err)
		return
	}
	s.notify(ctx, "low balance notice", func(n Notifier) error {
		return n.LowBalance(ctx, *family, after)
	})
}

func (s *LedgerService) notify(ctx context.Context, what string, send func(Notifier) error) {
	if s.notifier == nil {
		return
	}
	if err := send(s.notifier); err != nil {
		slog.Warn("notification failed", "notification", what, "error", err)
	}
}

// VerifyAccount recomputes the family's balance from its transactions. On a
// mismatch the account is frozen and a *LedgerInvariantError returned; the
// balance itself is left untouched for staff to investigate.
func (s *LedgerService) VerifyAccount(ctx context.Context, familyID int64) error {
	var violation *LedgerInvariantError
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		violation, err = s.verify(ctx, s.ledger.WithTx(tx), familyID)
		return err
	})
	if err != nil {
		return err
	}
	if violation != nil {
		return violation
	}
	return nil
}

// VerifyAll checks every account and returns the violations found
func (s *LedgerService) VerifyAll(ctx context.Context) ([]*LedgerInvariantError, error) {
	accounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var violations []*LedgerInvariantError
	for _, account := range accounts {
		err := s.VerifyAccount(ctx, account.FamilyID)
		var violation *LedgerInvariantError
		switch {
		case errors.As(err, &violation):
			violations = append(violations, violation)
		case err != nil:
			return violations, err
		}
	}
	return violations, nil
}

func (s *LedgerService) verify(ctx context.Context, ledger *repository.LedgerRepository, familyID int64) (*LedgerInvariantError, error) {
	account, err := ledger.LockAccount(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}

	txns, err := ledger.GetTransactions(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	expected := models.SumTransactions(txns)
	if expected.Equal(account.Balance) {
		return nil, nil
	}

	if !account.Frozen {
		if err := ledger.SetFrozen(ctx, account.ID, true); err != nil {
			return nil, err
		}
	}
	s.metrics.InvariantViolation()
	slog.Error("ledger invariant violated, account frozen",
		"family_id", familyID,
		"account_id", account.ID,
		"balance", account.Balance.StringFixed(2),
		"expected", expected.StringFixed(2),
	)
	return &LedgerInvariantError{
		AccountID: account.ID,
		FamilyID:  familyID,
		Balance:   account.Balance,
		Expected:  expected,
	}, nil
}

// Reconciled is the staff sign-off on a frozen account: the balance is
// re-projected from the transaction log and the account released.
func (s *LedgerService) Reconciled(ctx context.Context, familyID int64, recordedBy string) (*models.LedgerAccount, error) {
	var account *models.LedgerAccount
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		ledger := s.ledger.WithTx(tx)
		var err error
		account, err = ledger.LockAccount(ctx, familyID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrUnknownFamily
		}

		txns, err := ledger.GetTransactions(ctx, account.ID)
		if err != nil {
			return err
		}
		previous := account.Balance
		account.Balance = models.SumTransactions(txns)
		account.Frozen = false
		if err := ledger.UpdateBalance(ctx, account.ID, account.Balance); err != nil {
			return err
		}
		if err := ledger.SetFrozen(ctx, account.ID, false); err != nil {
			return err
		}

		slog.Warn("ledger account reconciled",
			"family_id", familyID,
			"recorded_by", recordedBy,
			"previous_balance", previous.StringFixed(2),
			"balance", account.Balance.StringFixed(2),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *LedgerService) family(ctx context.Context, familyID int64) (*models.Family, error) {
	family, err := s.families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrUnknownFamily
	}
	return family, nil
}
