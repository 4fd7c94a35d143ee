package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"summerfest/internal/database"
	"summerfest/internal/models"
)

const transactionColumns = `id, account_id, amount, transaction_type, payment_method,
	description, external_ref, recorded_by, created_at`

// LedgerRepository stores ledger accounts and their append-only transactions
type LedgerRepository struct {
	db database.DBTX
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db database.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *LedgerRepository) WithTx(tx database.DBTX) *LedgerRepository {
	return &LedgerRepository{db: tx}
}

// GetAccountByFamily retrieves a family's account
func (r *LedgerRepository) GetAccountByFamily(ctx context.Context, familyID int64) (*models.LedgerAccount, error) {
	return r.getAccount(ctx, familyID, "")
}

// LockAccount retrieves a family's account, locking the row for the rest of
// the enclosing transaction so concurrent writers apply balances in turn.
func (r *LedgerRepository) LockAccount(ctx context.Context, familyID int64) (*models.LedgerAccount, error) {
	return r.getAccount(ctx, familyID, r.db.GetDialect().RowLockClause())
}

func (r *LedgerRepository) getAccount(ctx context.Context, familyID int64, lockClause string) (*models.LedgerAccount, error) {
	query := "SELECT id, family_id, balance, frozen, created_at, updated_at FROM ledger_accounts WHERE family_id = ?" + lockClause
	account := &models.LedgerAccount{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&account.ID,
		&account.FamilyID,
		&account.Balance,
		&account.Frozen,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger account: %w", err)
	}

	return account, nil
}

// GetOrCreateAccount returns the family's account, opening one at zero if
// none exists. A concurrent opener skips the conflicting insert and reads the
// winner's row, leaving the enclosing transaction usable.
func (r *LedgerRepository) GetOrCreateAccount(ctx context.Context, familyID int64) (*models.LedgerAccount, error) {
	account, err := r.GetAccountByFamily(ctx, familyID)
	if err != nil || account != nil {
		return account, err
	}

	now := time.Now().UTC()
	query := r.db.GetDialect().InsertIgnoreQuery(
		"INSERT INTO ledger_accounts (family_id, balance, frozen, created_at, updated_at) VALUES (?, ?, ?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, familyID, money(decimal.Zero), false, now, now); err != nil {
		return nil, fmt.Errorf("failed to create ledger account: %w", err)
	}

	account, err = r.GetAccountByFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("failed to create ledger account for family %d", familyID)
	}
	return account, nil
}

// ListAccounts retrieves every ledger account
func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]models.LedgerAccount, error) {
	query := "SELECT id, family_id, balance, frozen, created_at, updated_at FROM ledger_accounts ORDER BY family_id ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.LedgerAccount
	for rows.Next() {
		var a models.LedgerAccount
		if err := rows.Scan(&a.ID, &a.FamilyID, &a.Balance, &a.Frozen, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger account: %w", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// UpdateBalance stores the account's new projected balance
func (r *LedgerRepository) UpdateBalance(ctx context.Context, accountID int64, balance decimal.Decimal) error {
	query := "UPDATE ledger_accounts SET balance = ?, updated_at = ? WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, money(balance), time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// SetFrozen freezes or releases an account
func (r *LedgerRepository) SetFrozen(ctx context.Context, accountID int64, frozen bool) error {
	query := "UPDATE ledger_accounts SET frozen = ?, updated_at = ? WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, frozen, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update account state: %w", err)
	}
	return nil
}

// InsertTransaction appends an entry and fills in its ID and timestamp.
// A reused external reference fails with database.ErrUniqueViolation.
func (r *LedgerRepository) InsertTransaction(ctx context.Context, txn *models.LedgerTransaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO ledger_transactions (account_id, amount, transaction_type, payment_method,
			description, external_ref, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		txn.AccountID,
		money(txn.Amount),
		string(txn.Type),
		string(txn.Method),
		txn.Description,
		txn.ExternalRef,
		txn.RecordedBy,
		txn.CreatedAt,
	)
	if err != nil {
		return insertError("ledger transaction", err)
	}

	txn.ID = id
	return nil
}

// GetTransactionByExternalRef finds the entry recorded for a gateway reference
func (r *LedgerRepository) GetTransactionByExternalRef(ctx context.Context, ref string) (*models.LedgerTransaction, error) {
	query := "SELECT " + transactionColumns + " FROM ledger_transactions WHERE external_ref = ?"
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger transaction: %w", err)
	}
	return txn, nil
}

// GetTransactions retrieves an account's entries in the order they were recorded
func (r *LedgerRepository) GetTransactions(ctx context.Context, accountID int64) ([]models.LedgerTransaction, error) {
	query := "SELECT " + transactionColumns + " FROM ledger_transactions WHERE account_id = ? ORDER BY id ASC"
	return r.queryTransactions(ctx, query, accountID)
}

// GetTransactionsBetween retrieves every entry created in [from, to)
func (r *LedgerRepository) GetTransactionsBetween(ctx context.Context, from, to time.Time) ([]models.LedgerTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE created_at >= ? AND created_at < ?
		ORDER BY id ASC
	`
	return r.queryTransactions(ctx, query, from.UTC(), to.UTC())
}

func (r *LedgerRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]models.LedgerTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.LedgerTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		txns = append(txns, *txn)
	}

	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*models.LedgerTransaction, error) {
	var (
		txn         models.LedgerTransaction
		txnType     string
		method      string
		externalRef sql.NullString
	)
	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.Amount,
		&txnType,
		&method,
		&txn.Description,
		&externalRef,
		&txn.RecordedBy,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = models.TransactionType(txnType)
	txn.Method = models.PaymentMethod(method)
	if externalRef.Valid {
		ref := externalRef.String
		txn.ExternalRef = &ref
	}
	return &txn, nil
}
