// Package ledger owns per-account credit balances with atomic debit and
// credit semantics.
package ledger

import (
	"fmt"

	"github.com/cesargomez89/fetchpay/internal/domain"
	"github.com/cesargomez89/fetchpay/internal/logger"
	"github.com/cesargomez89/fetchpay/internal/store"
)

type Ledger struct {
	db              *store.DB
	log             *logger.Logger
	startingBalance int64
}

func New(db *store.DB, startingBalance int64, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Default()
	}
	return &Ledger{
		db:              db,
		log:             log.WithComponent("ledger"),
		startingBalance: startingBalance,
	}
}

// GetOrCreate returns the account balance, creating the account at the
// configured starting balance on first access.
func (l *Ledger) GetOrCreate(accountID string) (int64, error) {
	if err := l.db.EnsureAccount(accountID, l.startingBalance); err != nil {
		return 0, fmt.Errorf("%w: ensure account %s: %v", domain.ErrStorage, accountID, err)
	}

	acct, err := l.db.GetAccount(accountID)
	if err != nil {
		return 0, fmt.Errorf("%w: get account %s: %v", domain.ErrStorage, accountID, err)
	}
	if acct == nil {
		return 0, fmt.Errorf("%w: account %s missing after create", domain.ErrStorage, accountID)
	}
	return acct.Balance, nil
}

// Credit adds amount (> 0) to the account, creating a missing account at
// starting balance plus the amount.
func (l *Ledger) Credit(accountID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	if err := l.db.CreditAccount(accountID, amount, l.startingBalance); err != nil {
		return fmt.Errorf("%w: credit account %s: %v", domain.ErrStorage, accountID, err)
	}

	l.log.Info("Account credited", "account_id", accountID, "amount", amount)
	return nil
}

// CreditInvoice consumes a pending invoice and applies its credit in one
// transaction, so a paid invoice can never end up credited without the
// balance moving. Returns false when the invoice was already consumed.
func (l *Ledger) CreditInvoice(invoiceID, accountID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("invoice credit must be positive, got %d", amount)
	}

	credited, err := l.db.CreditInvoice(invoiceID, accountID, amount, l.startingBalance)
	if err != nil {
		return false, fmt.Errorf("%w: credit invoice %s: %v", domain.ErrStorage, invoiceID, err)
	}
	if credited {
		l.log.Info("Invoice credited", "invoice_id", invoiceID, "account_id", accountID, "amount", amount)
	}
	return credited, nil
}

// Debit atomically subtracts cost when the balance covers it and reports
// whether the debit happened. A storage fault is a conservative failure:
// the spend is denied rather than risking an inconsistent balance.
func (l *Ledger) Debit(accountID string, cost int64) (bool, error) {
	if cost < 0 {
		return false, fmt.Errorf("debit cost cannot be negative, got %d", cost)
	}
	if cost == 0 {
		// Free item; make sure the account exists but touch nothing.
		if _, err := l.GetOrCreate(accountID); err != nil {
			return false, err
		}
		return true, nil
	}

	ok, err := l.db.DebitAccount(accountID, cost)
	if err != nil {
		return false, fmt.Errorf("%w: debit account %s: %v", domain.ErrStorage, accountID, err)
	}
	if ok {
		l.log.Info("Account debited", "account_id", accountID, "cost", cost)
	}
	return ok, nil
}
