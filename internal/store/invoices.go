package store

import (
	"database/sql"
	"time"

	"github.com/cesargomez89/fetchpay/internal/domain"
)

func (db *DB) CreateInvoice(inv *domain.Invoice) error {
	query := `INSERT INTO invoices (id, account_id, provider, external_id, pay_url, status, credits, created_at, updated_at)
		VALUES (:id, :account_id, :provider, :external_id, :pay_url, :status, :credits, :created_at, :updated_at)`

	_, err := db.NamedExec(query, inv)
	return err
}

func (db *DB) GetInvoice(id string) (*domain.Invoice, error) {
	query := `SELECT id, account_id, provider, external_id, pay_url, status, credits, created_at, updated_at
		FROM invoices WHERE id = ?`

	inv := &domain.Invoice{}
	err := db.Get(inv, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CreditInvoice flips a pending invoice to credited and applies the balance
// change in one transaction. The conditional UPDATE makes crediting
// idempotent (only the first caller gets true), and the shared transaction
// guarantees an invoice is never consumed without the balance moving.
func (db *DB) CreditInvoice(invoiceID, accountID string, amount, startingBalance int64) (bool, error) {
	tx, err := db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.InvoiceStatusCredited, now, invoiceID, domain.InvoiceStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.Exec(`INSERT INTO accounts (id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?, updated_at = ?`,
		accountID, startingBalance+amount, now, now, amount, now)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}
