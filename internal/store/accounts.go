package store

import (
	"database/sql"
	"time"

	"github.com/cesargomez89/fetchpay/internal/domain"
)

// EnsureAccount creates the account at the starting balance if it does not
// exist. Repeated calls are no-ops.
func (db *DB) EnsureAccount(id string, startingBalance int64) error {
	query := `INSERT OR IGNORE INTO accounts (id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)`
	now := time.Now()
	_, err := db.Exec(query, id, startingBalance, now, now)
	return err
}

func (db *DB) GetAccount(id string) (*domain.Account, error) {
	query := `SELECT id, balance, created_at, updated_at FROM accounts WHERE id = ?`

	account := &domain.Account{}
	err := db.Get(account, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreditAccount adds amount to the account balance, creating a missing
// account at startingBalance + amount. The upsert is a single atomic
// statement so concurrent credits never lose updates.
func (db *DB) CreditAccount(id string, amount, startingBalance int64) error {
	query := `INSERT INTO accounts (id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?, updated_at = ?`
	now := time.Now()
	_, err := db.Exec(query, id, startingBalance+amount, now, now, amount, now)
	return err
}

// DebitAccount subtracts cost from the balance only when the balance covers
// it. The conditional UPDATE is the atomic read-modify-write; the returned
// bool reports whether the debit happened.
func (db *DB) DebitAccount(id string, cost int64) (bool, error) {
	query := `UPDATE accounts SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ?`
	res, err := db.Exec(query, cost, time.Now(), id, cost)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
