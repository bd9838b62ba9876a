package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgy/internal/core"

	"github.com/shopspring/decimal"
)

// CreateTransaction inserts a transaction and applies its effects to the
// user balance and any linked budget or saving pot in one database
// transaction. The amount must already be normalized. On success the ID and
// timestamps are filled in.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID int64, t *core.Transaction) error {
	now := time.Now().UTC()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (user_id, name, amount, category, type, transaction_date,
				budget_id, saving_pot_id, icon, color, sync_status, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', 1, ?, ?)`,
			userID, t.Name, t.Amount.String(), t.Category, string(t.Type), t.TransactionDate.String(),
			t.BudgetID, t.SavingPotID, t.Icon, t.Color, now, now)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		t.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("transaction insert id: %w", err)
		}

		return applyEffects(ctx, tx, userID, t, false)
	})
	if err != nil {
		return err
	}

	t.CreatedAt = now
	t.UpdatedAt = now

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"user_id", userID,
		"type", t.Type,
		"amount", t.Amount.String())
	return nil
}

// UpdateTransaction replaces a transaction's fields, reverting the old row's
// effects and applying the new ones atomically. The version is bumped and the
// row queued for re-sync; the new version is returned.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID int64, t *core.Transaction) (int64, error) {
	now := time.Now().UTC()
	var version int64

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getTransactionTx(ctx, tx, userID, t.ID)
		if err != nil {
			return err
		}
		// The caller's struct comes from a request body; carry the row's
		// real creation time through so responses do not echo a zero time.
		t.CreatedAt = old.CreatedAt

		if err := applyEffects(ctx, tx, userID, old, true); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE transactions
			SET name = ?, amount = ?, category = ?, type = ?, transaction_date = ?,
				budget_id = ?, saving_pot_id = ?, icon = ?, color = ?,
				sync_status = 'pending', version = version + 1, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			t.Name, t.Amount.String(), t.Category, string(t.Type), t.TransactionDate.String(),
			t.BudgetID, t.SavingPotID, t.Icon, t.Color, now, t.ID, userID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT version FROM transactions WHERE id = ?`, t.ID).Scan(&version); err != nil {
			return fmt.Errorf("read transaction version: %w", err)
		}

		return applyEffects(ctx, tx, userID, t, false)
	})
	if err != nil {
		return 0, err
	}

	t.UpdatedAt = now

	slog.InfoContext(ctx, "Transaction updated", "id", t.ID, "user_id", userID, "version", version)
	return version, nil
}

// DeleteTransaction removes a transaction and reverts its effects. The
// deleted row is returned so callers can announce the deletion downstream.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	var deleted *core.Transaction

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getTransactionTx(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if err := applyEffects(ctx, tx, userID, old, true); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}

		deleted = old
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return deleted, nil
}

// applyEffects adjusts the user balance and any linked budget or pot for a
// transaction. With revert set, the adjustments are negated, undoing a
// previously applied row.
func applyEffects(ctx context.Context, tx *sql.Tx, userID int64, t *core.Transaction, revert bool) error {
	sign := decimal.NewFromInt(1)
	countDelta := 1
	if revert {
		sign = sign.Neg()
		countDelta = -1
	}

	if err := adjustUserBalance(ctx, tx, userID, t.Type.BalanceDelta(t.Amount).Mul(sign)); err != nil {
		return err
	}

	if t.BudgetID != nil {
		if err := adjustBudget(ctx, tx, userID, *t.BudgetID, t.Amount.Abs().Mul(sign), countDelta); err != nil {
			return err
		}
	}

	if t.SavingPotID != nil {
		if err := adjustPot(ctx, tx, userID, *t.SavingPotID, t.Type.PotDelta(t.Amount).Mul(sign), countDelta); err != nil {
			return err
		}
	}

	return nil
}

const transactionColumns = `id, name, amount, category, type, transaction_date,
	budget_id, saving_pot_id, icon, color, created_at, updated_at`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id int64) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ?
		ORDER BY transaction_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByType(ctx context.Context, userID int64, t core.TransactionType) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND type = ?
		ORDER BY transaction_date DESC, id DESC`, userID, string(t))
	if err != nil {
		return nil, fmt.Errorf("list transactions by type: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactionsInRange returns transactions with a date in [from, to],
// both inclusive.
func (r *SQLiteRepository) ListTransactionsInRange(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND transaction_date >= ? AND transaction_date <= ?
		ORDER BY transaction_date DESC, id DESC`, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func getTransactionTx(ctx context.Context, tx *sql.Tx, userID, id int64) (*core.Transaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return scanTransaction(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var t core.Transaction
	var amount, txType, date string
	err := row.Scan(&t.ID, &t.Name, &amount, &t.Category, &txType, &date,
		&t.BudgetID, &t.SavingPotID, &t.Icon, &t.Color, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if t.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	t.Type = core.TransactionType(txType)
	if t.TransactionDate, err = core.ParseDate(date); err != nil {
		return nil, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// PendingSyncTransaction is the minimal row data queued for ledger export.
type PendingSyncTransaction struct {
	ID        int64
	UserID    int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns rows waiting for export, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	return r.querySyncRows(ctx, `
		SELECT id, user_id, version, created_at FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY created_at ASC
		LIMIT ?`, limit)
}

// GetUnsyncedTransactions returns both pending rows and rows stranded in the
// error state, so recovery passes can retry exports that failed earlier.
func (r *SQLiteRepository) GetUnsyncedTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	return r.querySyncRows(ctx, `
		SELECT id, user_id, version, created_at FROM transactions
		WHERE sync_status IN ('pending', 'error')
		ORDER BY created_at ASC
		LIMIT ?`, limit)
}

func (r *SQLiteRepository) querySyncRows(ctx context.Context, query string, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.UserID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync transactions: %w", err)
	}
	return out, nil
}

// GetTransactionForSync loads a transaction by ID alone; the worker has no
// acting user.
func (r *SQLiteRepository) GetTransactionForSync(ctx context.Context, id int64) (*core.Transaction, int64, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`, user_id FROM transactions WHERE id = ?`, id)

	var t core.Transaction
	var amount, txType, date string
	var userID int64
	err := row.Scan(&t.ID, &t.Name, &amount, &t.Category, &txType, &date,
		&t.BudgetID, &t.SavingPotID, &t.Icon, &t.Color, &t.CreatedAt, &t.UpdatedAt, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("scan transaction for sync: %w", err)
	}

	if t.Amount, err = parseAmount(amount); err != nil {
		return nil, 0, err
	}
	t.Type = core.TransactionType(txType)
	if t.TransactionDate, err = core.ParseDate(date); err != nil {
		return nil, 0, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	return &t, userID, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = 'synced', synced_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}
