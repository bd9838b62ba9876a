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

func (r *SQLiteRepository) CreateBudget(ctx context.Context, userID int64, b *core.Budget) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, spent, limit_amount, transaction_count, color, created_at, updated_at)
		VALUES (?, ?, '0', ?, 0, ?, ?, ?)`,
		userID, b.Category, b.LimitAmount.String(), b.Color, now, now)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}

	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("budget insert id: %w", err)
	}
	b.Spent = decimal.Zero
	b.TransactionCount = 0
	b.CreatedAt = now
	b.UpdatedAt = now

	slog.InfoContext(ctx, "Budget created", "id", b.ID, "user_id", userID, "category", b.Category)
	return nil
}

const budgetColumns = `id, category, spent, limit_amount, transaction_count, color, created_at, updated_at`

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id int64) (*core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	return scanBudget(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// UpdateBudget changes the category, limit and color. Spent and the
// transaction count are maintained by transaction mutations only.
func (r *SQLiteRepository) UpdateBudget(ctx context.Context, userID int64, b *core.Budget) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET category = ?, limit_amount = ?, color = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Category, b.LimitAmount.String(), b.Color, now, b.ID, userID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	b.UpdatedAt = now

	slog.InfoContext(ctx, "Budget updated", "id", b.ID, "user_id", userID)
	return nil
}

// DeleteBudget removes a budget. Linked transactions survive with their
// budget reference cleared.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Budget deleted", "id", id, "user_id", userID)
	return nil
}

func scanBudget(row rowScanner) (*core.Budget, error) {
	var b core.Budget
	var spent, limit string
	err := row.Scan(&b.ID, &b.Category, &spent, &limit, &b.TransactionCount, &b.Color, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan budget: %w", err)
	}

	if b.Spent, err = parseAmount(spent); err != nil {
		return nil, err
	}
	if b.LimitAmount, err = parseAmount(limit); err != nil {
		return nil, err
	}
	return &b, nil
}

// adjustBudget applies a spent delta and count delta inside an open
// transaction. Missing rows fail the enclosing transaction.
func adjustBudget(ctx context.Context, tx *sql.Tx, userID, budgetID int64, spentDelta decimal.Decimal, countDelta int) error {
	var spent string
	err := tx.QueryRowContext(ctx,
		`SELECT spent FROM budgets WHERE id = ? AND user_id = ?`, budgetID, userID).Scan(&spent)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("budget %d: %w", budgetID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read budget spent: %w", err)
	}

	current, err := parseAmount(spent)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE budgets SET spent = ?, transaction_count = transaction_count + ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		current.Add(spentDelta).String(), countDelta, time.Now().UTC(), budgetID, userID)
	if err != nil {
		return fmt.Errorf("update budget spent: %w", err)
	}
	return nil
}
