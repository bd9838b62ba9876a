package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgy/internal/core"
)

func (r *SQLiteRepository) CreateRecurringBill(ctx context.Context, userID int64, b *core.RecurringBill) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_bills (user_id, name, amount, due_date, category, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, b.Name, b.Amount.String(), b.DueDate.String(), b.Category, string(b.Status), now, now)
	if err != nil {
		return fmt.Errorf("create recurring bill: %w", err)
	}

	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("recurring bill insert id: %w", err)
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	slog.InfoContext(ctx, "Recurring bill created", "id", b.ID, "user_id", userID, "name", b.Name)
	return nil
}

const billColumns = `id, name, amount, due_date, category, status, created_at, updated_at`

func (r *SQLiteRepository) GetRecurringBill(ctx context.Context, userID, id int64) (*core.RecurringBill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM recurring_bills WHERE id = ? AND user_id = ?`, id, userID)
	return scanBill(row)
}

func (r *SQLiteRepository) ListRecurringBills(ctx context.Context, userID int64) ([]core.RecurringBill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM recurring_bills WHERE user_id = ? ORDER BY due_date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring bills: %w", err)
	}
	defer rows.Close()

	out := []core.RecurringBill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring bills: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateRecurringBill(ctx context.Context, userID int64, b *core.RecurringBill) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_bills SET name = ?, amount = ?, due_date = ?, category = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, b.Amount.String(), b.DueDate.String(), b.Category, string(b.Status), now, b.ID, userID)
	if err != nil {
		return fmt.Errorf("update recurring bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	b.UpdatedAt = now

	slog.InfoContext(ctx, "Recurring bill updated", "id", b.ID, "user_id", userID)
	return nil
}

func (r *SQLiteRepository) DeleteRecurringBill(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_bills WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Recurring bill deleted", "id", id, "user_id", userID)
	return nil
}

func scanBill(row rowScanner) (*core.RecurringBill, error) {
	var b core.RecurringBill
	var amount, due, status string
	err := row.Scan(&b.ID, &b.Name, &amount, &due, &b.Category, &status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan recurring bill: %w", err)
	}

	if b.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if b.DueDate, err = core.ParseDate(due); err != nil {
		return nil, fmt.Errorf("parse stored due date %q: %w", due, err)
	}
	b.Status = core.BillStatus(status)
	return &b, nil
}
