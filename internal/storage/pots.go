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

func (r *SQLiteRepository) CreateSavingPot(ctx context.Context, userID int64, p *core.SavingPot) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO saving_pots (user_id, name, saved, goal, transaction_count, icon, color, created_at, updated_at)
		VALUES (?, ?, '0', ?, 0, ?, ?, ?, ?)`,
		userID, p.Name, p.Goal.String(), p.Icon, p.Color, now, now)
	if err != nil {
		return fmt.Errorf("create saving pot: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("saving pot insert id: %w", err)
	}
	p.Saved = decimal.Zero
	p.TransactionCount = 0
	p.CreatedAt = now
	p.UpdatedAt = now

	slog.InfoContext(ctx, "Saving pot created", "id", p.ID, "user_id", userID, "name", p.Name)
	return nil
}

const potColumns = `id, name, saved, goal, transaction_count, icon, color, created_at, updated_at`

func (r *SQLiteRepository) GetSavingPot(ctx context.Context, userID, id int64) (*core.SavingPot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+potColumns+` FROM saving_pots WHERE id = ? AND user_id = ?`, id, userID)
	return scanPot(row)
}

func (r *SQLiteRepository) ListSavingPots(ctx context.Context, userID int64) ([]core.SavingPot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+potColumns+` FROM saving_pots WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saving pots: %w", err)
	}
	defer rows.Close()

	out := []core.SavingPot{}
	for rows.Next() {
		p, err := scanPot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saving pots: %w", err)
	}
	return out, nil
}

// UpdateSavingPot changes the name, goal, icon and color. Saved and the
// transaction count are maintained by transaction mutations only.
func (r *SQLiteRepository) UpdateSavingPot(ctx context.Context, userID int64, p *core.SavingPot) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE saving_pots SET name = ?, goal = ?, icon = ?, color = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		p.Name, p.Goal.String(), p.Icon, p.Color, now, p.ID, userID)
	if err != nil {
		return fmt.Errorf("update saving pot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now

	slog.InfoContext(ctx, "Saving pot updated", "id", p.ID, "user_id", userID)
	return nil
}

// DeleteSavingPot removes a pot. Linked transactions survive with their
// pot reference cleared.
func (r *SQLiteRepository) DeleteSavingPot(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saving_pots WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete saving pot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Saving pot deleted", "id", id, "user_id", userID)
	return nil
}

func scanPot(row rowScanner) (*core.SavingPot, error) {
	var p core.SavingPot
	var saved, goal string
	err := row.Scan(&p.ID, &p.Name, &saved, &goal, &p.TransactionCount, &p.Icon, &p.Color, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan saving pot: %w", err)
	}

	if p.Saved, err = parseAmount(saved); err != nil {
		return nil, err
	}
	if p.Goal, err = parseAmount(goal); err != nil {
		return nil, err
	}
	return &p, nil
}

// adjustPot applies a saved delta and count delta inside an open
// transaction.
func adjustPot(ctx context.Context, tx *sql.Tx, userID, potID int64, savedDelta decimal.Decimal, countDelta int) error {
	var saved string
	err := tx.QueryRowContext(ctx,
		`SELECT saved FROM saving_pots WHERE id = ? AND user_id = ?`, potID, userID).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("saving pot %d: %w", potID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read pot saved: %w", err)
	}

	current, err := parseAmount(saved)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE saving_pots SET saved = ?, transaction_count = transaction_count + ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		current.Add(savedDelta).String(), countDelta, time.Now().UTC(), potID, userID)
	if err != nil {
		return fmt.Errorf("update pot saved: %w", err)
	}
	return nil
}
