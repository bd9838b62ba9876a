package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgy/internal/core"

	"github.com/shopspring/decimal"
)

// ErrEmailTaken is returned when registering with an address that already
// has an account.
var ErrEmailTaken = errors.New("email already registered")

// StoredUser is a user row including the password hash, which never leaves
// the service layer.
type StoredUser struct {
	core.User
	PasswordHash string
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (*core.User, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, current_balance, created_at, updated_at)
		VALUES (?, ?, ?, '0', ?, ?)`,
		name, email, passwordHash, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "email", email)

	return &core.User{
		ID:             id,
		Name:           name,
		Email:          email,
		Initials:       core.Initials(name),
		CurrentBalance: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*StoredUser, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, current_balance, created_at, updated_at
		FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*StoredUser, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, current_balance, created_at, updated_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*StoredUser, error) {
	var u StoredUser
	var balance string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &balance, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.CurrentBalance, err = parseAmount(balance)
	if err != nil {
		return nil, err
	}
	u.Initials = core.Initials(u.Name)
	return &u, nil
}

// adjustUserBalance applies a signed delta to the user's balance inside an
// open transaction.
func adjustUserBalance(ctx context.Context, tx *sql.Tx, userID int64, delta decimal.Decimal) error {
	var balance string
	err := tx.QueryRowContext(ctx, `SELECT current_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read user balance: %w", err)
	}

	current, err := parseAmount(balance)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE users SET current_balance = ?, updated_at = ? WHERE id = ?`,
		current.Add(delta).String(), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update user balance: %w", err)
	}
	return nil
}
