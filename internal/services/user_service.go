package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budgy/internal/auth"
	"budgy/internal/core"
	"budgy/internal/storage"
)

// ErrInvalidCredentials covers both unknown accounts and wrong passwords so
// login failures are indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthResponse is what a successful login or registration returns.
type AuthResponse struct {
	Token  string `json:"token"`
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// UserService handles registration, login and token validation.
type UserService struct {
	storage *storage.SQLiteRepository
	tokens  *auth.TokenManager
}

func NewUserService(storage *storage.SQLiteRepository, tokens *auth.TokenManager) *UserService {
	return &UserService{storage: storage, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	u := core.User{Name: name, Email: email}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.CreateUser(ctx, name, email, hash)
	if err != nil {
		return nil, err
	}

	return s.issueToken(ctx, user.ID, user.Name, user.Email)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.storage.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		slog.WarnContext(ctx, "Login failed", "email", email)
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, user.ID, user.Name, user.Email)
}

// ValidateToken parses a token and returns the user it belongs to.
func (s *UserService) ValidateToken(ctx context.Context, token string) (*core.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("look up token user: %w", err)
	}
	return &user.User, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*core.User, error) {
	user, err := s.storage.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &user.User, nil
}

func (s *UserService) issueToken(ctx context.Context, userID int64, name, email string) (*AuthResponse, error) {
	token, err := s.tokens.Generate(userID, email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	slog.InfoContext(ctx, "Token issued", "user_id", userID)

	return &AuthResponse{
		Token:  token,
		Type:   "Bearer",
		UserID: userID,
		Name:   name,
		Email:  email,
	}, nil
}
