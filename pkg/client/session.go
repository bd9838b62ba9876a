package client

import (
	"context"
	"log/slog"
	"sync"

	"budgy/internal/core"
)

// SessionState tracks where the session is in its auth lifecycle.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateValidating
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateValidating:
		return "validating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Result reports the outcome of a login or register attempt. Failures are
// values, not Go errors, so callers can render Err directly.
type Result struct {
	Success bool
	Err     string
}

// Session is the auth state container: it owns the token, the current user
// and the persisted copy of the token.
type Session struct {
	api   *Client
	store TokenStore

	mu    sync.RWMutex
	state SessionState
	user  *core.User
}

func NewSession(api *Client, store TokenStore) *Session {
	return &Session{api: api, store: store, state: StateAnonymous}
}

// Start restores a persisted token, validating it against the server. An
// expired or rejected token downgrades silently to unauthenticated.
func (s *Session) Start(ctx context.Context) {
	token, err := s.store.Load()
	if err != nil {
		slog.Warn("Failed to load stored token", "error", err)
	}
	if token == "" {
		s.setState(StateUnauthenticated, nil)
		return
	}

	s.setState(StateValidating, nil)
	s.api.SetToken(token)

	user, valid, err := s.api.ValidateToken(ctx)
	if err != nil || !valid {
		if err != nil {
			slog.Warn("Token validation failed", "error", err)
		}
		s.api.SetToken("")
		if clearErr := s.store.Clear(); clearErr != nil {
			slog.Warn("Failed to clear stale token", "error", clearErr)
		}
		s.setState(StateUnauthenticated, nil)
		return
	}

	s.setState(StateAuthenticated, user)
}

func (s *Session) Login(ctx context.Context, email, password string) Result {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return Result{Err: err.Error()}
	}
	return s.establish(resp.Token, &core.User{ID: resp.UserID, Name: resp.Name, Email: resp.Email})
}

func (s *Session) Register(ctx context.Context, name, email, password string) Result {
	resp, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return Result{Err: err.Error()}
	}
	return s.establish(resp.Token, &core.User{ID: resp.UserID, Name: resp.Name, Email: resp.Email})
}

func (s *Session) establish(token string, user *core.User) Result {
	s.api.SetToken(token)
	if err := s.store.Save(token); err != nil {
		// The session still works for this process; only persistence failed.
		slog.Warn("Failed to persist token", "error", err)
	}
	s.setState(StateAuthenticated, user)
	return Result{Success: true}
}

// Logout clears the token synchronously, in memory and on disk.
func (s *Session) Logout() {
	s.api.SetToken("")
	if err := s.store.Clear(); err != nil {
		slog.Warn("Failed to clear token", "error", err)
	}
	s.setState(StateUnauthenticated, nil)
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// User returns the authenticated user, or nil.
func (s *Session) User() *core.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setState(state SessionState, user *core.User) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.mu.Unlock()
}
