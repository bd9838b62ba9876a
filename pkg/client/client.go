// Package client is the Go SDK for the Budgy REST API: a thin HTTP client,
// a session container handling auth state, and a finance store caching the
// user's collections with server-computed aggregates.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"budgy/internal/core"
	"budgy/internal/services"
)

// Client issues authenticated JSON requests against the API. It applies no
// retries or timeouts of its own; callers own cancellation via the request
// context and the injected http.Client.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{baseURL: baseURL + "/api/v1", httpc: httpc}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// apiError carries the server's error body; one of the two fields is set.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// decodeError builds an error from the server's error or message field,
// falling back to the HTTP status.
func decodeError(resp *http.Response) error {
	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s", apiErr.Message)
		}
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

func (c *Client) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	var resp services.AuthResponse
	err := c.call(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*services.AuthResponse, error) {
	var resp services.AuthResponse
	err := c.call(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type tokenValidation struct {
	Valid bool       `json:"valid"`
	User  *core.User `json:"user"`
}

func (c *Client) ValidateToken(ctx context.Context) (*core.User, bool, error) {
	var resp tokenValidation
	if err := c.call(ctx, http.MethodGet, "/auth/validate-token", nil, &resp); err != nil {
		return nil, false, err
	}
	return resp.User, resp.Valid, nil
}

func (c *Client) GetDashboardStats(ctx context.Context, userID int64) (*core.DashboardStats, error) {
	var stats core.DashboardStats
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d/dashboard/stats", userID), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	var out []core.Transaction
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d/transactions", userID), nil, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, userID int64, t core.Transaction) (*core.Transaction, error) {
	var out core.Transaction
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/users/%d/transactions", userID), t, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, userID int64, t core.Transaction) (*core.Transaction, error) {
	var out core.Transaction
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/users/%d/transactions/%d", userID, t.ID), t, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, userID, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/transactions/%d", userID, id), nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	var out []core.Budget
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d/budgets", userID), nil, &out)
	return out, err
}

func (c *Client) CreateBudget(ctx context.Context, userID int64, b core.Budget) (*core.Budget, error) {
	var out core.Budget
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/users/%d/budgets", userID), b, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBudget(ctx context.Context, userID int64, b core.Budget) (*core.Budget, error) {
	var out core.Budget
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/users/%d/budgets/%d", userID, b.ID), b, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBudget(ctx context.Context, userID, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/budgets/%d", userID, id), nil, nil)
}

func (c *Client) ListSavingPots(ctx context.Context, userID int64) ([]core.SavingPot, error) {
	var out []core.SavingPot
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d/saving-pots", userID), nil, &out)
	return out, err
}

func (c *Client) CreateSavingPot(ctx context.Context, userID int64, p core.SavingPot) (*core.SavingPot, error) {
	var out core.SavingPot
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/users/%d/saving-pots", userID), p, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSavingPot(ctx context.Context, userID int64, p core.SavingPot) (*core.SavingPot, error) {
	var out core.SavingPot
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/users/%d/saving-pots/%d", userID, p.ID), p, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSavingPot(ctx context.Context, userID, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/saving-pots/%d", userID, id), nil, nil)
}

func (c *Client) ListRecurringBills(ctx context.Context, userID int64) ([]core.RecurringBill, error) {
	var out []core.RecurringBill
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/users/%d/recurring-bills", userID), nil, &out)
	return out, err
}

func (c *Client) CreateRecurringBill(ctx context.Context, userID int64, b core.RecurringBill) (*core.RecurringBill, error) {
	var out core.RecurringBill
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/users/%d/recurring-bills", userID), b, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRecurringBill(ctx context.Context, userID int64, b core.RecurringBill) (*core.RecurringBill, error) {
	var out core.RecurringBill
	err := c.call(ctx, http.MethodPut, fmt.Sprintf("/users/%d/recurring-bills/%d", userID, b.ID), b, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRecurringBill(ctx context.Context, userID, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/recurring-bills/%d", userID, id), nil, nil)
}
