package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgy/internal/auth"
	"budgy/internal/core"
	"budgy/internal/services"
	"budgy/internal/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewTokenManager(testSecret, time.Hour)
	users := services.NewUserService(repo, tokens)
	transactions := services.NewTransactionService(repo, nil)
	dashboard := services.NewDashboardService(repo)

	srv := NewServer("0", users, transactions, dashboard, repo)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func registerUser(t *testing.T, ts *httptest.Server) *services.AuthResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]string{
		"name":     "Jane Doe",
		"email":    "jane@example.com",
		"password": "supersecret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	auth := decodeBody[services.AuthResponse](t, resp)
	return &auth
}

func TestRegisterAndLogin(t *testing.T) {
	_, ts := newTestServer(t)

	created := registerUser(t, ts)
	if created.Token == "" || created.Type != "Bearer" {
		t.Fatalf("unexpected auth response: %+v", created)
	}

	// Duplicate email is rejected.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "", map[string]string{
		"name": "Other", "email": "jane@example.com", "password": "supersecret",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "JANE@example.com", "password": "supersecret",
	})
	logged := decodeBody[services.AuthResponse](t, resp)
	if resp.StatusCode != http.StatusOK || logged.UserID != created.UserID {
		t.Fatalf("login status = %d, userId = %d", resp.StatusCode, logged.UserID)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong-password",
	})
	body := decodeBody[map[string]string](t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d, want 401", resp.StatusCode)
	}
	if body["error"] != "Invalid email or password" {
		t.Fatalf("bad login error = %q", body["error"])
	}
}

func TestValidateToken(t *testing.T) {
	_, ts := newTestServer(t)
	created := registerUser(t, ts)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/validate-token", created.Token, nil)
	valid := decodeBody[validateTokenResponse](t, resp)
	if !valid.Valid || valid.User == nil || valid.User.ID != created.UserID {
		t.Fatalf("expected valid token response, got %+v", valid)
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/validate-token", "not-a-token", nil)
	invalid := decodeBody[validateTokenResponse](t, resp)
	if resp.StatusCode != http.StatusOK || invalid.Valid {
		t.Fatalf("expected valid=false with 200, got status %d, %+v", resp.StatusCode, invalid)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, ts := newTestServer(t)
	created := registerUser(t, ts)

	url := fmt.Sprintf("%s/api/v1/users/%d/transactions", ts.URL, created.UserID)

	resp := doJSON(t, http.MethodGet, url, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", resp.StatusCode)
	}

	// A valid token scoped to another user's path is refused.
	otherURL := fmt.Sprintf("%s/api/v1/users/%d/transactions", ts.URL, created.UserID+1)
	resp = doJSON(t, http.MethodGet, otherURL, created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("mismatched user status = %d, want 403", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, url, created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authorized list status = %d, want 200", resp.StatusCode)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	created := registerUser(t, ts)
	base := fmt.Sprintf("%s/api/v1/users/%d", ts.URL, created.UserID)

	resp := doJSON(t, http.MethodPost, base+"/transactions", created.Token, map[string]any{
		"name":            "Groceries",
		"amount":          "25.50",
		"category":        "Food",
		"type":            "expense",
		"transactionDate": "2025-06-10",
	})
	tx := decodeBody[core.Transaction](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("-25.5")) {
		t.Fatalf("expense not stored negative: %s", tx.Amount)
	}

	resp = doJSON(t, http.MethodPost, base+"/transactions", created.Token, map[string]any{
		"name":            "Salary",
		"amount":          "1000",
		"category":        "Work",
		"type":            "income",
		"transactionDate": "2025-06-01",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("income create status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"/transactions/type/expense", created.Token, nil)
	expenses := decodeBody[[]core.Transaction](t, resp)
	if len(expenses) != 1 || expenses[0].Name != "Groceries" {
		t.Fatalf("type filter returned %+v", expenses)
	}

	resp = doJSON(t, http.MethodGet, base+"/transactions/date-range?startDate=2025-06-01&endDate=2025-06-05", created.Token, nil)
	ranged := decodeBody[[]core.Transaction](t, resp)
	if len(ranged) != 1 || ranged[0].Name != "Salary" {
		t.Fatalf("date range returned %+v", ranged)
	}

	resp = doJSON(t, http.MethodPut, fmt.Sprintf("%s/transactions/%d", base, tx.ID), created.Token, map[string]any{
		"name":            "Groceries",
		"amount":          "30",
		"category":        "Food",
		"type":            "expense",
		"transactionDate": "2025-06-10",
	})
	updated := decodeBody[core.Transaction](t, resp)
	if resp.StatusCode != http.StatusOK || !updated.Amount.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("update status = %d, amount = %s", resp.StatusCode, updated.Amount)
	}
	if !updated.CreatedAt.Equal(tx.CreatedAt) || updated.CreatedAt.IsZero() {
		t.Fatalf("update CreatedAt = %v, want %v", updated.CreatedAt, tx.CreatedAt)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/transactions/%d", base, tx.ID), created.Token, nil)
	deleted := decodeBody[map[string]string](t, resp)
	if resp.StatusCode != http.StatusOK || deleted["message"] == "" {
		t.Fatalf("delete status = %d, body = %+v", resp.StatusCode, deleted)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/transactions/%d", base, tx.ID), created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", resp.StatusCode)
	}
}

func TestTransactionValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)
	created := registerUser(t, ts)
	base := fmt.Sprintf("%s/api/v1/users/%d", ts.URL, created.UserID)

	// Income cannot carry a budget link.
	resp := doJSON(t, http.MethodPost, base+"/transactions", created.Token, map[string]any{
		"name":            "Salary",
		"amount":          "1000",
		"category":        "Work",
		"type":            "income",
		"transactionDate": "2025-06-01",
		"budgetId":        1,
	})
	body := decodeBody[map[string]string](t, resp)
	if resp.StatusCode != http.StatusBadRequest || body["error"] == "" {
		t.Fatalf("status = %d, body = %+v", resp.StatusCode, body)
	}

	resp = doJSON(t, http.MethodGet, base+"/transactions/type/transfer", created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown type status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"/transactions/date-range?startDate=junk&endDate=2025-06-05", created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", resp.StatusCode)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	created := registerUser(t, ts)
	base := fmt.Sprintf("%s/api/v1/users/%d", ts.URL, created.UserID)

	resp := doJSON(t, http.MethodPost, base+"/budgets", created.Token, map[string]any{
		"category":    "Food",
		"limitAmount": "300",
	})
	budget := decodeBody[core.Budget](t, resp)
	if resp.StatusCode != http.StatusCreated || budget.ID == 0 {
		t.Fatalf("create status = %d, budget = %+v", resp.StatusCode, budget)
	}

	resp = doJSON(t, http.MethodPut, fmt.Sprintf("%s/budgets/%d", base, budget.ID), created.Token, map[string]any{
		"category":    "Dining",
		"limitAmount": "400",
	})
	updated := decodeBody[core.Budget](t, resp)
	if updated.Category != "Dining" || !updated.LimitAmount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("update returned %+v", updated)
	}

	resp = doJSON(t, http.MethodGet, base+"/budgets", created.Token, nil)
	budgets := decodeBody[[]core.Budget](t, resp)
	if len(budgets) != 1 {
		t.Fatalf("list returned %d budgets", len(budgets))
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/budgets/%d", base, budget.ID), created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/budgets/%d", base, budget.ID), created.Token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing delete status = %d, want 404", resp.StatusCode)
	}
}

func TestRecurringBillDefaults(t *testing.T) {
	_, ts := newTestServer(t)
	created := registerUser(t, ts)
	base := fmt.Sprintf("%s/api/v1/users/%d", ts.URL, created.UserID)

	resp := doJSON(t, http.MethodPost, base+"/recurring-bills", created.Token, map[string]any{
		"name":     "Rent",
		"amount":   "850",
		"dueDate":  "2025-07-01",
		"category": "Housing",
	})
	bill := decodeBody[core.RecurringBill](t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if bill.Status != core.BillPending {
		t.Fatalf("status defaulted to %q, want pending", bill.Status)
	}
}

func TestDashboardStatsCaching(t *testing.T) {
	srv, ts := newTestServer(t)
	created := registerUser(t, ts)
	base := fmt.Sprintf("%s/api/v1/users/%d", ts.URL, created.UserID)

	resp := doJSON(t, http.MethodGet, base+"/dashboard/stats", created.Token, nil)
	stats := decodeBody[core.DashboardStats](t, resp)
	if resp.StatusCode != http.StatusOK || stats.TransactionCount != 0 {
		t.Fatalf("initial stats: status %d, %+v", resp.StatusCode, stats)
	}
	if srv.statsCache.Size() != 1 {
		t.Fatalf("stats not cached, size = %d", srv.statsCache.Size())
	}

	// A mutation invalidates the cached entry so the next read is fresh.
	today := time.Now().UTC().Format("2006-01-02")
	resp = doJSON(t, http.MethodPost, base+"/transactions", created.Token, map[string]any{
		"name":            "Salary",
		"amount":          "1000",
		"category":        "Work",
		"type":            "income",
		"transactionDate": today,
	})
	resp.Body.Close()
	if srv.statsCache.Size() != 0 {
		t.Fatalf("cache not invalidated, size = %d", srv.statsCache.Size())
	}

	resp = doJSON(t, http.MethodGet, base+"/dashboard/stats", created.Token, nil)
	stats = decodeBody[core.DashboardStats](t, resp)
	if stats.TransactionCount != 1 || !stats.Income.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("stats after mutation: %+v", stats)
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("expected limit after 3 requests")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other IPs must not share the limit")
	}
}
