package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgy/internal/core"
)

var (
	// ErrNotAuthenticated is returned by mutations attempted without a session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInsufficientPotFunds rejects withdrawals exceeding the pot balance
	// before any request is made.
	ErrInsufficientPotFunds = errors.New("withdrawal exceeds saved amount in pot")
)

// FinanceStore caches the authenticated user's collections. The server owns
// all aggregates; the store refetches rather than recomputing them locally.
type FinanceStore struct {
	api     *Client
	session *Session

	mu           sync.RWMutex
	stats        *core.DashboardStats
	transactions []core.Transaction
	budgets      []core.Budget
	pots         []core.SavingPot
	bills        []core.RecurringBill
}

func NewFinanceStore(api *Client, session *Session) *FinanceStore {
	return &FinanceStore{api: api, session: session}
}

// RefreshData fetches all five collections in parallel. The refresh is
// all-or-nothing: if any fetch fails nothing is applied. Without an
// authenticated session it is a no-op.
func (f *FinanceStore) RefreshData(ctx context.Context) error {
	user := f.session.User()
	if !f.session.Authenticated() || user == nil {
		return nil
	}
	userID := user.ID

	var (
		stats        *core.DashboardStats
		transactions []core.Transaction
		budgets      []core.Budget
		pots         []core.SavingPot
		bills        []core.RecurringBill
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = f.api.GetDashboardStats(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		transactions, err = f.api.ListTransactions(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = f.api.ListBudgets(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		pots, err = f.api.ListSavingPots(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		bills, err = f.api.ListRecurringBills(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Warn("Data refresh failed", "error", err)
		return err
	}

	f.mu.Lock()
	f.stats = stats
	f.transactions = transactions
	f.budgets = budgets
	f.pots = pots
	f.bills = bills
	f.mu.Unlock()
	return nil
}

func (f *FinanceStore) userID() (int64, error) {
	user := f.session.User()
	if !f.session.Authenticated() || user == nil {
		return 0, ErrNotAuthenticated
	}
	return user.ID, nil
}

// AddTransaction creates the transaction server-side and refreshes all
// collections, since transaction changes move server-computed aggregates.
// Withdrawals larger than the pot balance are rejected locally.
func (f *FinanceStore) AddTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	if t.Type == core.Withdraw && t.SavingPotID != nil {
		if pot, ok := f.potByID(*t.SavingPotID); ok && t.Amount.Abs().GreaterThan(pot.Saved) {
			return nil, ErrInsufficientPotFunds
		}
	}

	created, err := f.api.CreateTransaction(ctx, userID, t)
	if err != nil {
		slog.Warn("Failed to add transaction", "error", err)
		return nil, err
	}

	if err := f.RefreshData(ctx); err != nil {
		return created, err
	}
	return created, nil
}

func (f *FinanceStore) UpdateTransaction(ctx context.Context, t core.Transaction) (*core.Transaction, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	updated, err := f.api.UpdateTransaction(ctx, userID, t)
	if err != nil {
		slog.Warn("Failed to update transaction", "error", err)
		return nil, err
	}

	if err := f.RefreshData(ctx); err != nil {
		return updated, err
	}
	return updated, nil
}

func (f *FinanceStore) DeleteTransaction(ctx context.Context, id int64) error {
	userID, err := f.userID()
	if err != nil {
		return err
	}

	if err := f.api.DeleteTransaction(ctx, userID, id); err != nil {
		slog.Warn("Failed to delete transaction", "error", err)
		return err
	}

	f.mu.Lock()
	f.transactions = filterOutTransaction(f.transactions, id)
	f.mu.Unlock()

	return f.RefreshData(ctx)
}

func (f *FinanceStore) AddBudget(ctx context.Context, b core.Budget) (*core.Budget, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	created, err := f.api.CreateBudget(ctx, userID, b)
	if err != nil {
		slog.Warn("Failed to add budget", "error", err)
		return nil, err
	}

	f.mu.Lock()
	f.budgets = append([]core.Budget{*created}, f.budgets...)
	f.mu.Unlock()
	return created, nil
}

func (f *FinanceStore) UpdateBudget(ctx context.Context, b core.Budget) (*core.Budget, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	updated, err := f.api.UpdateBudget(ctx, userID, b)
	if err != nil {
		slog.Warn("Failed to update budget", "error", err)
		return nil, err
	}

	f.mu.Lock()
	next := make([]core.Budget, len(f.budgets))
	for i, cur := range f.budgets {
		if cur.ID == updated.ID {
			next[i] = *updated
		} else {
			next[i] = cur
		}
	}
	f.budgets = next
	f.mu.Unlock()
	return updated, nil
}

func (f *FinanceStore) DeleteBudget(ctx context.Context, id int64) error {
	userID, err := f.userID()
	if err != nil {
		return err
	}

	if err := f.api.DeleteBudget(ctx, userID, id); err != nil {
		slog.Warn("Failed to delete budget", "error", err)
		return err
	}

	f.mu.Lock()
	next := make([]core.Budget, 0, len(f.budgets))
	for _, cur := range f.budgets {
		if cur.ID != id {
			next = append(next, cur)
		}
	}
	f.budgets = next
	f.mu.Unlock()
	return nil
}

func (f *FinanceStore) AddSavingPot(ctx context.Context, p core.SavingPot) (*core.SavingPot, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	created, err := f.api.CreateSavingPot(ctx, userID, p)
	if err != nil {
		slog.Warn("Failed to add saving pot", "error", err)
		return nil, err
	}

	f.mu.Lock()
	f.pots = append([]core.SavingPot{*created}, f.pots...)
	f.mu.Unlock()
	return created, nil
}

func (f *FinanceStore) UpdateSavingPot(ctx context.Context, p core.SavingPot) (*core.SavingPot, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	updated, err := f.api.UpdateSavingPot(ctx, userID, p)
	if err != nil {
		slog.Warn("Failed to update saving pot", "error", err)
		return nil, err
	}

	f.mu.Lock()
	next := make([]core.SavingPot, len(f.pots))
	for i, cur := range f.pots {
		if cur.ID == updated.ID {
			next[i] = *updated
		} else {
			next[i] = cur
		}
	}
	f.pots = next
	f.mu.Unlock()
	return updated, nil
}

func (f *FinanceStore) DeleteSavingPot(ctx context.Context, id int64) error {
	userID, err := f.userID()
	if err != nil {
		return err
	}

	if err := f.api.DeleteSavingPot(ctx, userID, id); err != nil {
		slog.Warn("Failed to delete saving pot", "error", err)
		return err
	}

	f.mu.Lock()
	next := make([]core.SavingPot, 0, len(f.pots))
	for _, cur := range f.pots {
		if cur.ID != id {
			next = append(next, cur)
		}
	}
	f.pots = next
	f.mu.Unlock()
	return nil
}

func (f *FinanceStore) AddRecurringBill(ctx context.Context, b core.RecurringBill) (*core.RecurringBill, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	created, err := f.api.CreateRecurringBill(ctx, userID, b)
	if err != nil {
		slog.Warn("Failed to add recurring bill", "error", err)
		return nil, err
	}

	f.mu.Lock()
	f.bills = append([]core.RecurringBill{*created}, f.bills...)
	f.mu.Unlock()
	return created, nil
}

func (f *FinanceStore) UpdateRecurringBill(ctx context.Context, b core.RecurringBill) (*core.RecurringBill, error) {
	userID, err := f.userID()
	if err != nil {
		return nil, err
	}

	updated, err := f.api.UpdateRecurringBill(ctx, userID, b)
	if err != nil {
		slog.Warn("Failed to update recurring bill", "error", err)
		return nil, err
	}

	f.mu.Lock()
	next := make([]core.RecurringBill, len(f.bills))
	for i, cur := range f.bills {
		if cur.ID == updated.ID {
			next[i] = *updated
		} else {
			next[i] = cur
		}
	}
	f.bills = next
	f.mu.Unlock()
	return updated, nil
}

func (f *FinanceStore) DeleteRecurringBill(ctx context.Context, id int64) error {
	userID, err := f.userID()
	if err != nil {
		return err
	}

	if err := f.api.DeleteRecurringBill(ctx, userID, id); err != nil {
		slog.Warn("Failed to delete recurring bill", "error", err)
		return err
	}

	f.mu.Lock()
	next := make([]core.RecurringBill, 0, len(f.bills))
	for _, cur := range f.bills {
		if cur.ID != id {
			next = append(next, cur)
		}
	}
	f.bills = next
	f.mu.Unlock()
	return nil
}

func (f *FinanceStore) Stats() *core.DashboardStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats
}

func (f *FinanceStore) Transactions() []core.Transaction {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.transactions
}

func (f *FinanceStore) Budgets() []core.Budget {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.budgets
}

func (f *FinanceStore) SavingPots() []core.SavingPot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pots
}

func (f *FinanceStore) RecurringBills() []core.RecurringBill {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.bills
}

// TotalSavings sums the saved balance across all pots.
func (f *FinanceStore) TotalSavings() decimal.Decimal {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total := decimal.Zero
	for _, p := range f.pots {
		total = total.Add(p.Saved)
	}
	return total
}

// RecentTransactions returns the newest five transactions. The server lists
// transactions newest first.
func (f *FinanceStore) RecentTransactions() []core.Transaction {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.transactions)
	if n > 5 {
		n = 5
	}
	recent := make([]core.Transaction, n)
	copy(recent, f.transactions[:n])
	return recent
}

// UpcomingBills returns bills still pending payment.
func (f *FinanceStore) UpcomingBills() []core.RecurringBill {
	f.mu.RLock()
	defer f.mu.RUnlock()

	upcoming := make([]core.RecurringBill, 0, len(f.bills))
	for _, b := range f.bills {
		if b.Status == core.BillPending {
			upcoming = append(upcoming, b)
		}
	}
	return upcoming
}

func (f *FinanceStore) potByID(id int64) (core.SavingPot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, p := range f.pots {
		if p.ID == id {
			return p, true
		}
	}
	return core.SavingPot{}, false
}

func filterOutTransaction(transactions []core.Transaction, id int64) []core.Transaction {
	next := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if t.ID != id {
			next = append(next, t)
		}
	}
	return next
}
