package services

import (
	"context"
	"fmt"
	"time"

	"budgy/internal/core"
	"budgy/internal/storage"

	"github.com/shopspring/decimal"
)

// DashboardService computes the monthly stats snapshot: current-month
// totals compared against the previous month, plus the running balance.
type DashboardService struct {
	storage *storage.SQLiteRepository
}

func NewDashboardService(storage *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{storage: storage}
}

// monthTotals are the per-type sums over one calendar month.
type monthTotals struct {
	income   decimal.Decimal
	expenses decimal.Decimal
	savings  decimal.Decimal
	count    int
}

// GetStats builds the dashboard snapshot for the month containing now.
func (s *DashboardService) GetStats(ctx context.Context, userID int64, now time.Time) (*core.DashboardStats, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	current, err := s.totalsForMonth(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	// Resolve the previous month via the first of the current month.
	// AddDate(0, -1, 0) on a month-end date normalizes into the current
	// month (Mar 31 - 1 month = Mar 3) and would compare the month
	// against itself.
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previous, err := s.totalsForMonth(ctx, userID, firstOfMonth.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	// The savings headline is the running total across pots; the change
	// fields compare monthly pot flow.
	pots, err := s.storage.ListSavingPots(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load saving pots: %w", err)
	}
	totalSaved := decimal.Zero
	for _, p := range pots {
		totalSaved = totalSaved.Add(p.Saved)
	}

	// Balance change is the month's income minus its expenses; pot flows
	// move money between the balance and pots without changing net worth.
	balanceChange := current.income.Sub(current.expenses)

	return &core.DashboardStats{
		CurrentBalance:       user.CurrentBalance,
		BalanceChange:        balanceChange,
		BalanceChangePercent: core.BalanceChangePercent(user.CurrentBalance, balanceChange),
		Income:               current.income,
		IncomeChange:         current.income.Sub(previous.income),
		IncomeChangePercent:  core.PercentChange(previous.income, current.income),
		Expenses:             current.expenses,
		ExpenseChange:        current.expenses.Sub(previous.expenses),
		ExpenseChangePercent: core.PercentChange(previous.expenses, current.expenses),
		Savings:              totalSaved,
		SavingsChange:        current.savings.Sub(previous.savings),
		SavingsChangePercent: core.PercentChange(previous.savings, current.savings),
		Period:               now.Format("January 2006"),
		TransactionCount:     current.count,
	}, nil
}

func (s *DashboardService) totalsForMonth(ctx context.Context, userID int64, t time.Time) (monthTotals, error) {
	from := core.NewDate(t.Year(), int(t.Month()), 1)
	to := core.Date{Time: from.AddDate(0, 1, -1)}

	transactions, err := s.storage.ListTransactionsInRange(ctx, userID, from, to)
	if err != nil {
		return monthTotals{}, fmt.Errorf("load month transactions: %w", err)
	}

	totals := monthTotals{
		income:   decimal.Zero,
		expenses: decimal.Zero,
		savings:  decimal.Zero,
		count:    len(transactions),
	}

	for _, tx := range transactions {
		switch tx.Type {
		case core.Income:
			totals.income = totals.income.Add(tx.Amount)
		case core.Expense:
			totals.expenses = totals.expenses.Add(tx.Amount.Abs())
		}
		// savings is the net moved into pots this month
		totals.savings = totals.savings.Add(tx.Type.PotDelta(tx.Amount))
	}

	return totals, nil
}
