package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgy/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository) *core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), "Test User", "test@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr(v int64) *int64 { return &v }

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "One", "dup@example.com", "h"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	_, err := repo.CreateUser(ctx, "Two", "dup@example.com", "h")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("CreateUser() error = %v, want ErrEmailTaken", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestCreateTransaction_AdjustsBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	tests := []struct {
		name        string
		txType      core.TransactionType
		amount      string
		wantBalance string
	}{
		{"income adds", core.Income, "1000", "1000"},
		{"expense subtracts", core.Expense, "-250.50", "749.5"},
		{"income adds again", core.Income, "0.50", "750"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &core.Transaction{
				Name:            "t",
				Amount:          dec(tt.amount),
				Category:        "General",
				Type:            tt.txType,
				TransactionDate: core.NewDate(2025, 6, 15),
			}
			if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
				t.Fatalf("CreateTransaction() error = %v", err)
			}
			if tx.ID == 0 {
				t.Error("CreateTransaction() did not assign an ID")
			}

			stored, err := repo.GetUserByID(ctx, user.ID)
			if err != nil {
				t.Fatalf("GetUserByID() error = %v", err)
			}
			if !stored.CurrentBalance.Equal(dec(tt.wantBalance)) {
				t.Errorf("balance = %s, want %s", stored.CurrentBalance, tt.wantBalance)
			}
		})
	}
}

func TestCreateTransaction_BudgetLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	budget := &core.Budget{Category: "Groceries", LimitAmount: dec("300")}
	if err := repo.CreateBudget(ctx, user.ID, budget); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	tx := &core.Transaction{
		Name:            "Supermarket",
		Amount:          dec("-45.20"),
		Category:        "Groceries",
		Type:            core.Expense,
		TransactionDate: core.NewDate(2025, 6, 1),
		BudgetID:        ptr(budget.ID),
	}
	if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	got, err := repo.GetBudget(ctx, user.ID, budget.ID)
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if !got.Spent.Equal(dec("45.2")) {
		t.Errorf("budget spent = %s, want 45.2", got.Spent)
	}
	if got.TransactionCount != 1 {
		t.Errorf("budget transaction count = %d, want 1", got.TransactionCount)
	}
}

func TestCreateTransaction_PotLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	pot := &core.SavingPot{Name: "Holiday", Goal: dec("1000")}
	if err := repo.CreateSavingPot(ctx, user.ID, pot); err != nil {
		t.Fatalf("CreateSavingPot() error = %v", err)
	}

	saving := &core.Transaction{
		Name:            "Monthly saving",
		Amount:          dec("200"),
		Category:        "Savings",
		Type:            core.Saving,
		TransactionDate: core.NewDate(2025, 6, 1),
		SavingPotID:     ptr(pot.ID),
	}
	if err := repo.CreateTransaction(ctx, user.ID, saving); err != nil {
		t.Fatalf("CreateTransaction(saving) error = %v", err)
	}

	withdraw := &core.Transaction{
		Name:            "Pull back",
		Amount:          dec("50"),
		Category:        "Savings",
		Type:            core.Withdraw,
		TransactionDate: core.NewDate(2025, 6, 10),
		SavingPotID:     ptr(pot.ID),
	}
	if err := repo.CreateTransaction(ctx, user.ID, withdraw); err != nil {
		t.Fatalf("CreateTransaction(withdraw) error = %v", err)
	}

	got, err := repo.GetSavingPot(ctx, user.ID, pot.ID)
	if err != nil {
		t.Fatalf("GetSavingPot() error = %v", err)
	}
	if !got.Saved.Equal(dec("150")) {
		t.Errorf("pot saved = %s, want 150", got.Saved)
	}
	if got.TransactionCount != 2 {
		t.Errorf("pot transaction count = %d, want 2", got.TransactionCount)
	}

	// saving moved money out of the balance, withdraw moved it back
	stored, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !stored.CurrentBalance.Equal(dec("-150")) {
		t.Errorf("balance = %s, want -150", stored.CurrentBalance)
	}
}

func TestUpdateTransaction_RevertsOldEffects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	budget := &core.Budget{Category: "Dining", LimitAmount: dec("200")}
	if err := repo.CreateBudget(ctx, user.ID, budget); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	tx := &core.Transaction{
		Name:            "Dinner",
		Amount:          dec("-40"),
		Category:        "Dining",
		Type:            core.Expense,
		TransactionDate: core.NewDate(2025, 6, 5),
		BudgetID:        ptr(budget.ID),
	}
	if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	createdAt := tx.CreatedAt

	// change amount and drop the budget link; the struct arrives like a
	// request body, without the row's creation time
	tx.Amount = dec("-60")
	tx.BudgetID = nil
	tx.CreatedAt = time.Time{}
	version, err := repo.UpdateTransaction(ctx, user.ID, tx)
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if version != 2 {
		t.Errorf("UpdateTransaction() version = %d, want 2", version)
	}
	if !tx.CreatedAt.Equal(createdAt) || tx.CreatedAt.IsZero() {
		t.Errorf("UpdateTransaction() CreatedAt = %v, want original %v", tx.CreatedAt, createdAt)
	}

	gotBudget, err := repo.GetBudget(ctx, user.ID, budget.ID)
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if !gotBudget.Spent.IsZero() {
		t.Errorf("budget spent = %s, want 0 after unlink", gotBudget.Spent)
	}
	if gotBudget.TransactionCount != 0 {
		t.Errorf("budget transaction count = %d, want 0", gotBudget.TransactionCount)
	}

	stored, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !stored.CurrentBalance.Equal(dec("-60")) {
		t.Errorf("balance = %s, want -60", stored.CurrentBalance)
	}
}

func TestDeleteTransaction_RevertsEffects(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	tx := &core.Transaction{
		Name:            "Salary",
		Amount:          dec("2500"),
		Category:        "Income",
		Type:            core.Income,
		TransactionDate: core.NewDate(2025, 6, 1),
	}
	if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	deleted, err := repo.DeleteTransaction(ctx, user.ID, tx.ID)
	if err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if !deleted.Amount.Equal(dec("2500")) {
		t.Errorf("deleted amount = %s, want 2500", deleted.Amount)
	}

	stored, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !stored.CurrentBalance.IsZero() {
		t.Errorf("balance = %s, want 0 after delete", stored.CurrentBalance)
	}

	if _, err := repo.GetTransaction(ctx, user.ID, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction() after delete error = %v, want ErrNotFound", err)
	}
}

func TestListTransactions_FiltersAndOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	dates := []core.Date{
		core.NewDate(2025, 6, 1),
		core.NewDate(2025, 6, 15),
		core.NewDate(2025, 5, 20),
	}
	types := []core.TransactionType{core.Income, core.Expense, core.Income}
	amounts := []string{"100", "-50", "30"}

	for i := range dates {
		tx := &core.Transaction{
			Name:            "t",
			Amount:          dec(amounts[i]),
			Category:        "General",
			Type:            types[i],
			TransactionDate: dates[i],
		}
		if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	all, err := repo.ListTransactions(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListTransactions() returned %d, want 3", len(all))
	}
	if all[0].TransactionDate.String() != "2025-06-15" {
		t.Errorf("first transaction date = %s, want newest first", all[0].TransactionDate)
	}

	incomes, err := repo.ListTransactionsByType(ctx, user.ID, core.Income)
	if err != nil {
		t.Fatalf("ListTransactionsByType() error = %v", err)
	}
	if len(incomes) != 2 {
		t.Errorf("ListTransactionsByType(income) returned %d, want 2", len(incomes))
	}

	june, err := repo.ListTransactionsInRange(ctx, user.ID, core.NewDate(2025, 6, 1), core.NewDate(2025, 6, 30))
	if err != nil {
		t.Fatalf("ListTransactionsInRange() error = %v", err)
	}
	if len(june) != 2 {
		t.Errorf("ListTransactionsInRange(june) returned %d, want 2", len(june))
	}
}

func TestListTransactions_OwnershipIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	other, err := repo.CreateUser(ctx, "Other", "other@example.com", "h")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	tx := &core.Transaction{
		Name:            "Mine",
		Amount:          dec("10"),
		Category:        "General",
		Type:            core.Income,
		TransactionDate: core.NewDate(2025, 6, 1),
	}
	if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if _, err := repo.GetTransaction(ctx, other.ID, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction() as other user error = %v, want ErrNotFound", err)
	}

	list, err := repo.ListTransactions(ctx, other.ID)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListTransactions() as other user returned %d, want 0", len(list))
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	tx := &core.Transaction{
		Name:            "Pending",
		Amount:          dec("10"),
		Category:        "General",
		Type:            core.Income,
		TransactionDate: core.NewDate(2025, 6, 1),
	}
	if err := repo.CreateTransaction(ctx, user.ID, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("GetPendingSyncTransactions() = %+v, want the created transaction", pending)
	}
	if pending[0].Version != 1 {
		t.Errorf("pending version = %d, want 1", pending[0].Version)
	}

	if err := repo.MarkSynced(ctx, tx.ID); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("GetPendingSyncTransactions() after MarkSynced returned %d, want 0", len(pending))
	}

	// an update queues the row again with a bumped version
	tx.Amount = dec("20")
	if _, err := repo.UpdateTransaction(ctx, user.ID, tx); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("GetPendingSyncTransactions() after update = %+v, want version 2", pending)
	}
}

func TestBudgetCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	b := &core.Budget{Category: "Fun", LimitAmount: dec("100"), Color: "#277C78"}
	if err := repo.CreateBudget(ctx, user.ID, b); err != nil {
		t.Fatalf("CreateBudget() error = %v", err)
	}

	b.LimitAmount = dec("150")
	if err := repo.UpdateBudget(ctx, user.ID, b); err != nil {
		t.Fatalf("UpdateBudget() error = %v", err)
	}

	got, err := repo.GetBudget(ctx, user.ID, b.ID)
	if err != nil {
		t.Fatalf("GetBudget() error = %v", err)
	}
	if !got.LimitAmount.Equal(dec("150")) {
		t.Errorf("limit = %s, want 150", got.LimitAmount)
	}

	if err := repo.DeleteBudget(ctx, user.ID, b.ID); err != nil {
		t.Fatalf("DeleteBudget() error = %v", err)
	}
	if err := repo.DeleteBudget(ctx, user.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBudget() twice error = %v, want ErrNotFound", err)
	}
}

func TestRecurringBillCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo)

	b := &core.RecurringBill{
		Name:     "Rent",
		Amount:   dec("850"),
		DueDate:  core.NewDate(2025, 7, 1),
		Category: "Housing",
		Status:   core.BillPending,
	}
	if err := repo.CreateRecurringBill(ctx, user.ID, b); err != nil {
		t.Fatalf("CreateRecurringBill() error = %v", err)
	}

	b.Status = core.BillPaid
	if err := repo.UpdateRecurringBill(ctx, user.ID, b); err != nil {
		t.Fatalf("UpdateRecurringBill() error = %v", err)
	}

	bills, err := repo.ListRecurringBills(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListRecurringBills() error = %v", err)
	}
	if len(bills) != 1 || bills[0].Status != core.BillPaid {
		t.Fatalf("ListRecurringBills() = %+v, want one paid bill", bills)
	}

	if err := repo.DeleteRecurringBill(ctx, user.ID, b.ID); err != nil {
		t.Fatalf("DeleteRecurringBill() error = %v", err)
	}
}
